package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/finance"
	"github.com/richblaalid/chuckbox/internal/ports"
)

// notifyConcurrency bounds parallel guardian emails for one billing
const notifyConcurrency = 4

// notifyTimeout bounds the whole fan-out of one billing
const notifyTimeout = 2 * time.Minute

// BillingNotifier emails guardians about new charges / Prévient les tuteurs des nouvelles charges
type BillingNotifier struct {
	units   ports.UnitRepository
	scouts  ports.ScoutRepository
	finance ports.FinanceRepository
	mailer  *Mailer
	conf    *config.Config
	wg      sync.WaitGroup
}

// NewBillingNotifier creates the notifier / Crée le notificateur
func NewBillingNotifier(units ports.UnitRepository, scouts ports.ScoutRepository, fin ports.FinanceRepository, mailer *Mailer, conf *config.Config) *BillingNotifier {
	return &BillingNotifier{units: units, scouts: scouts, finance: fin, mailer: mailer, conf: conf}
}

// NotifyAsync sends notices in the background / Envoie les avis en arrière-plan
func (n *BillingNotifier) NotifyAsync(unitID int64, record *domain.BillingRecord) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := n.Notify(ctx, unitID, record); err != nil {
			slog.Error("billing notices failed", "unit_id", unitID, "billing_id", record.ID, "err", err)
		}
	}()
}

// Wait blocks until background notices finish / Attend la fin des envois
func (n *BillingNotifier) Wait() {
	n.wg.Wait()
}

// Notify emails every guardian of every charged scout / Écrit à chaque tuteur des scouts facturés
func (n *BillingNotifier) Notify(ctx context.Context, unitID int64, record *domain.BillingRecord) error {
	unit, err := n.units.GetByID(ctx, unitID)
	if err != nil {
		return fmt.Errorf("load unit: %w", err)
	}

	amounts := make(map[int64]int64, len(record.Charges)) // scout ID -> charge
	names := make(map[int64]string, len(record.Charges))
	scoutIDs := make([]int64, 0, len(record.Charges))
	for _, c := range record.Charges {
		acct, err := n.finance.GetAccount(ctx, unitID, c.ScoutAccountID)
		if err != nil {
			return fmt.Errorf("load account %d: %w", c.ScoutAccountID, err)
		}
		amounts[acct.ScoutID] = c.AmountCents
		names[acct.ScoutID] = acct.ScoutName
		scoutIDs = append(scoutIDs, acct.ScoutID)
	}

	guardians, err := n.scouts.ListGuardians(ctx, scoutIDs)
	if err != nil {
		return fmt.Errorf("list guardians: %w", err)
	}

	due := ""
	if record.DueDate != nil {
		due = record.DueDate.Format("January 2, 2006")
	}
	payURL := strings.TrimRight(n.conf.Server.FrontendURL, "/") + fmt.Sprintf("/units/%d/accounts", unitID)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(notifyConcurrency)
	for _, gd := range guardians {
		if gd.Email == "" {
			continue
		}
		data := billingNoticeEmail{
			GuardianName: gd.Name,
			UnitName:     unit.DisplayName(),
			ScoutName:    names[gd.ScoutID],
			Description:  record.Description,
			Amount:       finance.FormatCents(amounts[gd.ScoutID]),
			DueDate:      due,
			PayURL:       payURL,
		}
		to := gd.Email
		g.Go(func() error {
			// One failed address does not stop the others
			if err := n.mailer.Send(gctx, TemplateBillingNotice, to, "", data); err != nil {
				slog.Warn("billing notice not sent", "email", to, "err", err)
			}
			return nil
		})
	}
	return g.Wait()
}
