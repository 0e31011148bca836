package finance

import (
	"fmt"
	"slices"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// Allocation is the amount billed to one scout account / Montant facturé à un compte scout
type Allocation struct {
	ScoutAccountID int64 `json:"scout_account_id"`
	AmountCents    int64 `json:"amount_cents"`
}

// SplitShared divides total across accounts / Répartit un total entre des comptes
//
// Every account gets total/N; the first total%N accounts in ascending ID
// order get one extra cent so the allocations always sum to total.
func SplitShared(total int64, accountIDs []int64) ([]Allocation, error) {
	ids, err := normalizeAccounts(accountIDs)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: total must be positive", domain.ErrInvalidInput)
	}
	n := int64(len(ids))
	if total < n {
		return nil, fmt.Errorf("%w: total of %d cents cannot cover %d scouts", domain.ErrInvalidInput, total, n)
	}

	base, extra := total/n, total%n
	out := make([]Allocation, len(ids))
	for i, id := range ids {
		amt := base
		if int64(i) < extra {
			amt++
		}
		out[i] = Allocation{ScoutAccountID: id, AmountCents: amt}
	}
	return out, nil
}

// SplitFixed charges every account the same amount / Facture le même montant à chaque compte
func SplitFixed(amount int64, accountIDs []int64) ([]Allocation, error) {
	ids, err := normalizeAccounts(accountIDs)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	out := make([]Allocation, len(ids))
	for i, id := range ids {
		out[i] = Allocation{ScoutAccountID: id, AmountCents: amount}
	}
	return out, nil
}

// Split dispatches on the billing kind / Répartit selon le type de facturation
func Split(kind domain.BillingKind, amount int64, accountIDs []int64) ([]Allocation, error) {
	switch kind {
	case domain.BillingShared:
		return SplitShared(amount, accountIDs)
	case domain.BillingFixed:
		return SplitFixed(amount, accountIDs)
	}
	return nil, fmt.Errorf("%w: unknown billing kind %q", domain.ErrInvalidInput, kind)
}

// Sum adds the allocated amounts / Additionne les montants répartis
func Sum(allocs []Allocation) int64 {
	var total int64
	for _, a := range allocs {
		total += a.AmountCents
	}
	return total
}

func normalizeAccounts(accountIDs []int64) ([]int64, error) {
	if len(accountIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one scout is required", domain.ErrInvalidInput)
	}
	ids := slices.Clone(accountIDs)
	slices.Sort(ids)
	if len(slices.Compact(ids)) != len(accountIDs) {
		return nil, fmt.Errorf("%w: duplicate scout account", domain.ErrInvalidInput)
	}
	return ids, nil
}
