package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richblaalid/chuckbox/internal/domain"
)

type accountJSON struct {
	ID                  int64 `json:"id"`
	ScoutID             int64 `json:"scout_id"`
	BillingBalanceCents int64 `json:"billing_balance_cents"`
	FundsBalanceCents   int64 `json:"funds_balance_cents"`
}

func (s *testServer) scoutAccount(unitID, scoutID int64, token string) accountJSON {
	s.t.Helper()
	rec := s.request(http.MethodGet, unitPath(unitID, fmt.Sprintf("/scouts/%d/account", scoutID)), token, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var acct accountJSON
	decode(s.t, rec, &acct)
	return acct
}

func TestFinance_BillingPaymentAndReconcile(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("treasurer@example.com")
	unitID := s.createUnit(token)
	alex := s.createScout(unitID, token, "Alex", "Smith")
	jordan := s.createScout(unitID, token, "Jordan", "Lee")

	rec := s.request(http.MethodPost, unitPath(unitID, "/billing"), token, map[string]any{
		"description": "Summer camp", "kind": "shared", "amount_cents": 1001, "scout_ids": []int64{alex, jordan},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var billing struct {
		ID         int64 `json:"id"`
		TotalCents int64 `json:"total_cents"`
		Charges    []struct {
			AmountCents      int64 `json:"amount_cents"`
			OutstandingCents int64 `json:"outstanding_cents"`
		} `json:"charges"`
	}
	decode(t, rec, &billing)
	require.Len(t, billing.Charges, 2)
	assert.Equal(t, int64(1001), billing.Charges[0].AmountCents+billing.Charges[1].AmountCents, "shares sum to the total")

	acct := s.scoutAccount(unitID, alex, token)
	assert.Positive(t, acct.BillingBalanceCents)
	owed := acct.BillingBalanceCents

	payment := map[string]any{"scout_account_id": acct.ID, "amount_cents": owed, "method": "cash", "reference": "envelope 7"}
	pay := func() int64 {
		req := httptest.NewRequest(http.MethodPost, unitPath(unitID, "/payments"), strings.NewReader(
			fmt.Sprintf(`{"scout_account_id":%d,"amount_cents":%d,"method":"cash"}`, acct.ID, owed)))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(IdempotencyKeyHeader, "cash-envelope-7")
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var p struct {
			ID int64 `json:"id"`
		}
		decode(t, rec, &p)
		return p.ID
	}
	first := pay()
	assert.Equal(t, first, pay(), "a known idempotency key replays the payment")
	assert.Zero(t, s.scoutAccount(unitID, alex, token).BillingBalanceCents)

	payment["method"] = "bitcoin"
	rec = s.request(http.MethodPost, unitPath(unitID, "/payments"), token, payment)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.request(http.MethodGet, unitPath(unitID, fmt.Sprintf("/accounts/%d/statement", acct.ID)), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var statement struct {
		Lines []map[string]any `json:"lines"`
	}
	decode(t, rec, &statement)
	assert.GreaterOrEqual(t, len(statement.Lines), 2)

	rec = s.request(http.MethodGet, unitPath(unitID, "/reconcile"), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		UnbalancedEntries []int64          `json:"unbalanced_entries"`
		Mismatches        []map[string]any `json:"mismatches"`
		TotalDebitCents   int64            `json:"total_debit_cents"`
		TotalCreditCents  int64            `json:"total_credit_cents"`
	}
	decode(t, rec, &report)
	assert.Empty(t, report.UnbalancedEntries)
	assert.Empty(t, report.Mismatches)
	assert.Equal(t, report.TotalDebitCents, report.TotalCreditCents)

	// Paid charges block the void
	rec = s.request(http.MethodPost, unitPath(unitID, fmt.Sprintf("/billing/%d/void", billing.ID)), token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFinance_VoidBilling(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("treasurer@example.com")
	unitID := s.createUnit(token)
	scout := s.createScout(unitID, token, "Alex", "Smith")

	rec := s.request(http.MethodPost, unitPath(unitID, "/billing"), token, map[string]any{
		"description": "Dues", "kind": "fixed", "amount_cents": 2500, "scout_ids": []int64{scout}, "due_date": "2025-09-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"due_date":"2025-09-01"`)
	var billing struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &billing)
	assert.Equal(t, int64(2500), s.scoutAccount(unitID, scout, token).BillingBalanceCents)

	path := unitPath(unitID, fmt.Sprintf("/billing/%d/void", billing.ID))
	rec = s.request(http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"void"`)
	assert.Zero(t, s.scoutAccount(unitID, scout, token).BillingBalanceCents)

	rec = s.request(http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.request(http.MethodGet, unitPath(unitID, "/billing"), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Dues"`)
}

func TestFinance_FundraiserAndApplyFunds(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("treasurer@example.com")
	unitID := s.createUnit(token)
	scout := s.createScout(unitID, token, "Alex", "Smith")
	acct := s.scoutAccount(unitID, scout, token)

	rec := s.request(http.MethodPost, unitPath(unitID, fmt.Sprintf("/accounts/%d/fundraiser", acct.ID)), token, map[string]any{
		"amount_cents": 4000, "description": "Popcorn sale",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(4000), s.scoutAccount(unitID, scout, token).FundsBalanceCents)

	rec = s.request(http.MethodPost, unitPath(unitID, "/billing"), token, map[string]any{
		"description": "Campout", "kind": "fixed", "amount_cents": 1500, "scout_ids": []int64{scout},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.request(http.MethodPost, unitPath(unitID, fmt.Sprintf("/accounts/%d/apply-funds", acct.ID)), token, map[string]any{"amount_cents": 9000})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "more than the scout holds")

	rec = s.request(http.MethodPost, unitPath(unitID, fmt.Sprintf("/accounts/%d/apply-funds", acct.ID)), token, map[string]any{"amount_cents": 1500})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	after := s.scoutAccount(unitID, scout, token)
	assert.Equal(t, int64(2500), after.FundsBalanceCents)
	assert.Zero(t, after.BillingBalanceCents)
}

func TestFinance_QuoteAndCardPayments(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("treasurer@example.com")
	unitID := s.createUnit(token)
	scout := s.createScout(unitID, token, "Alex", "Smith")
	acct := s.scoutAccount(unitID, scout, token)

	rec := s.request(http.MethodGet, unitPath(unitID, "/payments/quote?amount_cents=10000"), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quote struct {
		GrossCents int64 `json:"gross_cents"`
		FeeCents   int64 `json:"fee_cents"`
		NetCents   int64 `json:"net_cents"`
	}
	decode(t, rec, &quote)
	assert.Equal(t, quote.GrossCents, quote.FeeCents+quote.NetCents)
	assert.Positive(t, quote.FeeCents)

	rec = s.request(http.MethodGet, unitPath(unitID, "/payments/quote?amount_cents=ten"), token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Square is not configured in tests
	rec = s.request(http.MethodPost, unitPath(unitID, "/payments/square"), token, map[string]any{
		"scout_account_id": acct.ID, "amount_cents": 1000, "source_id": "cnon:card-nonce-ok",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFinance_ParentSeesOwnScoutOnly(t *testing.T) {
	s := newTestServer(t)
	adminID, adminToken := s.signup("treasurer@example.com")
	_, parentToken := s.signup("parent@example.com")
	unitID := s.createUnit(adminToken)
	s.join(unitID, adminID, "parent@example.com", parentToken, domain.RoleParent)

	mine := s.createScout(unitID, adminToken, "Alex", "Smith")
	other := s.createScout(unitID, adminToken, "Jordan", "Lee")
	rec := s.request(http.MethodPost, unitPath(unitID, fmt.Sprintf("/scouts/%d/guardians", mine)), adminToken,
		map[string]string{"email": "parent@example.com", "relationship": "mother"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.request(http.MethodGet, unitPath(unitID, "/accounts"), parentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Accounts []accountJSON `json:"accounts"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Accounts, 1)
	assert.Equal(t, mine, list.Accounts[0].ScoutID)

	rec = s.request(http.MethodGet, unitPath(unitID, fmt.Sprintf("/scouts/%d/account", other)), parentToken, nil)
	assert.Contains(t, []int{http.StatusForbidden, http.StatusNotFound}, rec.Code)

	rec = s.request(http.MethodGet, unitPath(unitID, "/reconcile"), parentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
