package web

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richblaalid/chuckbox/internal/domain"
)

func TestUnits_CreateAndList(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("leader@example.com")
	unitID := s.createUnit(token)

	rec := s.request(http.MethodGet, "/api/units", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Units []struct {
			ID          int64  `json:"id"`
			DisplayName string `json:"display_name"`
			Role        string `json:"role"`
		} `json:"units"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Units, 1)
	assert.Equal(t, unitID, list.Units[0].ID)
	assert.Equal(t, "admin", list.Units[0].Role)

	rec = s.request(http.MethodPost, "/api/units", token, map[string]string{"name": "Pack 9", "type": "platoon"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUnits_NonMembersSeeNotFound(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.signup("leader@example.com")
	_, outsiderToken := s.signup("outsider@example.com")
	unitID := s.createUnit(adminToken)

	for _, path := range []string{"", "/members", "/scouts", "/accounts"} {
		rec := s.request(http.MethodGet, unitPath(unitID, path), outsiderToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec := s.request(http.MethodGet, "/api/units/abc", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.request(http.MethodGet, unitPath(unitID+100, ""), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnits_RolePermissions(t *testing.T) {
	s := newTestServer(t)
	adminID, adminToken := s.signup("leader@example.com")
	_, parentToken := s.signup("parent@example.com")
	unitID := s.createUnit(adminToken)
	s.join(unitID, adminID, "parent@example.com", parentToken, domain.RoleParent)

	rec := s.request(http.MethodGet, unitPath(unitID, ""), parentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"parent"`)

	billing := map[string]any{"description": "Campout", "kind": "fixed", "amount_cents": 2500}
	rec = s.request(http.MethodPost, unitPath(unitID, "/billing"), parentToken, billing)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.request(http.MethodPost, unitPath(unitID, "/scouts"), parentToken, map[string]string{"first_name": "A", "last_name": "B"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.request(http.MethodPost, unitPath(unitID, "/invites"), parentToken, map[string]string{"email": "x@example.com", "role": "leader"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnits_Members(t *testing.T) {
	s := newTestServer(t)
	adminID, adminToken := s.signup("leader@example.com")
	_, treasurerToken := s.signup("treasurer@example.com")
	unitID := s.createUnit(adminToken)

	rec := s.request(http.MethodPost, unitPath(unitID, "/invites"), adminToken, map[string]string{"email": "treasurer@example.com", "role": "treasurer"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), `"token"`, "invite tokens only travel by email")
	s.container.Mailer.Wait()
	assert.Len(t, s.mail.SentTo("treasurer@example.com"), 2, "verification and invite")

	rec = s.request(http.MethodPost, unitPath(unitID, "/invites"), adminToken, map[string]string{"email": "x@example.com", "role": "chief"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	s.join(unitID, adminID, "treasurer@example.com", treasurerToken, domain.RoleTreasurer)

	rec = s.request(http.MethodGet, unitPath(unitID, "/members"), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members struct {
		Members []struct {
			ID        int64  `json:"id"`
			ProfileID int64  `json:"profile_id"`
			Role      string `json:"role"`
		} `json:"members"`
	}
	decode(t, rec, &members)
	require.Len(t, members.Members, 2)

	var adminMembership, treasurerMembership int64
	for _, m := range members.Members {
		if m.ProfileID == adminID {
			adminMembership = m.ID
		} else {
			treasurerMembership = m.ID
		}
	}

	// The last admin cannot step down
	rec = s.request(http.MethodPatch, unitPath(unitID, fmt.Sprintf("/members/%d", adminMembership)), adminToken, map[string]string{"role": "leader"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.request(http.MethodPatch, unitPath(unitID, fmt.Sprintf("/members/%d", treasurerMembership)), adminToken, map[string]string{"role": "leader"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"leader"`)

	rec = s.request(http.MethodDelete, unitPath(unitID, fmt.Sprintf("/members/%d", treasurerMembership)), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodGet, unitPath(unitID, ""), treasurerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "removed members lose access")
}

func TestUnits_UpdateFees(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("leader@example.com")
	unitID := s.createUnit(token)

	rec := s.request(http.MethodPut, unitPath(unitID, "/fees"), token, map[string]any{
		"percent_bps": 260, "fixed_cents": 15, "pass_to_payer": true, "square_location_id": "LOC123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"percent_bps":260`)
	assert.Contains(t, rec.Body.String(), `"square_location_id":"LOC123"`)

	rec = s.request(http.MethodPut, unitPath(unitID, "/fees"), token, map[string]any{"percent_bps": 10000})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
