package web

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richblaalid/chuckbox/internal/domain"
)

const badgeCatalog = `
version: "2025"
badges:
  - code: camping
    name: Camping
    eagle_required: true
    requirements:
      - number: "1"
        description: Show first aid knowledge
      - number: 9a
        description: Camp 20 nights
`

func TestAdvancement_RecordAndComplete(t *testing.T) {
	s := newTestServer(t)
	adminID, token := s.signup("leader@example.com")
	_, parentToken := s.signup("parent@example.com")
	unitID := s.createUnit(token)
	s.join(unitID, adminID, "parent@example.com", parentToken, domain.RoleParent)
	scout := s.createScout(unitID, token, "Alex", "Smith")

	rec := s.request(http.MethodPost, "/api/admin/badges", token, badgeCatalog)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"imported": 1}`, rec.Body.String())

	rec = s.request(http.MethodGet, "/api/badges/camping", parentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.request(http.MethodGet, "/api/badges/knots", parentToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	base := fmt.Sprintf("/scouts/%d/badges/camping", scout)
	rec = s.request(http.MethodPost, unitPath(unitID, base+"/requirements"), token, map[string]string{"number": "1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.request(http.MethodPost, unitPath(unitID, base+"/requirements"), token, map[string]string{"number": "1"})
	assert.Equal(t, http.StatusOK, rec.Code, "recording twice is not an error")
	rec = s.request(http.MethodPost, unitPath(unitID, base+"/requirements"), token, map[string]string{"number": "12"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.request(http.MethodPost, unitPath(unitID, base+"/complete"), token, map[string]bool{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "9a is still open")

	// Either notation reaches the same requirement
	rec = s.request(http.MethodPost, unitPath(unitID, base+"/requirements"), token, map[string]string{"number": "9(a)"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.request(http.MethodPost, unitPath(unitID, base+"/complete"), token, map[string]bool{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var badge struct {
		CompletedAt *string `json:"completed_at"`
		Completions []struct {
			Number string `json:"number"`
		} `json:"completions"`
	}
	decode(t, rec, &badge)
	assert.NotNil(t, badge.CompletedAt)
	assert.Len(t, badge.Completions, 2)

	rec = s.request(http.MethodPost, unitPath(unitID, base+"/complete"), token, map[string]bool{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Parents read progress but cannot sign off
	rec = s.request(http.MethodGet, unitPath(unitID, fmt.Sprintf("/scouts/%d/badges", scout)), parentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"camping"`)
	rec = s.request(http.MethodPost, unitPath(unitID, fmt.Sprintf("/scouts/%d/badges", scout)), parentToken, map[string]string{"code": "camping"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
