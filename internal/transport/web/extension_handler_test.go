package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rosterSnapshot = `<html><body><table>
<tr><th>Name</th><th>Type</th><th>Positions</th><th>Patrol</th><th>Rank</th></tr>
<tr data-member-id="1001"><td>Smith, Alexander (Alex)</td><td>Youth</td><td>Troop 42 (Patrol Leader)</td><td>Eagles</td><td>First Class</td></tr>
<tr data-member-id="1002"><td>Lee, Jordan</td><td>Youth</td><td>Troop 42 (Scout)</td><td>Hawks</td><td>Scout</td></tr>
<tr data-member-id="2001"><td>Parent, Pat</td><td>Adult</td><td>Troop 42 (Committee Member)</td><td></td><td></td></tr>
</table></body></html>`

type syncJSON struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Summary struct {
		Added   int `json:"added"`
		Updated int `json:"updated"`
		Skipped int `json:"skipped"`
	} `json:"summary"`
}

func (s *testServer) extensionToken(unitID int64, token string) string {
	s.t.Helper()
	rec := s.request(http.MethodPost, unitPath(unitID, "/extension-tokens"), token, map[string]string{"name": "Chrome laptop"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID     int64  `json:"id"`
		Token  string `json:"token"`
		Active bool   `json:"active"`
	}
	decode(s.t, rec, &created)
	require.True(s.t, strings.HasPrefix(created.Token, "cbx_"), created.Token)
	assert.True(s.t, created.Active)
	return created.Token
}

func (s *testServer) postSnapshot(token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/extension/sync", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/html")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestExtension_StageAndConfirmSync(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("leader@example.com")
	unitID := s.createUnit(token)
	extToken := s.extensionToken(unitID, token)

	rec := s.postSnapshot(extToken, rosterSnapshot)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var preview syncJSON
	decode(t, rec, &preview)
	assert.Equal(t, "pending", preview.Status)
	assert.Equal(t, 2, preview.Summary.Added)

	// Nothing is written before confirmation
	rec = s.request(http.MethodGet, unitPath(unitID, "/scouts"), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Alexander")

	rec = s.request(http.MethodGet, unitPath(unitID, "/syncs/"+preview.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.request(http.MethodPost, unitPath(unitID, "/syncs/"+preview.ID+"/confirm"), token, map[string]bool{"deactivate_missing": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.request(http.MethodGet, unitPath(unitID, "/scouts"), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Scouts []struct {
			BSAMemberID string `json:"bsa_member_id"`
			FirstName   string `json:"first_name"`
		} `json:"scouts"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Scouts, 2)

	rec = s.request(http.MethodPost, unitPath(unitID, "/syncs/"+preview.ID+"/confirm"), token, map[string]bool{})
	assert.Equal(t, http.StatusConflict, rec.Code, "a sync applies once")

	rec = s.request(http.MethodGet, unitPath(unitID, "/syncs/missing-id"), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExtension_TokenAuth(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("leader@example.com")
	unitID := s.createUnit(token)

	assert.Equal(t, http.StatusUnauthorized, s.postSnapshot("", rosterSnapshot).Code)
	assert.Equal(t, http.StatusUnauthorized, s.postSnapshot("cbx_not-a-real-token", rosterSnapshot).Code)
	assert.Equal(t, http.StatusUnauthorized, s.postSnapshot(token, rosterSnapshot).Code, "a session token is not an extension token")

	extToken := s.extensionToken(unitID, token)
	assert.Equal(t, http.StatusUnprocessableEntity, s.postSnapshot(extToken, "<p>no roster here</p>").Code)

	rec := s.request(http.MethodGet, unitPath(unitID, "/extension-tokens"), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Tokens []struct {
			ID    int64  `json:"id"`
			Token string `json:"token"`
		} `json:"tokens"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Tokens, 1)
	assert.Empty(t, list.Tokens[0].Token, "the plain token is only shown once")

	rec = s.request(http.MethodDelete, unitPath(unitID, fmt.Sprintf("/extension-tokens/%d", list.Tokens[0].ID)), token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, s.postSnapshot(extToken, rosterSnapshot).Code)
}

func TestExtension_OversizeSnapshot(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("leader@example.com")
	unitID := s.createUnit(token)
	extToken := s.extensionToken(unitID, token)

	body := "<html><body><table>" + strings.Repeat("<tr><td>padding</td></tr>", (maxImportBytes/24)+1024)
	rec := s.postSnapshot(extToken, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}
