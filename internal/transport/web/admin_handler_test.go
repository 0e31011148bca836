package web

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmin_ListProfiles(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.signup("admin@example.com")
	for i := range 4 {
		s.signup(fmt.Sprintf("leader%d@example.com", i))
	}

	rec := s.request(http.MethodGet, "/api/admin/profiles?page=2&limit=2", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Profiles []struct {
			Email string `json:"email"`
		} `json:"profiles"`
		Pagination struct {
			Total      int `json:"total"`
			Page       int `json:"page"`
			Limit      int `json:"limit"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	}
	decode(t, rec, &resp)
	assert.Len(t, resp.Profiles, 2)
	assert.Equal(t, 5, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 3, resp.Pagination.TotalPages)

	rec = s.request(http.MethodGet, "/api/admin/profiles?limit=5000", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, 100, resp.Pagination.Limit)
}

func TestAdmin_RequiresSystemAdmin(t *testing.T) {
	s := newTestServer(t)
	s.signup("admin@example.com")
	_, userToken := s.signup("leader@example.com")

	for _, path := range []string{"/api/admin/profiles", "/api/admin/stats", "/metrics"} {
		rec := s.request(http.MethodGet, path, userToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		rec = s.request(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAdmin_SystemRoleAndDelete(t *testing.T) {
	s := newTestServer(t)
	adminID, adminToken := s.signup("admin@example.com")
	userID, userToken := s.signup("leader@example.com")

	rec := s.request(http.MethodPatch, fmt.Sprintf("/api/admin/profiles/%d/role", userID), adminToken, map[string]string{"role": "superuser"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.request(http.MethodPatch, fmt.Sprintf("/api/admin/profiles/%d/role", userID), adminToken, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Promotion applies without a new token
	rec = s.request(http.MethodGet, "/api/admin/stats", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		TotalProfiles    int            `json:"total_profiles"`
		VerifiedProfiles int            `json:"verified_profiles"`
		Roles            map[string]int `json:"roles"`
	}
	decode(t, rec, &stats)
	assert.Equal(t, 2, stats.TotalProfiles)
	assert.Equal(t, 2, stats.VerifiedProfiles)
	assert.Equal(t, 2, stats.Roles["admin"])

	rec = s.request(http.MethodDelete, fmt.Sprintf("/api/admin/profiles/%d", adminID), adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.request(http.MethodDelete, fmt.Sprintf("/api/admin/profiles/%d", userID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.request(http.MethodDelete, fmt.Sprintf("/api/admin/profiles/%d", userID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.request(http.MethodGet, "/metrics", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
