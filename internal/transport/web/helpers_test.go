package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/richblaalid/chuckbox/internal/app"
	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/mocks"
	"github.com/richblaalid/chuckbox/internal/service"
)

const testPassword = "ValidPass123!"

type testServer struct {
	t         *testing.T
	container *app.Container
	handler   http.Handler
	mail      *mocks.MockEmailSender
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "chuckbox.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	return &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{Port: "0", BaseURL: "http://localhost:8080", FrontendURL: "http://localhost:5173"},
		Database: config.DatabaseConfig{
			Type:           "sqlite",
			DSN:            dsn,
			MigrationsPath: filepath.Join("..", "..", "..", "migrations", "sqlite"),
		},
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret-must-be-at-least-32-characters-long",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 24 * time.Hour,
			CookiePath:           "/",
			InviteTTL:            7 * 24 * time.Hour,
		},
		Security:  config.SecurityConfig{BcryptCost: 4, MaxFailedAttempts: 5, LockoutDuration: time.Minute},
		SMTP:      config.SMTPConfig{Host: "localhost", Port: 1025, From: "test@example.com"},
		Cache:     config.CacheConfig{TTL: time.Hour},
		Extension: config.ExtensionConfig{TokenTTL: 24 * time.Hour, SyncTTL: time.Hour},
		Contact:   config.ContactConfig{To: "hello@example.com", MaxMessageLength: 5000},
		Fees:      config.FeesConfig{PercentBps: 290, FixedCents: 30},
	}
}

func newTestServer(t *testing.T, tweak ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig(t)
	for _, f := range tweak {
		f(cfg)
	}

	mail := mocks.NewMockEmailSender()
	c, err := app.NewContainer(context.Background(), cfg, app.Options{
		Registerer:  prometheus.NewRegistry(),
		EmailSender: mail,
		SkipWorkers: true,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	handler, mw := NewMux(ctx, NewHandler(c), c)
	t.Cleanup(func() {
		mw.Stop()
		cancel()
		c.Close()
	})
	return &testServer{t: t, container: c, handler: handler, mail: mail}
}

// request sends a JSON request, authenticated with a bearer token when one is given.
func (s *testServer) request(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(s.t, err)
			r = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// signup registers a verified profile and returns its id and access token.
// The first profile of a fresh database becomes system admin.
func (s *testServer) signup(email string) (int64, string) {
	s.t.Helper()
	ctx := context.Background()
	p, err := s.container.ProfileSvc.Register(ctx, service.Registration{
		Email: email, Password: testPassword, FirstName: "Test", LastName: "Leader",
	})
	require.NoError(s.t, err)
	require.NotNil(s.t, p)
	_, err = s.container.DB.Exec(`UPDATE profiles SET email_verified = TRUE WHERE id = ?`, p.ID)
	require.NoError(s.t, err)

	rec := s.request(http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": testPassword})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	decode(s.t, rec, &resp)
	require.NotEmpty(s.t, resp.AccessToken)
	return p.ID, resp.AccessToken
}

// createUnit makes a troop administered by the token's profile.
func (s *testServer) createUnit(token string) int64 {
	s.t.Helper()
	rec := s.request(http.MethodPost, "/api/units", token, map[string]string{
		"name": "Troop 42", "type": "troop", "number": "42", "council": "Pacific Harbors",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var unit struct {
		ID int64 `json:"id"`
	}
	decode(s.t, rec, &unit)
	return unit.ID
}

// join adds profile to the unit with role, through an invite.
func (s *testServer) join(unitID, adminID int64, email, token string, role domain.Role) {
	s.t.Helper()
	ctx := context.Background()
	admin, err := s.container.Access.Membership(ctx, unitID, adminID)
	require.NoError(s.t, err)
	_, invite, err := s.container.UnitSvc.InviteMember(ctx, admin, email, role)
	require.NoError(s.t, err)

	rec := s.request(http.MethodPost, "/api/invites/accept", token, map[string]string{"token": invite})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (s *testServer) createScout(unitID int64, token, first, last string) int64 {
	s.t.Helper()
	rec := s.request(http.MethodPost, unitPath(unitID, "/scouts"), token, map[string]string{
		"first_name": first, "last_name": last,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var scout struct {
		ID int64 `json:"id"`
	}
	decode(s.t, rec, &scout)
	return scout.ID
}

func unitPath(unitID int64, suffix string) string {
	return fmt.Sprintf("/api/units/%d%s", unitID, suffix)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}
