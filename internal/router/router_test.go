package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iliyamo/snapscape/internal/config"
	"github.com/iliyamo/snapscape/internal/handler"
	"github.com/iliyamo/snapscape/internal/middleware"
	"github.com/iliyamo/snapscape/internal/service"
	"github.com/iliyamo/snapscape/internal/utils"
)

const secret = "router-test-secret"

type stubCompetitions struct {
	handler.CompetitionService
	runs int
}

func (s *stubCompetitions) UpdateAll(context.Context, bool) ([]service.StatusChange, error) {
	s.runs++
	return nil, nil
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func newTestServer(db handler.Pinger) (*stubCompetitions, http.Handler) {
	comps := &stubCompetitions{}
	e := New(Handlers{
		Auth:         handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil),
		Competitions: handler.NewCompetitionHandler(comps, nil, nil),
		Submissions:  handler.NewSubmissionHandler(nil, 0),
		Ratings:      handler.NewRatingHandler(nil),
		AdminUsers:   handler.NewAdminUserHandler(nil),
		Maintenance:  handler.NewMaintenanceHandler(nil),
	}, Options{JWTSecret: secret, CronSecret: "cron", DB: db})
	return comps, e
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, 3, role, 5)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok.Token
}

func serve(h http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(pinger{})
	rec := serve(h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy: %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("request id middleware not installed")
	}

	_, h = newTestServer(pinger{err: errors.New("down")})
	if rec := serve(h, http.MethodGet, "/healthz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("database down: %d", rec.Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	_, h := newTestServer(pinger{})
	if rec := serve(h, http.MethodPost, "/v1/admin/competitions/status/update", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", rec.Code)
	}
	rec := serve(h, http.MethodPost, "/v1/admin/competitions/status/update",
		map[string]string{"Authorization": bearer(t, "user")})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user on admin route: %d", rec.Code)
	}
	rec = serve(h, http.MethodPost, "/v1/admin/competitions/status/update",
		map[string]string{"Authorization": bearer(t, "admin")})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUserRoutesRequireToken(t *testing.T) {
	_, h := newTestServer(pinger{})
	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/v1/submissions/1/ratings"},
		{http.MethodGet, "/v1/my/submissions"},
		{http.MethodDelete, "/v1/submissions/1"},
		{http.MethodGet, "/v1/me"},
	} {
		if rec := serve(h, r.method, r.path, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: %d", r.method, r.path, rec.Code)
		}
	}
}

func TestCronEndpoint(t *testing.T) {
	comps, h := newTestServer(pinger{})
	if rec := serve(h, http.MethodPost, "/v1/cron/competition-status", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret: %d", rec.Code)
	}
	rec := serve(h, http.MethodPost, "/v1/cron/competition-status",
		map[string]string{middleware.CronSecretHeader: "cron"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"updated":0`) {
		t.Fatalf("cron: %d %s", rec.Code, rec.Body.String())
	}
	if comps.runs != 1 {
		t.Fatalf("updater ran %d times", comps.runs)
	}
}
