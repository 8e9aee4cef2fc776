package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvegaa1/comfortcan-erp/internal/app"
	"github.com/dvegaa1/comfortcan-erp/internal/domain"
	"github.com/dvegaa1/comfortcan-erp/internal/store"
	"github.com/dvegaa1/comfortcan-erp/pkg/authclient"
)

type routerRepoStub struct {
	store.Repository

	owner *domain.Owner
	walks []domain.Walk
}

func (s *routerRepoStub) FindOwnerByID(ctx context.Context, ownerID uuid.UUID) (*domain.Owner, error) {
	if s.owner == nil || s.owner.ID != ownerID {
		return nil, store.ErrOwnerNotFound
	}
	return s.owner, nil
}

func (s *routerRepoStub) ListUnpaidWalksByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Walk, error) {
	return s.walks, nil
}

// newAuthedRouter builds the full route table behind a stub GoTrue server
// that accepts any bearer token.
func newAuthedRouter(t *testing.T, repo store.Repository) http.Handler {
	t.Helper()
	gotrue := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("unexpected auth path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"user-1","email":"ana@example.com"}`))
	}))
	t.Cleanup(gotrue.Close)

	auth := authclient.NewClient(gotrue.URL, "anon-key")
	h := NewHandlers(app.NewService(repo, auth, nil, nil, ""), repo)
	return Routes(h, auth, []string{"*"})
}

func TestUnpaidWalksRoute_ServesBothPaths(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New(), FirstName: "Ana", LastName: "Ruiz"}
	walk := domain.Walk{ID: uuid.New(), Price: decimal.RequireFromString("120")}
	router := newAuthedRouter(t, &routerRepoStub{owner: owner, walks: []domain.Walk{walk}})

	paths := []string{
		"/propietarios/" + owner.ID.String() + "/paseos-pendientes",
		"/paseos/pendientes/" + owner.ID.String(),
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer some-token")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, rec.Code, rec.Body.String())
		}
		var walks []domain.Walk
		if err := json.Unmarshal(rec.Body.Bytes(), &walks); err != nil {
			t.Fatalf("%s: failed to decode response: %v", path, err)
		}
		if len(walks) != 1 || walks[0].ID != walk.ID {
			t.Fatalf("%s: expected the owner's unpaid walk, got %v", path, walks)
		}
	}
}

func TestRouter_RejectsMissingBearerToken(t *testing.T) {
	router := newAuthedRouter(t, &routerRepoStub{})

	req := httptest.NewRequest(http.MethodGet, "/propietarios", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
