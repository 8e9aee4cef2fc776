package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvegaa1/comfortcan-erp/internal/app"
	"github.com/dvegaa1/comfortcan-erp/internal/domain"
	"github.com/dvegaa1/comfortcan-erp/internal/store"
)

type chargesRepoStub struct {
	store.Repository

	owner  *domain.Owner
	walks  []domain.Walk
	charge *domain.Charge

	markUnpaidErr error
	deleteCalled  bool
}

func (s *chargesRepoStub) FindOwnerByID(ctx context.Context, ownerID uuid.UUID) (*domain.Owner, error) {
	if s.owner == nil || s.owner.ID != ownerID {
		return nil, store.ErrOwnerNotFound
	}
	return s.owner, nil
}

func (s *chargesRepoStub) FindWalksByIDs(ctx context.Context, walkIDs []uuid.UUID) ([]domain.Walk, error) {
	var found []domain.Walk
	for _, id := range walkIDs {
		for _, w := range s.walks {
			if w.ID == id {
				found = append(found, w)
			}
		}
	}
	return found, nil
}

func (s *chargesRepoStub) ClaimWalksForCharge(ctx context.Context, walkIDs []uuid.UUID, chargeID uuid.UUID) ([]domain.Walk, error) {
	var claimed []domain.Walk
	for _, id := range walkIDs {
		for _, w := range s.walks {
			if w.ID == id && !w.Paid {
				w.Paid = true
				w.ChargeID = &chargeID
				claimed = append(claimed, w)
			}
		}
	}
	return claimed, nil
}

func (s *chargesRepoStub) CreateCharge(ctx context.Context, charge *domain.Charge) (*domain.Charge, error) {
	return charge, nil
}

func (s *chargesRepoStub) FindChargeByID(ctx context.Context, chargeID uuid.UUID) (*domain.Charge, error) {
	if s.charge == nil || s.charge.ID != chargeID {
		return nil, store.ErrChargeNotFound
	}
	return s.charge, nil
}

func (s *chargesRepoStub) MarkWalkUnpaid(ctx context.Context, walkID uuid.UUID) error {
	return s.markUnpaidErr
}

func (s *chargesRepoStub) DeleteCharge(ctx context.Context, chargeID uuid.UUID) error {
	s.deleteCalled = true
	return nil
}

func newChargesTestHandlers(repo store.Repository) *Handlers {
	service := app.NewService(repo, nil, nil, nil, "")
	return NewHandlers(service, repo)
}

func TestSettleWalksHandler_CreatesCharge(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New(), FirstName: "Ana", LastName: "Ruiz"}
	walk := domain.Walk{ID: uuid.New(), Price: decimal.RequireFromString("150.50")}
	repo := &chargesRepoStub{owner: owner, walks: []domain.Walk{walk}}
	h := newChargesTestHandlers(repo)

	body := fmt.Sprintf(`{"propietario_id":%q,"paseos_ids":[%q],"metodo_pago":"Tarjeta"}`, owner.ID, walk.ID)
	req := httptest.NewRequest(http.MethodPost, "/caja/cobrar", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.SettleWalksHandler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var result domain.SettleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.AmountTotal.Equal(decimal.RequireFromString("150.50")) {
		t.Fatalf("expected total 150.50, got %s", result.AmountTotal)
	}
	if result.Charge.PaymentMethod != "Tarjeta" {
		t.Fatalf("expected payment method Tarjeta, got %q", result.Charge.PaymentMethod)
	}
}

func TestSettleWalksHandler_AllPaidIsConflict(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New()}
	paid := domain.Walk{ID: uuid.New(), Paid: true, Price: decimal.RequireFromString("100")}
	repo := &chargesRepoStub{owner: owner, walks: []domain.Walk{paid}}
	h := newChargesTestHandlers(repo)

	body := fmt.Sprintf(`{"propietario_id":%q,"paseos_ids":[%q]}`, owner.ID, paid.ID)
	req := httptest.NewRequest(http.MethodPost, "/caja/cobrar", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.SettleWalksHandler(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp nothingToSettleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.AlreadySettled) != 1 || resp.AlreadySettled[0] != paid.ID {
		t.Fatalf("expected already-settled ids in body, got %v", resp.AlreadySettled)
	}
}

func TestSettleWalksHandler_MissingWalksIsNotFound(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New()}
	repo := &chargesRepoStub{owner: owner}
	h := newChargesTestHandlers(repo)

	missing := uuid.New()
	body := fmt.Sprintf(`{"propietario_id":%q,"paseos_ids":[%q]}`, owner.ID, missing)
	req := httptest.NewRequest(http.MethodPost, "/caja/cobrar", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.SettleWalksHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp walksNotFoundResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Missing) != 1 || resp.Missing[0] != missing {
		t.Fatalf("expected missing ids in body, got %v", resp.Missing)
	}
}

func TestSettleWalksHandler_EmptyWalkSetIsUnprocessable(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New()}
	h := newChargesTestHandlers(&chargesRepoStub{owner: owner})

	body := fmt.Sprintf(`{"propietario_id":%q,"paseos_ids":[]}`, owner.ID)
	req := httptest.NewRequest(http.MethodPost, "/caja/cobrar", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.SettleWalksHandler(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSettleWalksHandler_DuplicateWalkIDsAreUnprocessable(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New()}
	walk := domain.Walk{ID: uuid.New(), Price: decimal.RequireFromString("100")}
	h := newChargesTestHandlers(&chargesRepoStub{owner: owner, walks: []domain.Walk{walk}})

	body := fmt.Sprintf(`{"propietario_id":%q,"paseos_ids":[%q,%q]}`, owner.ID, walk.ID, walk.ID)
	req := httptest.NewRequest(http.MethodPost, "/caja/cobrar", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.SettleWalksHandler(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSettleWalksHandler_MissingOwnerIDRejected(t *testing.T) {
	h := newChargesTestHandlers(&chargesRepoStub{})

	req := httptest.NewRequest(http.MethodPost, "/caja/cobrar", bytes.NewBufferString(`{"paseos_ids":[]}`))
	rec := httptest.NewRecorder()

	h.SettleWalksHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func withChargeIDParam(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestReverseChargeHandler_Success(t *testing.T) {
	charge := &domain.Charge{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		WalkIDs: []uuid.UUID{uuid.New()},
	}
	repo := &chargesRepoStub{charge: charge}
	h := newChargesTestHandlers(repo)

	req := httptest.NewRequest(http.MethodDelete, "/cargos/"+charge.ID.String(), nil)
	req = withChargeIDParam(req, charge.ID.String())
	rec := httptest.NewRecorder()

	h.ReverseChargeHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !repo.deleteCalled {
		t.Fatalf("expected charge deleted")
	}
}

func TestReverseChargeHandler_PartialFailureIsConflict(t *testing.T) {
	charge := &domain.Charge{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		WalkIDs: []uuid.UUID{uuid.New()},
	}
	repo := &chargesRepoStub{charge: charge, markUnpaidErr: store.ErrStoreUnavailable}
	h := newChargesTestHandlers(repo)

	req := httptest.NewRequest(http.MethodDelete, "/cargos/"+charge.ID.String(), nil)
	req = withChargeIDParam(req, charge.ID.String())
	rec := httptest.NewRecorder()

	h.ReverseChargeHandler(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.deleteCalled {
		t.Fatalf("charge must be kept on partial failure")
	}
	var resp partialReversalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Failed) != 1 {
		t.Fatalf("expected 1 failed walk in body, got %v", resp.Failed)
	}
}

func TestReverseChargeHandler_UnknownChargeIs404(t *testing.T) {
	h := newChargesTestHandlers(&chargesRepoStub{})

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodDelete, "/cargos/"+id, nil)
	req = withChargeIDParam(req, id)
	rec := httptest.NewRecorder()

	h.ReverseChargeHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestReverseChargeHandler_InvalidIDRejected(t *testing.T) {
	h := newChargesTestHandlers(&chargesRepoStub{})

	req := httptest.NewRequest(http.MethodDelete, "/cargos/not-a-uuid", nil)
	req = withChargeIDParam(req, "not-a-uuid")
	rec := httptest.NewRecorder()

	h.ReverseChargeHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
