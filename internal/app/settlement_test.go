package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvegaa1/comfortcan-erp/internal/domain"
	"github.com/dvegaa1/comfortcan-erp/internal/store"
)

type settlementRepoStub struct {
	store.Repository

	owner *domain.Owner
	walks []domain.Walk

	claimErr       error
	claimOverride  []domain.Walk
	claimCalled    bool
	claimedIDs     []uuid.UUID
	claimChargeID  uuid.UUID
	releaseErr     error
	releaseCalled  bool
	createErr      error
	createdCharge  *domain.Charge
	markUnpaidErrs map[uuid.UUID]error
	markedUnpaid   []uuid.UUID
	charge         *domain.Charge
	deleteErr      error
	deleteCalled   bool
}

func (s *settlementRepoStub) FindOwnerByID(ctx context.Context, ownerID uuid.UUID) (*domain.Owner, error) {
	if s.owner == nil || s.owner.ID != ownerID {
		return nil, store.ErrOwnerNotFound
	}
	return s.owner, nil
}

func (s *settlementRepoStub) FindWalksByIDs(ctx context.Context, walkIDs []uuid.UUID) ([]domain.Walk, error) {
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

func (s *settlementRepoStub) ClaimWalksForCharge(ctx context.Context, walkIDs []uuid.UUID, chargeID uuid.UUID) ([]domain.Walk, error) {
	s.claimCalled = true
	s.claimedIDs = walkIDs
	s.claimChargeID = chargeID
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	if s.claimOverride != nil {
		return s.claimOverride, nil
	}
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

func (s *settlementRepoStub) ReleaseClaimedWalks(ctx context.Context, chargeID uuid.UUID) error {
	s.releaseCalled = true
	return s.releaseErr
}

func (s *settlementRepoStub) CreateCharge(ctx context.Context, charge *domain.Charge) (*domain.Charge, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	created := *charge
	created.CreatedAt = time.Now()
	s.createdCharge = &created
	return &created, nil
}

func (s *settlementRepoStub) FindChargeByID(ctx context.Context, chargeID uuid.UUID) (*domain.Charge, error) {
	if s.charge == nil || s.charge.ID != chargeID {
		return nil, store.ErrChargeNotFound
	}
	return s.charge, nil
}

func (s *settlementRepoStub) MarkWalkUnpaid(ctx context.Context, walkID uuid.UUID) error {
	if err, ok := s.markUnpaidErrs[walkID]; ok {
		return err
	}
	s.markedUnpaid = append(s.markedUnpaid, walkID)
	return nil
}

func (s *settlementRepoStub) DeleteCharge(ctx context.Context, chargeID uuid.UUID) error {
	s.deleteCalled = true
	return s.deleteErr
}

func newTestWalk(price string) domain.Walk {
	return domain.Walk{
		ID:    uuid.New(),
		DogID: uuid.New(),
		Date:  "2024-05-10",
		Price: decimal.RequireFromString(price),
	}
}

func newSettlementService(repo store.Repository) *Service {
	return NewService(repo, nil, nil, nil, "")
}

func TestSettleWalks_SumsExactDecimalTotal(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New(), FirstName: "Ana", LastName: "Ruiz"}
	walkA := newTestWalk("150.50")
	walkB := newTestWalk("99.25")
	repo := &settlementRepoStub{owner: owner, walks: []domain.Walk{walkA, walkB}}
	service := newSettlementService(repo)

	result, err := service.SettleWalks(context.Background(), domain.SettleRequest{
		WalkIDs: []uuid.UUID{walkA.ID, walkB.ID},
		OwnerID: owner.ID,
	})
	if err != nil {
		t.Fatalf("expected settlement to succeed, got %v", err)
	}

	want := decimal.RequireFromString("249.75")
	if !result.AmountTotal.Equal(want) {
		t.Fatalf("expected total=%s, got %s", want, result.AmountTotal)
	}
	if !result.Charge.AmountTotal.Equal(want) {
		t.Fatalf("expected charge total=%s, got %s", want, result.Charge.AmountTotal)
	}
	if len(result.Charge.WalkIDs) != 2 {
		t.Fatalf("expected 2 walk ids on charge, got %d", len(result.Charge.WalkIDs))
	}
	if result.Charge.PaymentMethod != DefaultPaymentMethod {
		t.Fatalf("expected default payment method %q, got %q", DefaultPaymentMethod, result.Charge.PaymentMethod)
	}
	if len(result.AlreadySettled) != 0 {
		t.Fatalf("expected no already-settled warnings, got %d", len(result.AlreadySettled))
	}
	if repo.claimChargeID != result.Charge.ID {
		t.Fatalf("expected walks claimed with charge id %s, got %s", result.Charge.ID, repo.claimChargeID)
	}
}

func TestSettleWalks_ExcludesAlreadyPaidWalks(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New()}
	unpaidA := newTestWalk("200")
	unpaidB := newTestWalk("150")
	paid := newTestWalk("75")
	paid.Paid = true
	repo := &settlementRepoStub{owner: owner, walks: []domain.Walk{unpaidA, unpaidB, paid}}
	service := newSettlementService(repo)

	result, err := service.SettleWalks(context.Background(), domain.SettleRequest{
		WalkIDs: []uuid.UUID{unpaidA.ID, unpaidB.ID, paid.ID},
		OwnerID: owner.ID,
	})
	if err != nil {
		t.Fatalf("expected settlement to succeed, got %v", err)
	}

	want := decimal.RequireFromString("350")
	if !result.AmountTotal.Equal(want) {
		t.Fatalf("expected total=%s (paid walk excluded), got %s", want, result.AmountTotal)
	}
	if len(result.AlreadySettled) != 1 || result.AlreadySettled[0] != paid.ID {
		t.Fatalf("expected the paid walk reported as already settled, got %v", result.AlreadySettled)
	}
	for _, id := range result.Charge.WalkIDs {
		if id == paid.ID {
			t.Fatalf("paid walk must not appear in the charge snapshot")
		}
	}
}

func TestSettleWalks_AllAlreadyPaidIsConflict(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New()}
	paid := newTestWalk("100")
	paid.Paid = true
	repo := &settlementRepoStub{owner: owner, walks: []domain.Walk{paid}}
	service := newSettlementService(repo)

	_, err := service.SettleWalks(context.Background(), domain.SettleRequest{
		WalkIDs: []uuid.UUID{paid.ID},
		OwnerID: owner.ID,
	})

	var nothing *NothingToSettleError
	if !errors.As(err, &nothing) {
		t.Fatalf("expected NothingToSettleError, got %v", err)
	}
	if len(nothing.AlreadySettled) != 1 {
		t.Fatalf("expected 1 already-settled id, got %d", len(nothing.AlreadySettled))
	}
	if repo.claimCalled {
		t.Fatalf("claim must not run when nothing is settleable")
	}
}

func TestSettleWalks_MissingWalksRejected(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New()}
	existing := newTestWalk("100")
	missing := uuid.New()
	repo := &settlementRepoStub{owner: owner, walks: []domain.Walk{existing}}
	service := newSettlementService(repo)

	_, err := service.SettleWalks(context.Background(), domain.SettleRequest{
		WalkIDs: []uuid.UUID{existing.ID, missing},
		OwnerID: owner.ID,
	})

	var notFound *WalksNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected WalksNotFoundError, got %v", err)
	}
	if len(notFound.Missing) != 1 || notFound.Missing[0] != missing {
		t.Fatalf("expected missing id %s, got %v", missing, notFound.Missing)
	}
	if repo.claimCalled {
		t.Fatalf("claim must not run when any requested walk is missing")
	}
}

func TestSettleWalks_ValidatesRequest(t *testing.T) {
	repo := &settlementRepoStub{}
	service := newSettlementService(repo)

	_, err := service.SettleWalks(context.Background(), domain.SettleRequest{OwnerID: uuid.New()})
	if !errors.Is(err, ErrEmptyWalkSet) {
		t.Fatalf("expected ErrEmptyWalkSet, got %v", err)
	}

	dup := uuid.New()
	_, err = service.SettleWalks(context.Background(), domain.SettleRequest{
		WalkIDs: []uuid.UUID{dup, dup},
		OwnerID: uuid.New(),
	})
	if !errors.Is(err, ErrDuplicateWalkIDs) {
		t.Fatalf("expected ErrDuplicateWalkIDs, got %v", err)
	}
}

func TestSettleWalks_UnknownOwnerRejected(t *testing.T) {
	repo := &settlementRepoStub{}
	service := newSettlementService(repo)

	_, err := service.SettleWalks(context.Background(), domain.SettleRequest{
		WalkIDs: []uuid.UUID{uuid.New()},
		OwnerID: uuid.New(),
	})
	if !errors.Is(err, store.ErrOwnerNotFound) {
		t.Fatalf("expected ErrOwnerNotFound, got %v", err)
	}
}

func TestSettleWalks_RacedWalksBecomeWarnings(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New()}
	won := newTestWalk("120")
	lost := newTestWalk("80")
	repo := &settlementRepoStub{owner: owner, walks: []domain.Walk{won, lost}}
	// A concurrent settlement claimed the second walk between the read and
	// the guarded update: the claim returns only the first row.
	claimedWon := won
	claimedWon.Paid = true
	repo.claimOverride = []domain.Walk{claimedWon}
	service := newSettlementService(repo)

	result, err := service.SettleWalks(context.Background(), domain.SettleRequest{
		WalkIDs: []uuid.UUID{won.ID, lost.ID},
		OwnerID: owner.ID,
	})
	if err != nil {
		t.Fatalf("expected settlement to succeed for the won walk, got %v", err)
	}

	want := decimal.RequireFromString("120")
	if !result.AmountTotal.Equal(want) {
		t.Fatalf("expected total=%s from claimed rows only, got %s", want, result.AmountTotal)
	}
	if len(result.AlreadySettled) != 1 || result.AlreadySettled[0] != lost.ID {
		t.Fatalf("expected raced walk reported as already settled, got %v", result.AlreadySettled)
	}
	if len(result.Charge.WalkIDs) != 1 || result.Charge.WalkIDs[0] != won.ID {
		t.Fatalf("expected charge snapshot to contain only the won walk, got %v", result.Charge.WalkIDs)
	}
}

func TestSettleWalks_AllWalksLostRaceIsConflict(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New()}
	walk := newTestWalk("100")
	repo := &settlementRepoStub{owner: owner, walks: []domain.Walk{walk}}
	repo.claimOverride = []domain.Walk{}
	service := newSettlementService(repo)

	_, err := service.SettleWalks(context.Background(), domain.SettleRequest{
		WalkIDs: []uuid.UUID{walk.ID},
		OwnerID: owner.ID,
	})

	var nothing *NothingToSettleError
	if !errors.As(err, &nothing) {
		t.Fatalf("expected NothingToSettleError after losing the race, got %v", err)
	}
}

func TestSettleWalks_ChargeInsertFailureReleasesWalks(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New()}
	walk := newTestWalk("100")
	insertErr := errors.New("insert failed")
	repo := &settlementRepoStub{owner: owner, walks: []domain.Walk{walk}, createErr: insertErr}
	service := newSettlementService(repo)

	_, err := service.SettleWalks(context.Background(), domain.SettleRequest{
		WalkIDs: []uuid.UUID{walk.ID},
		OwnerID: owner.ID,
	})

	if !errors.Is(err, insertErr) {
		t.Fatalf("expected the insert error to surface, got %v", err)
	}
	var partial *PartialSettlementError
	if errors.As(err, &partial) {
		t.Fatalf("compensation succeeded, so no partial error should be returned: %v", err)
	}
	if !repo.releaseCalled {
		t.Fatalf("expected claimed walks to be released after insert failure")
	}
}

func TestSettleWalks_CompensationFailureReportsOrphans(t *testing.T) {
	owner := &domain.Owner{ID: uuid.New()}
	walk := newTestWalk("100")
	repo := &settlementRepoStub{
		owner:      owner,
		walks:      []domain.Walk{walk},
		createErr:  errors.New("insert failed"),
		releaseErr: errors.New("release failed"),
	}
	service := newSettlementService(repo)

	_, err := service.SettleWalks(context.Background(), domain.SettleRequest{
		WalkIDs: []uuid.UUID{walk.ID},
		OwnerID: owner.ID,
	})

	var partial *PartialSettlementError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialSettlementError, got %v", err)
	}
	if len(partial.OrphanedWalkIDs) != 1 || partial.OrphanedWalkIDs[0] != walk.ID {
		t.Fatalf("expected walk %s reported as orphaned, got %v", walk.ID, partial.OrphanedWalkIDs)
	}
}

func TestReverseCharge_RevertsWalksThenDeletesCharge(t *testing.T) {
	walkA := uuid.New()
	walkB := uuid.New()
	charge := &domain.Charge{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		WalkIDs:     []uuid.UUID{walkA, walkB},
		AmountTotal: decimal.RequireFromString("250"),
	}
	repo := &settlementRepoStub{charge: charge}
	service := newSettlementService(repo)

	if err := service.ReverseCharge(context.Background(), charge.ID); err != nil {
		t.Fatalf("expected reversal to succeed, got %v", err)
	}
	if len(repo.markedUnpaid) != 2 {
		t.Fatalf("expected both walks reverted, got %d", len(repo.markedUnpaid))
	}
	if !repo.deleteCalled {
		t.Fatalf("expected charge deleted after full reversal")
	}
}

func TestReverseCharge_PartialFailureKeepsCharge(t *testing.T) {
	okWalk := uuid.New()
	badWalk := uuid.New()
	charge := &domain.Charge{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		WalkIDs: []uuid.UUID{okWalk, badWalk},
	}
	repo := &settlementRepoStub{
		charge:         charge,
		markUnpaidErrs: map[uuid.UUID]error{badWalk: store.ErrStoreUnavailable},
	}
	service := newSettlementService(repo)

	err := service.ReverseCharge(context.Background(), charge.ID)

	var partial *PartialReversalError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialReversalError, got %v", err)
	}
	if len(partial.Reversed) != 1 || partial.Reversed[0] != okWalk {
		t.Fatalf("expected %s reported reverted, got %v", okWalk, partial.Reversed)
	}
	if len(partial.Failed) != 1 || partial.Failed[0] != badWalk {
		t.Fatalf("expected %s reported failed, got %v", badWalk, partial.Failed)
	}
	if repo.deleteCalled {
		t.Fatalf("charge must be kept while any walk is still marked paid")
	}
}

func TestReverseCharge_SkipsHardDeletedWalks(t *testing.T) {
	goneWalk := uuid.New()
	charge := &domain.Charge{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		WalkIDs: []uuid.UUID{goneWalk},
	}
	repo := &settlementRepoStub{
		charge:         charge,
		markUnpaidErrs: map[uuid.UUID]error{goneWalk: store.ErrWalkNotFound},
	}
	service := newSettlementService(repo)

	if err := service.ReverseCharge(context.Background(), charge.ID); err != nil {
		t.Fatalf("expected reversal to succeed when a walk no longer exists, got %v", err)
	}
	if !repo.deleteCalled {
		t.Fatalf("expected charge deleted; a vanished walk has nothing left to revert")
	}
}

func TestReverseCharge_UnknownChargeRejected(t *testing.T) {
	repo := &settlementRepoStub{}
	service := newSettlementService(repo)

	err := service.ReverseCharge(context.Background(), uuid.New())
	if !errors.Is(err, store.ErrChargeNotFound) {
		t.Fatalf("expected ErrChargeNotFound, got %v", err)
	}
}
