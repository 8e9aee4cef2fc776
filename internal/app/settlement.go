/**
 * @description
 * The settlement workflow: turning a set of unpaid walks into a single charge
 * (SettleWalks) and undoing a charge (ReverseCharge). These are the only code
 * paths that flip a walk's payment status.
 *
 * The store offers no multi-row transaction across tables, so each operation
 * is a short saga:
 *
 *   SettleWalks: claim walks (one guarded batch update) -> insert charge.
 *   A failed insert triggers the compensating release of the claimed walks;
 *   only if that release also fails does the caller see a
 *   PartialSettlementError with the orphaned ids.
 *
 *   ReverseCharge: unmark each walk (best effort, collecting failures) ->
 *   delete the charge. The charge row is deleted only after every walk is
 *   back to unpaid, so a partially reversed charge remains findable.
 *
 * The claim update is guarded by pagado=is.false, which makes concurrent
 * settlements over overlapping walks safe: each walk is won by exactly one
 * charge and the loser reports the overlap as already settled.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvegaa1/comfortcan-erp/internal/domain"
	"github.com/dvegaa1/comfortcan-erp/internal/store"
	"github.com/dvegaa1/comfortcan-erp/pkg/rabbitmq"
)

// SettleWalks settles the requested walks into a new charge for the owner.
// Requested walks that are already paid are excluded from the charge and
// reported in the result's AlreadySettled list.
func (s *Service) SettleWalks(ctx context.Context, req domain.SettleRequest) (*domain.SettleResult, error) {
	if len(req.WalkIDs) == 0 {
		return nil, ErrEmptyWalkSet
	}
	if hasDuplicates(req.WalkIDs) {
		return nil, ErrDuplicateWalkIDs
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}

	// Resolving the owner up front doubles as the reachability check: if the
	// store is down we fail here, before any walk has been touched.
	owner, err := s.repo.FindOwnerByID(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}

	walks, err := s.repo.FindWalksByIDs(ctx, req.WalkIDs)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(req.WalkIDs, walks); len(missing) > 0 {
		return nil, &WalksNotFoundError{Missing: missing}
	}

	// Walks already paid never enter a second charge; they are excluded and
	// reported, not re-summed.
	var alreadySettled []uuid.UUID
	var unpaidIDs []uuid.UUID
	paidByID := make(map[uuid.UUID]bool, len(walks))
	for _, w := range walks {
		paidByID[w.ID] = w.Paid
	}
	for _, id := range req.WalkIDs {
		if paidByID[id] {
			alreadySettled = append(alreadySettled, id)
		} else {
			unpaidIDs = append(unpaidIDs, id)
		}
	}
	if len(unpaidIDs) == 0 {
		return nil, &NothingToSettleError{AlreadySettled: alreadySettled}
	}

	// The charge id is minted before the claim so the guarded update can stamp
	// every claimed walk with its future charge.
	chargeID := uuid.New()
	claimed, err := s.repo.ClaimWalksForCharge(ctx, unpaidIDs, chargeID)
	if err != nil {
		// The claim may or may not have been applied. The release below is
		// guarded by the charge id, so it is safe either way.
		if relErr := s.repo.ReleaseClaimedWalks(ctx, chargeID); relErr != nil {
			s.publishEvent(ctx, rabbitmq.ChargeOrphanedWalksKey, rabbitmq.ChargeEvent{
				ChargeID:      chargeID,
				OwnerID:       req.OwnerID,
				FailedWalkIDs: unpaidIDs,
				Timestamp:     time.Now().UTC(),
			})
			return nil, &PartialSettlementError{ChargeID: chargeID, OrphanedWalkIDs: unpaidIDs, Cause: errors.Join(err, relErr)}
		}
		return nil, err
	}

	claimedSet := make(map[uuid.UUID]decimal.Decimal, len(claimed))
	for _, w := range claimed {
		claimedSet[w.ID] = w.Price
	}
	// Walks requested unpaid but not claimed lost a race with a concurrent
	// settlement; they join the already-settled list.
	var claimedIDs []uuid.UUID
	for _, id := range unpaidIDs {
		if _, ok := claimedSet[id]; ok {
			claimedIDs = append(claimedIDs, id)
		} else {
			alreadySettled = append(alreadySettled, id)
		}
	}
	if len(claimedIDs) == 0 {
		return nil, &NothingToSettleError{AlreadySettled: alreadySettled}
	}

	total := decimal.Zero
	for _, id := range claimedIDs {
		total = total.Add(claimedSet[id])
	}

	charge := &domain.Charge{
		ID:            chargeID,
		OwnerID:       req.OwnerID,
		WalkIDs:       claimedIDs,
		AmountTotal:   total,
		PaymentMethod: paymentMethod,
		Notes:         req.Notes,
	}
	created, err := s.repo.CreateCharge(ctx, charge)
	if err != nil {
		log.Printf("level=error component=app op=settle msg=\"charge insert failed; releasing claimed walks\" charge_id=%s walk_count=%d err=%v", chargeID, len(claimedIDs), err)
		if relErr := s.repo.ReleaseClaimedWalks(ctx, chargeID); relErr != nil {
			s.publishEvent(ctx, rabbitmq.ChargeOrphanedWalksKey, rabbitmq.ChargeEvent{
				ChargeID:      chargeID,
				OwnerID:       req.OwnerID,
				FailedWalkIDs: claimedIDs,
				AmountTotal:   total.String(),
				Timestamp:     time.Now().UTC(),
			})
			return nil, &PartialSettlementError{ChargeID: chargeID, OrphanedWalkIDs: claimedIDs, Cause: errors.Join(err, relErr)}
		}
		// Compensation succeeded: no partial state remains, the whole
		// operation can simply be retried.
		return nil, fmt.Errorf("charge insert failed (claimed walks released): %w", err)
	}

	log.Printf("level=info component=app op=settle charge_id=%s owner_id=%s walk_count=%d total=%s already_settled=%d", created.ID, req.OwnerID, len(claimedIDs), total, len(alreadySettled))
	s.publishEvent(ctx, rabbitmq.ChargeCreatedKey, rabbitmq.ChargeEvent{
		ChargeID:      created.ID,
		OwnerID:       req.OwnerID,
		WalkIDs:       claimedIDs,
		AmountTotal:   total.String(),
		PaymentMethod: paymentMethod,
		Timestamp:     time.Now().UTC(),
	})

	return &domain.SettleResult{
		Charge:         created,
		Walks:          claimed,
		Owner:          owner,
		AmountTotal:    total,
		AlreadySettled: alreadySettled,
	}, nil
}

// ReverseCharge undoes a charge: every walk in its snapshot goes back to
// unpaid, then the charge itself is deleted. If any walk cannot be reverted
// the charge is kept and a PartialReversalError lists the failed ids.
func (s *Service) ReverseCharge(ctx context.Context, chargeID uuid.UUID) error {
	charge, err := s.repo.FindChargeByID(ctx, chargeID)
	if err != nil {
		return err
	}

	var reversed, failed []uuid.UUID
	var causes []error
	for _, walkID := range charge.WalkIDs {
		err := s.repo.MarkWalkUnpaid(ctx, walkID)
		switch {
		case err == nil:
			reversed = append(reversed, walkID)
		case errors.Is(err, store.ErrWalkNotFound):
			// The walk was hard-deleted since settlement; there is nothing
			// left to revert and it must not block the reversal forever.
			log.Printf("level=warn component=app op=reverse charge_id=%s walk_id=%s msg=\"walk no longer exists; skipping\"", chargeID, walkID)
			reversed = append(reversed, walkID)
		default:
			failed = append(failed, walkID)
			causes = append(causes, fmt.Errorf("walk %s: %w", walkID, err))
		}
	}

	if len(failed) > 0 {
		// The charge stays in place as the recovery anchor.
		s.publishEvent(ctx, rabbitmq.ChargeReversalFailedKey, rabbitmq.ChargeEvent{
			ChargeID:      chargeID,
			OwnerID:       charge.OwnerID,
			WalkIDs:       reversed,
			FailedWalkIDs: failed,
			Timestamp:     time.Now().UTC(),
		})
		return &PartialReversalError{ChargeID: chargeID, Reversed: reversed, Failed: failed, Cause: errors.Join(causes...)}
	}

	if err := s.repo.DeleteCharge(ctx, chargeID); err != nil {
		// Walks are already unpaid; the leftover charge makes the whole
		// reversal retryable.
		return fmt.Errorf("walks reverted but charge delete failed: %w", err)
	}

	log.Printf("level=info component=app op=reverse charge_id=%s walk_count=%d", chargeID, len(reversed))
	s.publishEvent(ctx, rabbitmq.ChargeReversedKey, rabbitmq.ChargeEvent{
		ChargeID:  chargeID,
		OwnerID:   charge.OwnerID,
		WalkIDs:   reversed,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func hasDuplicates(ids []uuid.UUID) bool {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

func missingIDs(requested []uuid.UUID, found []domain.Walk) []uuid.UUID {
	foundSet := make(map[uuid.UUID]struct{}, len(found))
	for _, w := range found {
		foundSet[w.ID] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range requested {
		if _, ok := foundSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
