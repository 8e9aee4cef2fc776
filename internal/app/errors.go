/**
 * @description
 * Error types for the application service. The settlement workflow can fail
 * in ways a plain sentinel cannot describe (which walks are missing, which
 * walks were left orphaned mid-operation), so those cases carry typed errors
 * with id lists the API layer serializes into structured responses.
 */

package app

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrEmptyWalkSet rejects a settlement request without walk ids.
	ErrEmptyWalkSet = errors.New("at least one walk id is required")
	// ErrDuplicateWalkIDs rejects a settlement request repeating a walk id.
	ErrDuplicateWalkIDs = errors.New("duplicate walk ids in request")
)

// WalksNotFoundError reports requested walk ids that resolve to no row.
type WalksNotFoundError struct {
	Missing []uuid.UUID
}

func (e *WalksNotFoundError) Error() string {
	return fmt.Sprintf("%d requested walk(s) not found", len(e.Missing))
}

// NothingToSettleError reports that every requested walk was already settled,
// either before the request or by a concurrent settlement.
type NothingToSettleError struct {
	AlreadySettled []uuid.UUID
}

func (e *NothingToSettleError) Error() string {
	return fmt.Sprintf("all %d requested walk(s) are already settled", len(e.AlreadySettled))
}

// PartialSettlementError reports walks that were marked paid but are not
// referenced by any charge: the charge insert failed and the compensating
// release failed too. The ids must reach an operator for manual correction.
type PartialSettlementError struct {
	ChargeID        uuid.UUID
	OrphanedWalkIDs []uuid.UUID
	Cause           error
}

func (e *PartialSettlementError) Error() string {
	return fmt.Sprintf("settlement %s failed mid-operation leaving %d walk(s) paid without a charge: %v", e.ChargeID, len(e.OrphanedWalkIDs), e.Cause)
}

func (e *PartialSettlementError) Unwrap() error { return e.Cause }

// PartialReversalError reports a reversal that could not unmark every walk.
// The charge record is kept as the recovery anchor whenever this is returned.
type PartialReversalError struct {
	ChargeID uuid.UUID
	Reversed []uuid.UUID
	Failed   []uuid.UUID
	Cause    error
}

func (e *PartialReversalError) Error() string {
	return fmt.Sprintf("reversal of charge %s reverted %d walk(s) but failed for %d: %v", e.ChargeID, len(e.Reversed), len(e.Failed), e.Cause)
}

func (e *PartialReversalError) Unwrap() error { return e.Cause }

// RateLimitedError reports a rejected login attempt and when to retry.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %ds", e.RetryAfterSeconds)
}
