/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the service performs against the external relational store. The
 * business logic depends only on this interface, so tests can substitute
 * stubs and the PostgREST-backed implementation stays swappable.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dvegaa1/comfortcan-erp/internal/domain"
)

var (
	ErrOwnerNotFound       = errors.New("owner not found")
	ErrDogNotFound         = errors.New("dog not found")
	ErrWalkNotFound        = errors.New("walk not found")
	ErrWalkTypeNotFound    = errors.New("walk type not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrChargeNotFound      = errors.New("charge not found")
	// ErrStoreUnavailable wraps transport-level failures reaching the store.
	// No row was read or written when it is returned.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Repository defines the set of methods for interacting with the external store.
type Repository interface {
	// Owner methods
	ListOwners(ctx context.Context, active *bool) ([]domain.Owner, error)
	FindOwnerByID(ctx context.Context, ownerID uuid.UUID) (*domain.Owner, error)
	CreateOwner(ctx context.Context, payload domain.CreateOwnerPayload, userID string) (*domain.Owner, error)
	UpdateOwner(ctx context.Context, ownerID uuid.UUID, patch domain.UpdateOwnerPayload) (*domain.Owner, error)
	DeactivateOwner(ctx context.Context, ownerID uuid.UUID) error

	// Dog methods
	ListDogs(ctx context.Context, ownerID *uuid.UUID, active *bool) ([]domain.Dog, error)
	FindDogByID(ctx context.Context, dogID uuid.UUID) (*domain.Dog, error)
	CreateDog(ctx context.Context, payload domain.CreateDogPayload) (*domain.Dog, error)
	UpdateDog(ctx context.Context, dogID uuid.UUID, patch domain.UpdateDogPayload) (*domain.Dog, error)
	DeactivateDog(ctx context.Context, dogID uuid.UUID) error
	SetDogPhotoURL(ctx context.Context, dogID uuid.UUID, photoURL string) (*domain.Dog, error)

	// Walk catalog methods
	ListWalkTypes(ctx context.Context, active *bool) ([]domain.WalkType, error)
	CreateWalkType(ctx context.Context, payload domain.WalkTypePayload) (*domain.WalkType, error)
	UpdateWalkType(ctx context.Context, walkTypeID uuid.UUID, payload domain.WalkTypePayload) (*domain.WalkType, error)

	// Walk methods
	ListWalks(ctx context.Context, opts domain.WalkListOptions) ([]domain.Walk, error)
	FindWalksByIDs(ctx context.Context, walkIDs []uuid.UUID) ([]domain.Walk, error)
	ListUnpaidWalksByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Walk, error)
	CreateWalk(ctx context.Context, payload domain.CreateWalkPayload) (*domain.Walk, error)
	UpdateWalk(ctx context.Context, walkID uuid.UUID, patch domain.UpdateWalkPayload) (*domain.Walk, error)
	DeleteWalk(ctx context.Context, walkID uuid.UUID) error

	// Settlement methods.
	// ClaimWalksForCharge marks the given walks paid and stamps them with
	// chargeID in a single guarded update: only rows still unpaid are
	// claimed, and exactly the claimed rows are returned. A walk missing
	// from the result lost the claim (already settled or settled
	// concurrently).
	ClaimWalksForCharge(ctx context.Context, walkIDs []uuid.UUID, chargeID uuid.UUID) ([]domain.Walk, error)
	// ReleaseClaimedWalks is the compensating action for a failed
	// settlement: it unmarks every walk stamped with chargeID.
	ReleaseClaimedWalks(ctx context.Context, chargeID uuid.UUID) error
	// MarkWalkUnpaid reverts a single walk to unpaid, clearing its charge
	// reference. Used item by item during reversal so per-walk failures
	// can be collected.
	MarkWalkUnpaid(ctx context.Context, walkID uuid.UUID) error
	CreateCharge(ctx context.Context, charge *domain.Charge) (*domain.Charge, error)
	ListCharges(ctx context.Context, opts domain.ChargeListOptions) ([]domain.Charge, error)
	FindChargeByID(ctx context.Context, chargeID uuid.UUID) (*domain.Charge, error)
	DeleteCharge(ctx context.Context, chargeID uuid.UUID) error

	// Reservation methods
	ListReservations(ctx context.Context, opts domain.ReservationListOptions) ([]domain.Reservation, error)
	CreateReservation(ctx context.Context, payload domain.CreateReservationPayload) (*domain.Reservation, error)
	UpdateReservationStatus(ctx context.Context, reservationID uuid.UUID, status string) (*domain.Reservation, error)
	DeleteReservation(ctx context.Context, reservationID uuid.UUID) error

	// Report methods
	CountActiveOwners(ctx context.Context) (int64, error)
	CountActiveDogs(ctx context.Context) (int64, error)
	ListWalksSince(ctx context.Context, since time.Time) ([]domain.Walk, error)
	ListUnpaidWalks(ctx context.Context) ([]domain.Walk, error)
}
