/**
 * @description
 * This file defines the charge (settlement) models: the receipt record that
 * aggregates a set of walks into one payment, plus the request/response DTOs
 * of the settlement workflow.
 *
 * @notes
 * - A charge snapshots the ids of the walks it settled (WalkIDs) and the exact
 *   decimal total at settlement time. The snapshot is the single source of
 *   truth for reversal; later edits to a walk's price never change the total.
 * - A walk belongs to at most one active charge. The store enforces this with
 *   a paid=false guard on the claim update, so two concurrent settlements over
 *   overlapping walks cannot both count the same walk.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Charge is the receipt produced by settling one or more walks (cargos table).
type Charge struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"propietario_id"`
	WalkIDs       []uuid.UUID     `json:"paseos_ids"`
	AmountTotal   decimal.Decimal `json:"monto_total"`
	PaymentMethod string          `json:"metodo_pago"`
	Notes         *string         `json:"notas,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Owner         *OwnerRef       `json:"propietarios,omitempty"`
}

// SettleRequest is the DTO for POST /caja/cobrar.
type SettleRequest struct {
	WalkIDs       []uuid.UUID `json:"paseos_ids"`
	OwnerID       uuid.UUID   `json:"propietario_id"`
	PaymentMethod string      `json:"metodo_pago"`
	Notes         *string     `json:"notas,omitempty"`
}

// SettleResult is the enriched response body for a successful settlement.
// AlreadySettled lists walk ids that were requested but excluded because they
// were already paid, either before the request or by a concurrent settlement.
type SettleResult struct {
	Charge         *Charge         `json:"cargo"`
	Walks          []Walk          `json:"paseos_cobrados"`
	Owner          *Owner          `json:"propietario"`
	AmountTotal    decimal.Decimal `json:"monto_total"`
	AlreadySettled []uuid.UUID     `json:"paseos_ya_cobrados,omitempty"`
}

// ChargeListOptions filters GET /cargos.
type ChargeListOptions struct {
	OwnerID  *uuid.UUID
	DateFrom *string
	DateTo   *string
}
