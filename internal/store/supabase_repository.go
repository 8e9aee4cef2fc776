/**
 * @description
 * PostgREST-backed implementation of the `Repository` interface. Every method
 * translates into one filtered call against the Supabase table API; there is
 * no SQL and no connection pool in this process. Embedded resources (owner on
 * dog, dog and catalog entry on walk) are requested through PostgREST's
 * nested select syntax so list responses arrive pre-joined.
 *
 * @notes
 * - Update payloads use pointer fields with omitempty tags, so marshaling a
 *   patch sends exactly the provided columns.
 * - ClaimWalksForCharge is the one concurrency-sensitive call: the
 *   pagado=is.false filter on the PATCH acts as a compare-and-swap, and the
 *   returned representation tells the caller which rows it actually won.
 *
 * @dependencies
 * - context, fmt, net/url, strings, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - pkg/postgrest: The table API client.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvegaa1/comfortcan-erp/internal/domain"
	"github.com/dvegaa1/comfortcan-erp/pkg/postgrest"
)

const (
	tableOwners       = "propietarios"
	tableDogs         = "perros"
	tableWalkTypes    = "catalogo_paseos"
	tableWalks        = "paseos"
	tableReservations = "reservas"
	tableCharges      = "cargos"
)

const (
	dogSelect  = "*,propietarios(nombre,apellido,telefono,email)"
	walkSelect = "*,perros(nombre,propietario_id,propietarios(nombre,apellido,telefono)),catalogo_paseos(nombre,duracion_minutos)"
)

type supabaseRepository struct {
	client *postgrest.Client
}

// NewSupabaseRepository creates a Repository backed by the PostgREST table API.
func NewSupabaseRepository(client *postgrest.Client) Repository {
	return &supabaseRepository{client: client}
}

// mapErr normalizes client errors: transport failures become
// ErrStoreUnavailable, empty single-row responses become notFound.
func mapErr(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, postgrest.ErrUnreachable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if postgrest.IsNoRows(err) && notFound != nil {
		return notFound
	}
	return err
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// Owner methods

func (r *supabaseRepository) ListOwners(ctx context.Context, active *bool) ([]domain.Owner, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "nombre")
	if active != nil {
		params.Set("activo", postgrest.Is(*active))
	}
	var owners []domain.Owner
	if err := r.client.Select(ctx, tableOwners, params, &owners); err != nil {
		return nil, mapErr(err, nil)
	}
	return owners, nil
}

func (r *supabaseRepository) FindOwnerByID(ctx context.Context, ownerID uuid.UUID) (*domain.Owner, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("id", postgrest.Eq(ownerID))
	var owner domain.Owner
	if err := r.client.SelectSingle(ctx, tableOwners, params, &owner); err != nil {
		return nil, mapErr(err, ErrOwnerNotFound)
	}
	return &owner, nil
}

func (r *supabaseRepository) CreateOwner(ctx context.Context, payload domain.CreateOwnerPayload, userID string) (*domain.Owner, error) {
	record := struct {
		domain.CreateOwnerPayload
		UserID string `json:"user_id"`
	}{payload, userID}

	var rows []domain.Owner
	if err := r.client.Insert(ctx, tableOwners, record, &rows); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("owner insert returned no row")
	}
	return &rows[0], nil
}

func (r *supabaseRepository) UpdateOwner(ctx context.Context, ownerID uuid.UUID, patch domain.UpdateOwnerPayload) (*domain.Owner, error) {
	params := url.Values{}
	params.Set("id", postgrest.Eq(ownerID))
	var rows []domain.Owner
	if err := r.client.Update(ctx, tableOwners, params, patch, &rows); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(rows) == 0 {
		return nil, ErrOwnerNotFound
	}
	return &rows[0], nil
}

func (r *supabaseRepository) DeactivateOwner(ctx context.Context, ownerID uuid.UUID) error {
	active := false
	_, err := r.UpdateOwner(ctx, ownerID, domain.UpdateOwnerPayload{Active: &active})
	return err
}

// Dog methods

func (r *supabaseRepository) ListDogs(ctx context.Context, ownerID *uuid.UUID, active *bool) ([]domain.Dog, error) {
	params := url.Values{}
	params.Set("select", dogSelect)
	params.Set("order", "nombre")
	if ownerID != nil {
		params.Set("propietario_id", postgrest.Eq(*ownerID))
	}
	if active != nil {
		params.Set("activo", postgrest.Is(*active))
	}
	var dogs []domain.Dog
	if err := r.client.Select(ctx, tableDogs, params, &dogs); err != nil {
		return nil, mapErr(err, nil)
	}
	return dogs, nil
}

func (r *supabaseRepository) FindDogByID(ctx context.Context, dogID uuid.UUID) (*domain.Dog, error) {
	params := url.Values{}
	params.Set("select", dogSelect)
	params.Set("id", postgrest.Eq(dogID))
	var dog domain.Dog
	if err := r.client.SelectSingle(ctx, tableDogs, params, &dog); err != nil {
		return nil, mapErr(err, ErrDogNotFound)
	}
	return &dog, nil
}

func (r *supabaseRepository) CreateDog(ctx context.Context, payload domain.CreateDogPayload) (*domain.Dog, error) {
	var rows []domain.Dog
	if err := r.client.Insert(ctx, tableDogs, payload, &rows); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dog insert returned no row")
	}
	return &rows[0], nil
}

func (r *supabaseRepository) UpdateDog(ctx context.Context, dogID uuid.UUID, patch domain.UpdateDogPayload) (*domain.Dog, error) {
	params := url.Values{}
	params.Set("id", postgrest.Eq(dogID))
	var rows []domain.Dog
	if err := r.client.Update(ctx, tableDogs, params, patch, &rows); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(rows) == 0 {
		return nil, ErrDogNotFound
	}
	return &rows[0], nil
}

func (r *supabaseRepository) DeactivateDog(ctx context.Context, dogID uuid.UUID) error {
	active := false
	_, err := r.UpdateDog(ctx, dogID, domain.UpdateDogPayload{Active: &active})
	return err
}

func (r *supabaseRepository) SetDogPhotoURL(ctx context.Context, dogID uuid.UUID, photoURL string) (*domain.Dog, error) {
	params := url.Values{}
	params.Set("id", postgrest.Eq(dogID))
	patch := map[string]string{"foto_url": photoURL}
	var rows []domain.Dog
	if err := r.client.Update(ctx, tableDogs, params, patch, &rows); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(rows) == 0 {
		return nil, ErrDogNotFound
	}
	return &rows[0], nil
}

// Walk catalog methods

func (r *supabaseRepository) ListWalkTypes(ctx context.Context, active *bool) ([]domain.WalkType, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "precio")
	if active != nil {
		params.Set("activo", postgrest.Is(*active))
	}
	var types []domain.WalkType
	if err := r.client.Select(ctx, tableWalkTypes, params, &types); err != nil {
		return nil, mapErr(err, nil)
	}
	return types, nil
}

func (r *supabaseRepository) CreateWalkType(ctx context.Context, payload domain.WalkTypePayload) (*domain.WalkType, error) {
	var rows []domain.WalkType
	if err := r.client.Insert(ctx, tableWalkTypes, payload, &rows); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("walk type insert returned no row")
	}
	return &rows[0], nil
}

func (r *supabaseRepository) UpdateWalkType(ctx context.Context, walkTypeID uuid.UUID, payload domain.WalkTypePayload) (*domain.WalkType, error) {
	params := url.Values{}
	params.Set("id", postgrest.Eq(walkTypeID))
	var rows []domain.WalkType
	if err := r.client.Update(ctx, tableWalkTypes, params, payload, &rows); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(rows) == 0 {
		return nil, ErrWalkTypeNotFound
	}
	return &rows[0], nil
}

// Walk methods

func (r *supabaseRepository) ListWalks(ctx context.Context, opts domain.WalkListOptions) ([]domain.Walk, error) {
	params := url.Values{}
	params.Set("select", walkSelect)
	params.Set("order", "fecha.desc")
	if opts.DogID != nil {
		params.Set("perro_id", postgrest.Eq(*opts.DogID))
	}
	if opts.DateFrom != nil {
		params.Set("fecha", postgrest.Gte(*opts.DateFrom))
	}
	if opts.DateTo != nil {
		params.Add("fecha", postgrest.Lte(*opts.DateTo))
	}
	if opts.Paid != nil {
		params.Set("pagado", postgrest.Is(*opts.Paid))
	}
	var walks []domain.Walk
	if err := r.client.Select(ctx, tableWalks, params, &walks); err != nil {
		return nil, mapErr(err, nil)
	}
	return walks, nil
}

func (r *supabaseRepository) FindWalksByIDs(ctx context.Context, walkIDs []uuid.UUID) ([]domain.Walk, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("id", postgrest.In(uuidStrings(walkIDs)))
	var walks []domain.Walk
	if err := r.client.Select(ctx, tableWalks, params, &walks); err != nil {
		return nil, mapErr(err, nil)
	}
	return walks, nil
}

func (r *supabaseRepository) ListUnpaidWalksByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Walk, error) {
	// The store has no cross-table filter for "walks of an owner", so this is
	// a two-step query: the owner's dog ids first, then their unpaid walks.
	dogParams := url.Values{}
	dogParams.Set("select", "id")
	dogParams.Set("propietario_id", postgrest.Eq(ownerID))
	var dogs []struct {
		ID uuid.UUID `json:"id"`
	}
	if err := r.client.Select(ctx, tableDogs, dogParams, &dogs); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(dogs) == 0 {
		return []domain.Walk{}, nil
	}

	dogIDs := make([]string, len(dogs))
	for i, d := range dogs {
		dogIDs[i] = d.ID.String()
	}

	params := url.Values{}
	params.Set("select", "*,perros(nombre),catalogo_paseos(nombre)")
	params.Set("perro_id", postgrest.In(dogIDs))
	params.Set("pagado", postgrest.Is(false))
	params.Set("order", "fecha")
	var walks []domain.Walk
	if err := r.client.Select(ctx, tableWalks, params, &walks); err != nil {
		return nil, mapErr(err, nil)
	}
	return walks, nil
}

func (r *supabaseRepository) CreateWalk(ctx context.Context, payload domain.CreateWalkPayload) (*domain.Walk, error) {
	// A walk snapshots its price at registration: when the caller omits it,
	// the current catalog price is copied in, so later catalog edits never
	// change what was already rendered.
	if payload.Price.IsZero() {
		params := url.Values{}
		params.Set("id", postgrest.Eq(payload.WalkTypeID))
		params.Set("select", "precio")
		var walkType struct {
			Price decimal.Decimal `json:"precio"`
		}
		if err := r.client.SelectSingle(ctx, tableWalkTypes, params, &walkType); err != nil {
			return nil, mapErr(err, ErrWalkTypeNotFound)
		}
		payload.Price = walkType.Price
	}

	var rows []domain.Walk
	if err := r.client.Insert(ctx, tableWalks, payload, &rows); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("walk insert returned no row")
	}
	return &rows[0], nil
}

func (r *supabaseRepository) UpdateWalk(ctx context.Context, walkID uuid.UUID, patch domain.UpdateWalkPayload) (*domain.Walk, error) {
	params := url.Values{}
	params.Set("id", postgrest.Eq(walkID))
	var rows []domain.Walk
	if err := r.client.Update(ctx, tableWalks, params, patch, &rows); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(rows) == 0 {
		return nil, ErrWalkNotFound
	}
	return &rows[0], nil
}

func (r *supabaseRepository) DeleteWalk(ctx context.Context, walkID uuid.UUID) error {
	params := url.Values{}
	params.Set("id", postgrest.Eq(walkID))
	return mapErr(r.client.Delete(ctx, tableWalks, params), nil)
}

// Settlement methods

func (r *supabaseRepository) ClaimWalksForCharge(ctx context.Context, walkIDs []uuid.UUID, chargeID uuid.UUID) ([]domain.Walk, error) {
	params := url.Values{}
	params.Set("id", postgrest.In(uuidStrings(walkIDs)))
	params.Set("pagado", postgrest.Is(false))
	patch := map[string]interface{}{
		"pagado":   true,
		"cargo_id": chargeID,
	}
	var claimed []domain.Walk
	if err := r.client.Update(ctx, tableWalks, params, patch, &claimed); err != nil {
		return nil, mapErr(err, nil)
	}
	return claimed, nil
}

func (r *supabaseRepository) ReleaseClaimedWalks(ctx context.Context, chargeID uuid.UUID) error {
	params := url.Values{}
	params.Set("cargo_id", postgrest.Eq(chargeID))
	patch := map[string]interface{}{
		"pagado":   false,
		"cargo_id": nil,
	}
	return mapErr(r.client.Update(ctx, tableWalks, params, patch, nil), nil)
}

func (r *supabaseRepository) MarkWalkUnpaid(ctx context.Context, walkID uuid.UUID) error {
	params := url.Values{}
	params.Set("id", postgrest.Eq(walkID))
	patch := map[string]interface{}{
		"pagado":   false,
		"cargo_id": nil,
	}
	var rows []domain.Walk
	if err := r.client.Update(ctx, tableWalks, params, patch, &rows); err != nil {
		return mapErr(err, nil)
	}
	if len(rows) == 0 {
		return ErrWalkNotFound
	}
	return nil
}

func (r *supabaseRepository) CreateCharge(ctx context.Context, charge *domain.Charge) (*domain.Charge, error) {
	record := map[string]interface{}{
		"id":             charge.ID,
		"propietario_id": charge.OwnerID,
		"paseos_ids":     charge.WalkIDs,
		"monto_total":    charge.AmountTotal,
		"metodo_pago":    charge.PaymentMethod,
		"notas":          charge.Notes,
	}
	var rows []domain.Charge
	if err := r.client.Insert(ctx, tableCharges, record, &rows); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("charge insert returned no row")
	}
	return &rows[0], nil
}

func (r *supabaseRepository) ListCharges(ctx context.Context, opts domain.ChargeListOptions) ([]domain.Charge, error) {
	params := url.Values{}
	params.Set("select", "*,propietarios(nombre,apellido)")
	params.Set("order", "created_at.desc")
	if opts.OwnerID != nil {
		params.Set("propietario_id", postgrest.Eq(*opts.OwnerID))
	}
	if opts.DateFrom != nil {
		params.Set("created_at", postgrest.Gte(*opts.DateFrom))
	}
	if opts.DateTo != nil {
		params.Add("created_at", postgrest.Lte(*opts.DateTo+"T23:59:59"))
	}
	var charges []domain.Charge
	if err := r.client.Select(ctx, tableCharges, params, &charges); err != nil {
		return nil, mapErr(err, nil)
	}
	return charges, nil
}

func (r *supabaseRepository) FindChargeByID(ctx context.Context, chargeID uuid.UUID) (*domain.Charge, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("id", postgrest.Eq(chargeID))
	var charge domain.Charge
	if err := r.client.SelectSingle(ctx, tableCharges, params, &charge); err != nil {
		return nil, mapErr(err, ErrChargeNotFound)
	}
	return &charge, nil
}

func (r *supabaseRepository) DeleteCharge(ctx context.Context, chargeID uuid.UUID) error {
	params := url.Values{}
	params.Set("id", postgrest.Eq(chargeID))
	return mapErr(r.client.Delete(ctx, tableCharges, params), nil)
}

// Reservation methods

func (r *supabaseRepository) ListReservations(ctx context.Context, opts domain.ReservationListOptions) ([]domain.Reservation, error) {
	params := url.Values{}
	params.Set("select", "*,perros(nombre,propietarios(nombre,apellido,telefono)),catalogo_paseos(nombre)")
	params.Set("order", "fecha_reserva")
	if opts.Date != nil {
		params.Set("fecha_reserva", postgrest.Eq(*opts.Date))
	}
	if opts.Status != nil {
		params.Set("estado", postgrest.Eq(*opts.Status))
	}
	var reservations []domain.Reservation
	if err := r.client.Select(ctx, tableReservations, params, &reservations); err != nil {
		return nil, mapErr(err, nil)
	}
	return reservations, nil
}

func (r *supabaseRepository) CreateReservation(ctx context.Context, payload domain.CreateReservationPayload) (*domain.Reservation, error) {
	var rows []domain.Reservation
	if err := r.client.Insert(ctx, tableReservations, payload, &rows); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reservation insert returned no row")
	}
	return &rows[0], nil
}

func (r *supabaseRepository) UpdateReservationStatus(ctx context.Context, reservationID uuid.UUID, status string) (*domain.Reservation, error) {
	params := url.Values{}
	params.Set("id", postgrest.Eq(reservationID))
	patch := map[string]string{"estado": status}
	var rows []domain.Reservation
	if err := r.client.Update(ctx, tableReservations, params, patch, &rows); err != nil {
		return nil, mapErr(err, nil)
	}
	if len(rows) == 0 {
		return nil, ErrReservationNotFound
	}
	return &rows[0], nil
}

func (r *supabaseRepository) DeleteReservation(ctx context.Context, reservationID uuid.UUID) error {
	params := url.Values{}
	params.Set("id", postgrest.Eq(reservationID))
	return mapErr(r.client.Delete(ctx, tableReservations, params), nil)
}

// Report methods

func (r *supabaseRepository) CountActiveOwners(ctx context.Context) (int64, error) {
	params := url.Values{}
	params.Set("select", "id")
	params.Set("activo", postgrest.Is(true))
	count, err := r.client.Count(ctx, tableOwners, params)
	return count, mapErr(err, nil)
}

func (r *supabaseRepository) CountActiveDogs(ctx context.Context) (int64, error) {
	params := url.Values{}
	params.Set("select", "id")
	params.Set("activo", postgrest.Is(true))
	count, err := r.client.Count(ctx, tableDogs, params)
	return count, mapErr(err, nil)
}

func (r *supabaseRepository) ListWalksSince(ctx context.Context, since time.Time) ([]domain.Walk, error) {
	params := url.Values{}
	params.Set("select", "precio_cobrado,pagado")
	params.Set("fecha", postgrest.Gte(since.Format("2006-01-02")))
	var walks []domain.Walk
	if err := r.client.Select(ctx, tableWalks, params, &walks); err != nil {
		return nil, mapErr(err, nil)
	}
	return walks, nil
}

func (r *supabaseRepository) ListUnpaidWalks(ctx context.Context) ([]domain.Walk, error) {
	params := url.Values{}
	params.Set("select", "precio_cobrado")
	params.Set("pagado", postgrest.Is(false))
	var walks []domain.Walk
	if err := r.client.Select(ctx, tableWalks, params, &walks); err != nil {
		return nil, mapErr(err, nil)
	}
	return walks, nil
}
