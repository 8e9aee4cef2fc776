/**
 * @description
 * This file defines the core domain models for the ComfortCan API. These structs
 * represent the business entities (owners, dogs, walk catalog, walks, reservations)
 * and the request payloads used by the API layer. JSON tags match the column names
 * of the Supabase tables and the field names the web frontend already consumes,
 * so rows decode straight from PostgREST responses.
 *
 * @notes
 * - Monetary values use shopspring/decimal so totals never accumulate
 *   floating-point drift.
 * - Pointer fields on update payloads distinguish "not provided" from zero values;
 *   only provided fields are sent to the store.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// PostgREST returns numeric columns as JSON numbers and the frontend expects
	// them back the same way.
	decimal.MarshalJSONWithoutQuotes = true
}

// Owner represents a dog owner (propietarios table).
type Owner struct {
	ID        uuid.UUID `json:"id"`
	UserID    *string   `json:"user_id,omitempty"`
	FirstName string    `json:"nombre"`
	LastName  string    `json:"apellido"`
	Phone     *string   `json:"telefono,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Address   *string   `json:"direccion,omitempty"`
	Notes     *string   `json:"notas,omitempty"`
	Active    bool      `json:"activo"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnerRef is the embedded owner projection returned alongside dogs and charges.
type OwnerRef struct {
	FirstName string  `json:"nombre"`
	LastName  string  `json:"apellido"`
	Phone     *string `json:"telefono,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// CreateOwnerPayload is the DTO for POST /propietarios.
type CreateOwnerPayload struct {
	FirstName string  `json:"nombre"`
	LastName  string  `json:"apellido"`
	Phone     *string `json:"telefono,omitempty"`
	Email     *string `json:"email,omitempty"`
	Address   *string `json:"direccion,omitempty"`
	Notes     *string `json:"notas,omitempty"`
}

// UpdateOwnerPayload is the DTO for PUT /propietarios/{id}. Nil fields are left untouched.
type UpdateOwnerPayload struct {
	FirstName *string `json:"nombre,omitempty"`
	LastName  *string `json:"apellido,omitempty"`
	Phone     *string `json:"telefono,omitempty"`
	Email     *string `json:"email,omitempty"`
	Address   *string `json:"direccion,omitempty"`
	Notes     *string `json:"notas,omitempty"`
	Active    *bool   `json:"activo,omitempty"`
}

// Dog represents a dog (perros table). The Owner field is populated from the
// PostgREST embedded resource when the query selects it.
type Dog struct {
	ID                uuid.UUID       `json:"id"`
	OwnerID           uuid.UUID       `json:"propietario_id"`
	Name              string          `json:"nombre"`
	Breed             *string         `json:"raza,omitempty"`
	BirthDate         *string         `json:"fecha_nacimiento,omitempty"`
	WeightKg          *float64        `json:"peso_kg,omitempty"`
	Sex               *string         `json:"sexo,omitempty"`
	Color             *string         `json:"color,omitempty"`
	Neutered          bool            `json:"esterilizado"`
	Vaccinations      []string        `json:"vacunas"`
	MedicalConditions []string        `json:"condiciones_medicas"`
	Allergies         *string         `json:"alergias,omitempty"`
	VetContact        *string         `json:"veterinario_contacto,omitempty"`
	PhotoURL          *string         `json:"foto_url,omitempty"`
	Notes             *string         `json:"notas,omitempty"`
	Active            bool            `json:"activo"`
	CreatedAt         time.Time       `json:"created_at"`
	Owner             *OwnerRef       `json:"propietarios,omitempty"`
}

// CreateDogPayload is the DTO for POST /perros.
type CreateDogPayload struct {
	OwnerID           uuid.UUID `json:"propietario_id"`
	Name              string    `json:"nombre"`
	Breed             *string   `json:"raza,omitempty"`
	BirthDate         *string   `json:"fecha_nacimiento,omitempty"`
	WeightKg          *float64  `json:"peso_kg,omitempty"`
	Sex               *string   `json:"sexo,omitempty"`
	Color             *string   `json:"color,omitempty"`
	Neutered          *bool     `json:"esterilizado,omitempty"`
	Vaccinations      []string  `json:"vacunas,omitempty"`
	MedicalConditions []string  `json:"condiciones_medicas,omitempty"`
	Allergies         *string   `json:"alergias,omitempty"`
	VetContact        *string   `json:"veterinario_contacto,omitempty"`
	Notes             *string   `json:"notas,omitempty"`
}

// UpdateDogPayload is the DTO for PUT /perros/{id}.
type UpdateDogPayload struct {
	Name              *string  `json:"nombre,omitempty"`
	Breed             *string  `json:"raza,omitempty"`
	BirthDate         *string  `json:"fecha_nacimiento,omitempty"`
	WeightKg          *float64 `json:"peso_kg,omitempty"`
	Sex               *string  `json:"sexo,omitempty"`
	Color             *string  `json:"color,omitempty"`
	Neutered          *bool    `json:"esterilizado,omitempty"`
	Vaccinations      []string `json:"vacunas,omitempty"`
	MedicalConditions []string `json:"condiciones_medicas,omitempty"`
	Allergies         *string  `json:"alergias,omitempty"`
	VetContact        *string  `json:"veterinario_contacto,omitempty"`
	Notes             *string  `json:"notas,omitempty"`
	Active            *bool    `json:"activo,omitempty"`
}

// WalkType represents an entry of the walk catalog (catalogo_paseos table).
type WalkType struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"nombre"`
	Description     *string         `json:"descripcion,omitempty"`
	DurationMinutes int             `json:"duracion_minutos"`
	Price           decimal.Decimal `json:"precio"`
	Active          bool            `json:"activo"`
}

// WalkTypePayload is the DTO for creating or replacing a catalog entry.
type WalkTypePayload struct {
	Name            string          `json:"nombre"`
	Description     *string         `json:"descripcion,omitempty"`
	DurationMinutes int             `json:"duracion_minutos"`
	Price           decimal.Decimal `json:"precio"`
}

// WalkTypeRef is the embedded catalog projection returned alongside walks.
type WalkTypeRef struct {
	Name            string `json:"nombre"`
	DurationMinutes int    `json:"duracion_minutos,omitempty"`
}

// DogRef is the embedded dog projection returned alongside walks.
type DogRef struct {
	Name    string     `json:"nombre"`
	OwnerID *uuid.UUID `json:"propietario_id,omitempty"`
	Owner   *OwnerRef  `json:"propietarios,omitempty"`
}

// Walk represents a rendered walk, the billable unit of the business
// (paseos table). Paid flips to true only through the settlement workflow and
// back to false only through its reversal; ChargeID links a paid walk to the
// charge that settled it.
type Walk struct {
	ID         uuid.UUID       `json:"id"`
	DogID      uuid.UUID       `json:"perro_id"`
	WalkTypeID uuid.UUID       `json:"catalogo_paseo_id"`
	Date       string          `json:"fecha"`
	StartTime  *string         `json:"hora_inicio,omitempty"`
	EndTime    *string         `json:"hora_fin,omitempty"`
	Price      decimal.Decimal `json:"precio_cobrado"`
	Paid       bool            `json:"pagado"`
	ChargeID   *uuid.UUID      `json:"cargo_id,omitempty"`
	Notes      *string         `json:"notas,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	Dog        *DogRef         `json:"perros,omitempty"`
	WalkType   *WalkTypeRef    `json:"catalogo_paseos,omitempty"`
}

// CreateWalkPayload is the DTO for POST /paseos.
type CreateWalkPayload struct {
	DogID      uuid.UUID       `json:"perro_id"`
	WalkTypeID uuid.UUID       `json:"catalogo_paseo_id"`
	Date       string          `json:"fecha"`
	StartTime  *string         `json:"hora_inicio,omitempty"`
	EndTime    *string         `json:"hora_fin,omitempty"`
	Price      decimal.Decimal `json:"precio_cobrado"`
	Notes      *string         `json:"notas,omitempty"`
}

// UpdateWalkPayload is the DTO for PUT /paseos/{id}. The paid flag is
// deliberately absent: payment status only changes through settlement.
type UpdateWalkPayload struct {
	Date      *string          `json:"fecha,omitempty"`
	StartTime *string          `json:"hora_inicio,omitempty"`
	EndTime   *string          `json:"hora_fin,omitempty"`
	Price     *decimal.Decimal `json:"precio_cobrado,omitempty"`
	Notes     *string          `json:"notas,omitempty"`
}

// WalkListOptions filters GET /paseos.
type WalkListOptions struct {
	DogID    *uuid.UUID
	DateFrom *string
	DateTo   *string
	Paid     *bool
}

// Reservation represents a scheduled future walk (reservas table).
type Reservation struct {
	ID         uuid.UUID    `json:"id"`
	DogID      uuid.UUID    `json:"perro_id"`
	WalkTypeID uuid.UUID    `json:"catalogo_paseo_id"`
	Date       string       `json:"fecha_reserva"`
	StartTime  *string      `json:"hora_inicio,omitempty"`
	Status     string       `json:"estado"`
	Notes      *string      `json:"notas,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	Dog        *DogRef      `json:"perros,omitempty"`
	WalkType   *WalkTypeRef `json:"catalogo_paseos,omitempty"`
}

// Reservation states.
const (
	ReservationPending   = "pendiente"
	ReservationConfirmed = "confirmada"
	ReservationCompleted = "completada"
	ReservationCancelled = "cancelada"
)

// ValidReservationStatus reports whether s is one of the known reservation states.
func ValidReservationStatus(s string) bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationCompleted, ReservationCancelled:
		return true
	}
	return false
}

// CreateReservationPayload is the DTO for POST /reservas.
type CreateReservationPayload struct {
	DogID      uuid.UUID `json:"perro_id"`
	WalkTypeID uuid.UUID `json:"catalogo_paseo_id"`
	Date       string    `json:"fecha_reserva"`
	StartTime  *string   `json:"hora_inicio,omitempty"`
	Notes      *string   `json:"notas,omitempty"`
}

// ReservationListOptions filters GET /reservas.
type ReservationListOptions struct {
	Date   *string
	Status *string
}

// SummaryReport aggregates the business overview served by /reportes/resumen.
type SummaryReport struct {
	TotalOwners     int64           `json:"total_propietarios"`
	TotalDogs       int64           `json:"total_perros"`
	WalksThisMonth  int             `json:"paseos_mes"`
	IncomeThisMonth decimal.Decimal `json:"ingresos_mes"`
	UnpaidWalks     int             `json:"paseos_pendientes"`
	UnpaidAmount    decimal.Decimal `json:"monto_pendiente"`
}

// LoginResult is returned by POST /login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
}
