// Package domain defines the canonical lead record and its partial-update
// patch shape. Relational fields (origin, contract type, status, owner) are
// always stored as resolved display names, never raw caller input.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StatusDuplicate is the display name assigned to leads flagged by the
// duplicate detector. The row must exist in the lead_statuses table.
const StatusDuplicate = "Duplicado"

// Lead is the canonical persisted lead record. JSON tags match the wire
// format the external intake sources use.
type Lead struct {
	ID             uuid.UUID  `json:"id"`
	FullName       string     `json:"nome_completo"`
	Phone          string     `json:"telefone"`
	Email          *string    `json:"email"`
	City           *string    `json:"cidade"`
	Region         *string    `json:"regiao"`
	PostalCode     *string    `json:"cep"`
	Address        *string    `json:"endereco"`
	State          *string    `json:"estado"`
	Origin         string     `json:"origem"`
	ContractType   string     `json:"tipo_contrato"`
	CurrentCarrier *string    `json:"operadora_atual"`
	Status         string     `json:"status"`
	Owner          string     `json:"responsavel"`
	NextFollowUp   *time.Time `json:"proximo_contato"`
	Notes          *string    `json:"observacoes"`
	CreatedAt      time.Time  `json:"data_criacao"`
	LastContact    time.Time  `json:"ultimo_contato"`
	Archived       bool       `json:"arquivado"`
}

// FirstName returns the first whitespace-delimited token of the full name.
func (l Lead) FirstName() string {
	fields := strings.Fields(l.FullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// OptionalString is a tri-state string for partial updates: absent,
// present-null, or present with a value.
type OptionalString struct {
	Value *string
	Set   bool
}

// OptionalTime is a tri-state timestamp for partial updates.
type OptionalTime struct {
	Value *time.Time
	Set   bool
}

// LeadPatch carries only the fields present in a partial-update payload.
// Nil pointer / unset optional means "leave untouched". The patch is only
// applied as a whole; validation failures discard it entirely.
type LeadPatch struct {
	FullName       *string
	Phone          *string
	Email          OptionalString
	City           OptionalString
	Region         OptionalString
	PostalCode     OptionalString
	Address        OptionalString
	State          OptionalString
	Origin         *string
	ContractType   *string
	CurrentCarrier OptionalString
	Status         *string
	Owner          *string
	NextFollowUp   OptionalTime
	Notes          OptionalString
	LastContact    *time.Time
	Archived       *bool
}

// IsEmpty reports whether the patch touches no field.
func (p LeadPatch) IsEmpty() bool {
	return p.FullName == nil && p.Phone == nil && !p.Email.Set && !p.City.Set &&
		!p.Region.Set && !p.PostalCode.Set && !p.Address.Set && !p.State.Set &&
		p.Origin == nil && p.ContractType == nil && !p.CurrentCarrier.Set &&
		p.Status == nil && p.Owner == nil && !p.NextFollowUp.Set && !p.Notes.Set &&
		p.LastContact == nil && p.Archived == nil
}
