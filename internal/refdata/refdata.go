// Package refdata resolves loosely-specified reference values (statuses,
// origins, contract types, owners) that callers may supply either as a row id
// or as free text. A request builds one immutable Lookup snapshot up front and
// passes it through the call graph; snapshots are never shared across requests.
package refdata

import (
	"strings"

	"crmleads_backend/internal/normalize"

	"github.com/google/uuid"
)

// Kind identifies one of the four reference tables.
type Kind string

const (
	KindStatus       Kind = "status"
	KindOrigin       Kind = "origin"
	KindContractType Kind = "contract_type"
	KindOwner        Kind = "owner"
)

// Row is one reference-table entry.
type Row struct {
	ID        uuid.UUID
	Name      string
	IsDefault bool
}

// Maps holds the derived lookup maps for one reference kind.
// IDToName is keyed by the row id; NameToID is keyed by the
// normalized (case/accent-folded) display name.
type Maps struct {
	IDToName map[string]string
	NameToID map[string]string
}

// Lookup is a request-scoped snapshot of all four reference kinds.
// It is built once per request and read-only afterwards.
type Lookup struct {
	Statuses      Maps
	Origins       Maps
	ContractTypes Maps
	Owners        Maps

	// DefaultStatusID is the id of the first status flagged as default,
	// or the first status row when none is flagged. Empty when the
	// status table is empty.
	DefaultStatusID string
}

// Build derives a Lookup snapshot from the four row sets. Row order matters
// for the default-status choice, so callers must pass rows in table order.
func Build(statuses, origins, contractTypes, owners []Row) *Lookup {
	lookup := &Lookup{
		Statuses:      buildMaps(statuses),
		Origins:       buildMaps(origins),
		ContractTypes: buildMaps(contractTypes),
		Owners:        buildMaps(owners),
	}

	for _, row := range statuses {
		if row.IsDefault {
			lookup.DefaultStatusID = row.ID.String()
			break
		}
	}
	if lookup.DefaultStatusID == "" && len(statuses) > 0 {
		lookup.DefaultStatusID = statuses[0].ID.String()
	}

	return lookup
}

func buildMaps(rows []Row) Maps {
	m := Maps{
		IDToName: make(map[string]string, len(rows)),
		NameToID: make(map[string]string, len(rows)),
	}
	for _, row := range rows {
		id := row.ID.String()
		m.IDToName[id] = row.Name
		m.NameToID[normalize.Text(row.Name)] = id
	}
	return m
}

// ByKind returns the maps for the given reference kind.
func (l *Lookup) ByKind(kind Kind) Maps {
	switch kind {
	case KindStatus:
		return l.Statuses
	case KindOrigin:
		return l.Origins
	case KindContractType:
		return l.ContractTypes
	case KindOwner:
		return l.Owners
	}
	return Maps{}
}

// ResolveForeignKey resolves an id-or-name pair against one reference kind.
// The contract is two-tier: a non-empty id candidate that exists in the kind
// wins outright and no name lookup happens; otherwise a non-empty name
// candidate is normalized and matched. Returns ("", false) when neither
// candidate resolves.
func ResolveForeignKey(idCandidate, nameCandidate string, maps Maps) (string, bool) {
	if id := strings.TrimSpace(idCandidate); id != "" {
		if _, ok := maps.IDToName[id]; ok {
			return id, true
		}
	}

	if name := strings.TrimSpace(nameCandidate); name != "" {
		if id, ok := maps.NameToID[normalize.Text(name)]; ok {
			return id, true
		}
	}

	return "", false
}

// ResolveFilterID resolves a single read-side filter value that may be either
// an id or a display name. An id present in the kind is authoritative.
func ResolveFilterID(value string, maps Maps) (string, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", false
	}

	if _, ok := maps.IDToName[v]; ok {
		return v, true
	}
	if id, ok := maps.NameToID[normalize.Text(v)]; ok {
		return id, true
	}

	return "", false
}

// NameOf returns the display name for a resolved id within one kind.
func (m Maps) NameOf(id string) string {
	return m.IDToName[id]
}
