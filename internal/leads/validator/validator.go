// Package validator assembles canonical lead records from the loosely-typed
// JSON payloads external sources send. Payloads arrive as map[string]any on
// purpose: a relational field may carry an id or a free-text name, and a
// present-but-wrongly-typed value must become a field error, not a bind
// failure. Validation never short-circuits; every field failure is collected
// and reported together, and no partial record is ever produced.
package validator

import (
	"regexp"
	"strings"
	"time"

	"crmleads_backend/internal/leads/domain"
	"crmleads_backend/internal/normalize"
	"crmleads_backend/internal/refdata"
)

// FieldError is one field-scoped validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// relation binds a payload field to its reference kind. The id variant is the
// field name suffixed with _id; the name variant is the field itself.
type relation struct {
	field string
	kind  refdata.Kind
}

var relations = []relation{
	{"origem", refdata.KindOrigin},
	{"tipo_contrato", refdata.KindContractType},
	{"responsavel", refdata.KindOwner},
}

// ValidateCreate validates an intake payload and assembles the canonical
// record. Relational values are stored as resolved display names; the status
// falls back to the reference table's default when nothing resolves. The
// record is only assembled when the error list is empty.
func ValidateCreate(payload map[string]any, lookup *refdata.Lookup, now time.Time) (domain.Lead, []FieldError) {
	var errs []FieldError

	fullName, ok := requiredText(payload, "nome_completo")
	if !ok {
		errs = append(errs, FieldError{"nome_completo", "nome_completo is required and must be text"})
	}
	phone, ok := requiredText(payload, "telefone")
	if !ok {
		errs = append(errs, FieldError{"telefone", "telefone is required and must be text"})
	}

	email := optionalText(payload, "email")
	if email != nil && !emailShape.MatchString(*email) {
		errs = append(errs, FieldError{"email", "email is not a valid address"})
	}

	resolvedNames := make(map[string]string, len(relations))
	for _, rel := range relations {
		maps := lookup.ByKind(rel.kind)
		id, ok := refdata.ResolveForeignKey(candidate(payload, rel.field+"_id"), candidate(payload, rel.field), maps)
		if !ok {
			errs = append(errs, FieldError{rel.field, rel.field + " could not be resolved by id or name"})
			continue
		}
		resolvedNames[rel.field] = maps.NameOf(id)
	}

	statusID, ok := refdata.ResolveForeignKey(candidate(payload, "status_id"), candidate(payload, "status"), lookup.Statuses)
	if !ok {
		statusID = lookup.DefaultStatusID
	}
	if statusID == "" {
		errs = append(errs, FieldError{"status", "status could not be resolved and no default status is configured"})
	}

	createdAt := now
	if present(payload, "data_criacao") {
		parsed, ok := dateValue(payload["data_criacao"])
		if !ok {
			errs = append(errs, FieldError{"data_criacao", "data_criacao is not a valid date"})
		} else {
			createdAt = parsed
		}
	}

	var nextFollowUp *time.Time
	if present(payload, "proximo_contato") {
		parsed, ok := dateValue(payload["proximo_contato"])
		if !ok {
			errs = append(errs, FieldError{"proximo_contato", "proximo_contato is not a valid date"})
		} else {
			nextFollowUp = &parsed
		}
	}

	if len(errs) > 0 {
		return domain.Lead{}, errs
	}

	return domain.Lead{
		FullName:       strings.TrimSpace(fullName),
		Phone:          normalize.Phone(phone),
		Email:          email,
		City:           optionalText(payload, "cidade"),
		Region:         optionalText(payload, "regiao"),
		PostalCode:     optionalText(payload, "cep"),
		Address:        optionalText(payload, "endereco"),
		State:          optionalText(payload, "estado"),
		Origin:         resolvedNames["origem"],
		ContractType:   resolvedNames["tipo_contrato"],
		CurrentCarrier: optionalText(payload, "operadora_atual"),
		Status:         lookup.Statuses.NameOf(statusID),
		Owner:          resolvedNames["responsavel"],
		NextFollowUp:   nextFollowUp,
		Notes:          optionalText(payload, "observacoes"),
		CreatedAt:      createdAt,
		LastContact:    createdAt,
		Archived:       false,
	}, nil
}

// ValidateUpdate validates a partial-update payload. Only fields present in
// the input appear in the patch; absence is never an error. A relational
// field is only touched when its id or name variant is present, and a
// present-but-unresolvable value is an error for that field alone. Any error
// discards the whole patch.
func ValidateUpdate(payload map[string]any, lookup *refdata.Lookup) (domain.LeadPatch, []FieldError) {
	var patch domain.LeadPatch
	var errs []FieldError

	if present(payload, "nome_completo") {
		if v, ok := requiredText(payload, "nome_completo"); ok {
			trimmed := strings.TrimSpace(v)
			patch.FullName = &trimmed
		} else {
			errs = append(errs, FieldError{"nome_completo", "nome_completo must be non-empty text"})
		}
	}

	if present(payload, "telefone") {
		if v, ok := requiredText(payload, "telefone"); ok {
			canonical := normalize.Phone(v)
			patch.Phone = &canonical
		} else {
			errs = append(errs, FieldError{"telefone", "telefone must be non-empty text"})
		}
	}

	if present(payload, "email") {
		value := optionalText(payload, "email")
		if value != nil && !emailShape.MatchString(*value) {
			errs = append(errs, FieldError{"email", "email is not a valid address"})
		} else {
			patch.Email = domain.OptionalString{Value: value, Set: true}
		}
	}

	patch.City = optionalPatch(payload, "cidade")
	patch.Region = optionalPatch(payload, "regiao")
	patch.PostalCode = optionalPatch(payload, "cep")
	patch.Address = optionalPatch(payload, "endereco")
	patch.State = optionalPatch(payload, "estado")
	patch.CurrentCarrier = optionalPatch(payload, "operadora_atual")
	patch.Notes = optionalPatch(payload, "observacoes")

	for _, rel := range relations {
		if !present(payload, rel.field+"_id") && !present(payload, rel.field) {
			continue
		}
		maps := lookup.ByKind(rel.kind)
		id, ok := refdata.ResolveForeignKey(candidate(payload, rel.field+"_id"), candidate(payload, rel.field), maps)
		if !ok {
			errs = append(errs, FieldError{rel.field, rel.field + " could not be resolved by id or name"})
			continue
		}
		name := maps.NameOf(id)
		switch rel.field {
		case "origem":
			patch.Origin = &name
		case "tipo_contrato":
			patch.ContractType = &name
		case "responsavel":
			patch.Owner = &name
		}
	}

	if present(payload, "status_id") || present(payload, "status") {
		id, ok := refdata.ResolveForeignKey(candidate(payload, "status_id"), candidate(payload, "status"), lookup.Statuses)
		if !ok {
			errs = append(errs, FieldError{"status", "status could not be resolved by id or name"})
		} else {
			name := lookup.Statuses.NameOf(id)
			patch.Status = &name
		}
	}

	if present(payload, "proximo_contato") {
		if payload["proximo_contato"] == nil {
			patch.NextFollowUp = domain.OptionalTime{Set: true}
		} else if parsed, ok := dateValue(payload["proximo_contato"]); ok {
			patch.NextFollowUp = domain.OptionalTime{Value: &parsed, Set: true}
		} else {
			errs = append(errs, FieldError{"proximo_contato", "proximo_contato is not a valid date"})
		}
	}

	if len(errs) > 0 {
		return domain.LeadPatch{}, errs
	}

	return patch, nil
}

// present reports whether the key exists in the payload at all; a JSON null
// still counts as present.
func present(payload map[string]any, key string) bool {
	_, ok := payload[key]
	return ok
}

// requiredText returns the value when it is a non-empty string.
func requiredText(payload map[string]any, key string) (string, bool) {
	s, ok := payload[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// candidate extracts a resolution candidate: non-string values resolve as
// empty, which the two-tier lookup treats as absent.
func candidate(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

// optionalText returns trimmed-or-nil for optional free-text fields.
// Non-string values are treated as absent.
func optionalText(payload map[string]any, key string) *string {
	s, ok := payload[key].(string)
	if !ok {
		return nil
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalPatch(payload map[string]any, key string) domain.OptionalString {
	if !present(payload, key) {
		return domain.OptionalString{}
	}
	return domain.OptionalString{Value: optionalText(payload, key), Set: true}
}

func dateValue(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	return normalize.FlexibleDate(s)
}
