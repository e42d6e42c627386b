// Package repository persists leads and their interaction log.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crmleads_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a lead id does not exist.
var ErrNotFound = errors.New("lead not found")

// DB is the subset of pgxpool.Pool used by this repository.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides lead storage operations.
type Repository struct {
	db DB
}

// New creates a lead repository.
func New(db DB) *Repository {
	return &Repository{db: db}
}

const leadColumns = `id, nome_completo, telefone, email, cidade, regiao, cep, endereco, estado,
		origem, tipo_contrato, operadora_atual, status, responsavel,
		proximo_contato, observacoes, data_criacao, ultimo_contato, arquivado`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(
		&lead.ID, &lead.FullName, &lead.Phone, &lead.Email, &lead.City, &lead.Region,
		&lead.PostalCode, &lead.Address, &lead.State, &lead.Origin, &lead.ContractType,
		&lead.CurrentCarrier, &lead.Status, &lead.Owner, &lead.NextFollowUp, &lead.Notes,
		&lead.CreatedAt, &lead.LastContact, &lead.Archived,
	)
	return lead, err
}

// Insert persists a canonical lead record and returns the stored row.
func (r *Repository) Insert(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO leads (
			nome_completo, telefone, email, cidade, regiao, cep, endereco, estado,
			origem, tipo_contrato, operadora_atual, status, responsavel,
			proximo_contato, observacoes, data_criacao, ultimo_contato, arquivado
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING `+leadColumns,
		lead.FullName, lead.Phone, lead.Email, lead.City, lead.Region, lead.PostalCode,
		lead.Address, lead.State, lead.Origin, lead.ContractType, lead.CurrentCarrier,
		lead.Status, lead.Owner, lead.NextFollowUp, lead.Notes, lead.CreatedAt,
		lead.LastContact, lead.Archived,
	)
	return scanLead(row)
}

// ListFilter narrows a lead listing. Relational filters carry already-resolved
// display names; zero values mean "no filter".
type ListFilter struct {
	Status       string
	Owner        string
	Origin       string
	ContractType string
	Phone        string
	EmailPrefix  string
	Limit        int
}

// List returns non-archived leads matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]domain.Lead, error) {
	conditions := []string{"arquivado = false"}
	args := []any{}

	addEquals := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	addEquals("status", filter.Status)
	addEquals("responsavel", filter.Owner)
	addEquals("origem", filter.Origin)
	addEquals("tipo_contrato", filter.ContractType)
	addEquals("telefone", filter.Phone)

	if filter.EmailPrefix != "" {
		args = append(args, escapeLike(filter.EmailPrefix)+"%")
		conditions = append(conditions, fmt.Sprintf("email ILIKE $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	sql := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY data_criacao DESC
		LIMIT $%d
	`, leadColumns, strings.Join(conditions, " AND "), len(args))

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return leads, nil
}

// Update applies a partial patch and returns the updated row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, patch domain.LeadPatch) (domain.Lead, error) {
	sets := []string{}
	args := []any{}

	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	setOptional := func(column string, value domain.OptionalString) {
		if value.Set {
			set(column, value.Value)
		}
	}

	if patch.FullName != nil {
		set("nome_completo", *patch.FullName)
	}
	if patch.Phone != nil {
		set("telefone", *patch.Phone)
	}
	setOptional("email", patch.Email)
	setOptional("cidade", patch.City)
	setOptional("regiao", patch.Region)
	setOptional("cep", patch.PostalCode)
	setOptional("endereco", patch.Address)
	setOptional("estado", patch.State)
	setOptional("operadora_atual", patch.CurrentCarrier)
	setOptional("observacoes", patch.Notes)
	if patch.Origin != nil {
		set("origem", *patch.Origin)
	}
	if patch.ContractType != nil {
		set("tipo_contrato", *patch.ContractType)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Owner != nil {
		set("responsavel", *patch.Owner)
	}
	if patch.NextFollowUp.Set {
		set("proximo_contato", patch.NextFollowUp.Value)
	}
	if patch.LastContact != nil {
		set("ultimo_contato", *patch.LastContact)
	}
	if patch.Archived != nil {
		set("arquivado", *patch.Archived)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	sql := fmt.Sprintf(`
		UPDATE leads
		SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), len(args), leadColumns)

	lead, err := scanLead(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// GetByID fetches a single lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.db.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// HasDuplicate reports whether a non-archived lead already shares the phone
// or has an email starting with the given address, case-insensitively.
func (r *Repository) HasDuplicate(ctx context.Context, phone string, email *string) (bool, error) {
	emailPrefix := ""
	if email != nil {
		emailPrefix = strings.TrimSpace(*email)
	}
	if phone == "" && emailPrefix == "" {
		return false, nil
	}

	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM leads
			WHERE arquivado = false
			  AND (($1 <> '' AND telefone = $1) OR ($2 <> '' AND email ILIKE $2 || '%'))
		)
	`, phone, escapeLike(emailPrefix)).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// InsertInteraction appends one row to the lead interaction log.
func (r *Repository) InsertInteraction(ctx context.Context, leadID uuid.UUID, kind, description string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO interactions (lead_id, tipo, descricao, criado_em)
		VALUES ($1, $2, $3, $4)
	`, leadID, kind, description, at)
	return err
}

// ApplyAutomationResult records the automation side effect on the lead: the
// configured post-send status (when one resolved) and a fresh last-contact
// timestamp.
func (r *Repository) ApplyAutomationResult(ctx context.Context, leadID uuid.UUID, status *string, lastContact time.Time) error {
	if status != nil {
		_, err := r.db.Exec(ctx, `
			UPDATE leads SET status = $2, ultimo_contato = $3 WHERE id = $1
		`, leadID, *status, lastContact)
		return err
	}

	_, err := r.db.Exec(ctx, `
		UPDATE leads SET ultimo_contato = $2 WHERE id = $1
	`, leadID, lastContact)
	return err
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
