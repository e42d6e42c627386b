package refdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
)

// DB is the subset of pgxpool.Pool used by this repository.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository reads the four reference tables.
type Repository struct {
	db DB
}

// NewRepository creates a reference-data repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// Load reads all four reference kinds concurrently and builds a Lookup
// snapshot. The load is atomic: if any read fails, no snapshot is returned
// and the error aggregates every individual failure.
func (r *Repository) Load(ctx context.Context) (*Lookup, error) {
	type result struct {
		kind Kind
		rows []Row
		err  error
	}

	reads := []struct {
		kind Kind
		fn   func(context.Context) ([]Row, error)
	}{
		{KindStatus, r.listStatuses},
		{KindOrigin, r.listOrigins},
		{KindContractType, r.listContractTypes},
		{KindOwner, r.listOwners},
	}

	results := make([]result, len(reads))
	var wg sync.WaitGroup
	for i, read := range reads {
		i, read := i, read
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := read.fn(ctx)
			results[i] = result{kind: read.kind, rows: rows, err: err}
		}()
	}
	wg.Wait()

	var failures []string
	for _, res := range results {
		if res.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", res.kind, res.err))
		}
	}
	if len(failures) > 0 {
		sort.Strings(failures)
		return nil, fmt.Errorf("load reference tables: %s", strings.Join(failures, "; "))
	}

	byKind := make(map[Kind][]Row, len(results))
	for _, res := range results {
		byKind[res.kind] = res.rows
	}

	return Build(byKind[KindStatus], byKind[KindOrigin], byKind[KindContractType], byKind[KindOwner]), nil
}

func (r *Repository) listStatuses(ctx context.Context) ([]Row, error) {
	return r.scanRows(ctx, `
		SELECT id, nome, is_default
		FROM lead_statuses
		ORDER BY display_order ASC, nome ASC
	`, true)
}

func (r *Repository) listOrigins(ctx context.Context) ([]Row, error) {
	return r.scanRows(ctx, `
		SELECT id, nome
		FROM lead_origins
		ORDER BY display_order ASC, nome ASC
	`, false)
}

func (r *Repository) listContractTypes(ctx context.Context) ([]Row, error) {
	return r.scanRows(ctx, `
		SELECT id, nome
		FROM contract_types
		ORDER BY display_order ASC, nome ASC
	`, false)
}

// Owners are the application users; any user can own a lead.
func (r *Repository) listOwners(ctx context.Context) ([]Row, error) {
	return r.scanRows(ctx, `
		SELECT id, nome
		FROM users
		ORDER BY criado_em ASC
	`, false)
}

func (r *Repository) scanRows(ctx context.Context, sql string, hasDefault bool) ([]Row, error) {
	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Row, 0)
	for rows.Next() {
		var item Row
		if hasDefault {
			if err := rows.Scan(&item.ID, &item.Name, &item.IsDefault); err != nil {
				return nil, err
			}
		} else {
			if err := rows.Scan(&item.ID, &item.Name); err != nil {
				return nil, err
			}
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}
