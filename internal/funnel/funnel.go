// Package funnel is the read-side sales funnel: non-archived lead counts per
// status, ordered the way the status table orders its stages.
package funnel

import (
	"context"

	"crmleads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Stage is one funnel step with its lead count. Statuses without leads still
// appear with a zero count.
type Stage struct {
	StatusID uuid.UUID `json:"status_id"`
	Status   string    `json:"status"`
	Total    int64     `json:"total"`
}

// DB is the subset of pgxpool.Pool used by this repository.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository reads funnel aggregates.
type Repository struct {
	db DB
}

// NewRepository creates a funnel repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// Stages returns every status with its non-archived lead count.
func (r *Repository) Stages(ctx context.Context) ([]Stage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.nome, COUNT(l.id)
		FROM lead_statuses s
		LEFT JOIN leads l ON l.status = s.nome AND l.arquivado = false
		GROUP BY s.id, s.nome, s.display_order
		ORDER BY s.display_order ASC, s.nome ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := make([]Stage, 0)
	for rows.Next() {
		var stage Stage
		if err := rows.Scan(&stage.StatusID, &stage.Status, &stage.Total); err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return stages, nil
}

// Handler exposes the funnel over gin.
type Handler struct {
	repo *Repository
}

// NewHandler creates a funnel handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Funnel(c *gin.Context) {
	stages, err := h.repo.Stages(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, stages)
}
