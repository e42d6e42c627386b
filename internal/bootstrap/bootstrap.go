// Package bootstrap creates the first application user. The endpoint is
// guarded twice: the caller must present the configured setup token, and the
// users table must still be empty. After the first user exists the endpoint
// permanently refuses.
package bootstrap

import (
	"context"
	"crypto/subtle"
	"net/http"

	"crmleads_backend/platform/config"
	"crmleads_backend/platform/httpkit"
	"crmleads_backend/platform/logger"
	"crmleads_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// SetupTokenHeader carries the shared secret that authorizes bootstrap.
const SetupTokenHeader = "X-Setup-Token"

// Request is the first-user payload.
type Request struct {
	Name     string `json:"nome" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"senha" validate:"required,min=8,max=72"`
}

// DB is the subset of pgxpool.Pool used by this repository.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists bootstrap users.
type Repository struct {
	db DB
}

// NewRepository creates a bootstrap repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// HasUsers reports whether any user exists yet.
func (r *Repository) HasUsers(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists)
	return exists, err
}

// InsertUser stores the first user and returns its id.
func (r *Repository) InsertUser(ctx context.Context, name, email string, passwordHash []byte) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (nome, email, senha_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`, name, email, passwordHash).Scan(&id)
	return id, err
}

// Handler exposes the bootstrap endpoint.
type Handler struct {
	repo *Repository
	cfg  config.BootstrapConfig
	log  *logger.Logger
}

// NewHandler creates a bootstrap handler.
func NewHandler(repo *Repository, cfg config.BootstrapConfig, log *logger.Logger) *Handler {
	return &Handler{repo: repo, cfg: cfg, log: log}
}

func (h *Handler) Bootstrap(c *gin.Context) {
	token := h.cfg.GetSetupToken()
	supplied := c.GetHeader(SetupTokenHeader)
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(supplied)) != 1 {
		httpkit.Error(c, http.StatusForbidden, "invalid setup token", nil)
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", []string{err.Error()})
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", []string{err.Error()})
		return
	}

	exists, err := h.repo.HasUsers(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	if exists {
		httpkit.Error(c, http.StatusConflict, "application is already initialized", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if httpkit.HandleError(c, err) {
		return
	}

	id, err := h.repo.InsertUser(c.Request.Context(), req.Name, req.Email, hash)
	if httpkit.HandleError(c, err) {
		return
	}

	h.log.Info("first user bootstrapped", "user_id", id.String())
	httpkit.Created(c, gin.H{"id": id, "nome": req.Name})
}
