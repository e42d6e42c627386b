// Package automation implements the outbound-messaging automation: a
// single-shot trigger that runs after lead creation, plus the caller-invoked
// manual send path. The automatic trigger is best-effort; its caller logs and
// discards failures so they never affect the lead-creation response.
package automation

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
)

// settingsSlug keys the single configuration row for this automation.
const settingsSlug = "whatsapp-automation"

// ErrNotConfigured is returned when no settings row exists.
var ErrNotConfigured = errors.New("automation settings not configured")

// Step is one entry of the configured message flow.
type Step struct {
	Message      string  `json:"message"`
	DelaySeconds float64 `json:"delay_seconds"`
	Active       bool    `json:"active"`
}

// Settings is the messaging-automation configuration. It is loaded fresh on
// every trigger invocation, never cached.
type Settings struct {
	Enabled      bool   `json:"enabled"`
	BaseURL      string `json:"base_url"`
	SessionID    string `json:"session_id"`
	APIKey       string `json:"api_key"`
	StatusOnSend string `json:"status_on_send"`
	MessageFlow  []Step `json:"message_flow"`
}

// DB is the subset of pgxpool.Pool used by the settings repository.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SettingsRepository loads automation settings from storage.
type SettingsRepository struct {
	db DB
}

// NewSettingsRepository creates a settings repository.
func NewSettingsRepository(db DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Load reads the configuration row. Returns ErrNotConfigured when absent.
func (r *SettingsRepository) Load(ctx context.Context) (Settings, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `
		SELECT config
		FROM automation_settings
		WHERE slug = $1
	`, settingsSlug).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, ErrNotConfigured
	}
	if err != nil {
		return Settings{}, err
	}

	var settings Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Settings{}, err
	}

	return settings, nil
}
