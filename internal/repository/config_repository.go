package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/soragemix/soragemix/internal/model"
)

// ErrConfigNotFound is returned when a configuration key does not exist.
var ErrConfigNotFound = errors.New("config key not found")

// ConfigRepo stores key/value settings in the system_config table. The
// Gemini API key lives here under model.ConfigKeyAPIKey so admins can
// rotate it at runtime without redeploying.
type ConfigRepo struct {
	db *sql.DB
}

func NewConfigRepo(db *sql.DB) *ConfigRepo {
	return &ConfigRepo{db: db}
}

// Get returns the value for a key or ErrConfigNotFound.
func (r *ConfigRepo) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx,
		"SELECT config_value FROM system_config WHERE config_key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrConfigNotFound
	}
	return v, err
}

// Set upserts a key/value pair.
func (r *ConfigRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO system_config (config_key, config_value) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE config_value = VALUES(config_value)`,
		key, value)
	return err
}

// List returns every configuration row ordered by key.
func (r *ConfigRepo) List(ctx context.Context) ([]model.SystemConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT config_key, config_value, updated_at FROM system_config ORDER BY config_key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SystemConfig
	for rows.Next() {
		var c model.SystemConfig
		if err := rows.Scan(&c.Key, &c.Value, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a key. Missing keys yield ErrConfigNotFound.
func (r *ConfigRepo) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM system_config WHERE config_key = ?", key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConfigNotFound
	}
	return nil
}
