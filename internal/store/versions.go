package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ConfigVersion is one historical snapshot of a configuration.
type ConfigVersion struct {
	Version   int             `json:"version"`
	Config    json.RawMessage `json:"config"`
	Comment   string          `json:"comment,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListVersions returns the version history for a configuration, newest first.
// configType is "domain", "country" or "package".
func (s *Store) ListVersions(ctx context.Context, configType, configID string) ([]ConfigVersion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT version, config, COALESCE(comment, ''), created_at
		FROM config_versions
		WHERE config_type = $1 AND config_id = $2
		ORDER BY version DESC`,
		configType, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions for %s %q: %w", configType, configID, err)
	}
	defer rows.Close()

	var versions []ConfigVersion
	for rows.Next() {
		var v ConfigVersion
		if err := rows.Scan(&v.Version, &v.Config, &v.Comment, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// RestoreVersion makes the given historical version the active configuration.
// The restore itself is recorded as a new version.
func (s *Store) RestoreVersion(ctx context.Context, configType, configID string, version int) error {
	var config json.RawMessage
	err := s.pool.QueryRow(ctx, `
		SELECT config FROM config_versions
		WHERE config_type = $1 AND config_id = $2 AND version = $3`,
		configType, configID, version).Scan(&config)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %q version %d", ErrNotFound, configType, configID, version)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s %q version %d: %w", configType, configID, version, err)
	}

	table, ok := map[string]configTable{
		domainTable.versionType:  domainTable,
		countryTable.versionType: countryTable,
		packageTable.versionType: packageTable,
	}[configType]
	if !ok {
		return fmt.Errorf("unknown config type %q", configType)
	}

	comment := fmt.Sprintf("restored from version %d", version)
	return s.saveConfig(ctx, table, configID, config, comment)
}
