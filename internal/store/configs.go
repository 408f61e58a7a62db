package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pricewatch/competitor-price-watcher/internal/models"
)

// configTable describes one of the three keyed configuration tables; the
// CRUD below is identical apart from the table and key column names.
type configTable struct {
	table       string
	keyColumn   string
	versionType string
}

var (
	domainTable  = configTable{table: "domain_configs", keyColumn: "domain", versionType: "domain"}
	countryTable = configTable{table: "country_configs", keyColumn: "country_code", versionType: "country"}
	packageTable = configTable{table: "package_configs", keyColumn: "package_id", versionType: "package"}
)

// DomainConfig loads and validates the configuration for a domain.
func (s *Store) DomainConfig(ctx context.Context, domain string) (*models.DomainConfig, error) {
	raw, err := s.rawConfig(ctx, domainTable, domain)
	if err != nil {
		return nil, err
	}
	return models.ParseDomainConfig(domain, raw)
}

// CountryConfig loads and validates the configuration for a country code.
func (s *Store) CountryConfig(ctx context.Context, code string) (*models.CountryConfig, error) {
	raw, err := s.rawConfig(ctx, countryTable, code)
	if err != nil {
		return nil, err
	}
	return models.ParseCountryConfig(code, raw)
}

// PackageConfig loads and validates a shipping package configuration.
func (s *Store) PackageConfig(ctx context.Context, id string) (*models.PackageConfig, error) {
	raw, err := s.rawConfig(ctx, packageTable, id)
	if err != nil {
		return nil, err
	}
	return models.ParsePackageConfig(id, raw)
}

// RawDomainConfig returns the stored configuration JSON without validation.
func (s *Store) RawDomainConfig(ctx context.Context, domain string) (json.RawMessage, error) {
	return s.rawConfig(ctx, domainTable, domain)
}

func (s *Store) RawCountryConfig(ctx context.Context, code string) (json.RawMessage, error) {
	return s.rawConfig(ctx, countryTable, code)
}

func (s *Store) RawPackageConfig(ctx context.Context, id string) (json.RawMessage, error) {
	return s.rawConfig(ctx, packageTable, id)
}

// SaveDomainConfig upserts a domain configuration and records a version.
func (s *Store) SaveDomainConfig(ctx context.Context, domain string, config json.RawMessage) error {
	return s.saveConfig(ctx, domainTable, domain, config, "")
}

func (s *Store) SaveCountryConfig(ctx context.Context, code string, config json.RawMessage) error {
	return s.saveConfig(ctx, countryTable, code, config, "")
}

func (s *Store) SavePackageConfig(ctx context.Context, id string, config json.RawMessage) error {
	return s.saveConfig(ctx, packageTable, id, config, "")
}

func (s *Store) DeleteDomainConfig(ctx context.Context, domain string) error {
	return s.deleteConfig(ctx, domainTable, domain)
}

func (s *Store) DeleteCountryConfig(ctx context.Context, code string) error {
	return s.deleteConfig(ctx, countryTable, code)
}

func (s *Store) DeletePackageConfig(ctx context.Context, id string) error {
	return s.deleteConfig(ctx, packageTable, id)
}

// ListDomains returns all configured domain names.
func (s *Store) ListDomains(ctx context.Context) ([]string, error) {
	return s.listKeys(ctx, domainTable)
}

// ListPackages returns every package configuration keyed by package id.
func (s *Store) ListPackages(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, `SELECT package_id, config FROM package_configs ORDER BY package_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	packages := make(map[string]json.RawMessage)
	for rows.Next() {
		var id string
		var config json.RawMessage
		if err := rows.Scan(&id, &config); err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		packages[id] = config
	}
	return packages, rows.Err()
}

func (s *Store) rawConfig(ctx context.Context, t configTable, key string) (json.RawMessage, error) {
	query := fmt.Sprintf(`SELECT config FROM %s WHERE %s = $1`, t.table, t.keyColumn)

	var config json.RawMessage
	err := s.pool.QueryRow(ctx, query, key).Scan(&config)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, t.versionType, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s config %q: %w", t.versionType, key, err)
	}
	return config, nil
}

func (s *Store) saveConfig(ctx context.Context, t configTable, key string, config json.RawMessage, comment string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	upsert := fmt.Sprintf(`
		INSERT INTO %s (%s, config) VALUES ($1, $2)
		ON CONFLICT (%s) DO UPDATE SET config = EXCLUDED.config, updated_at = NOW()`,
		t.table, t.keyColumn, t.keyColumn)
	if _, err := tx.Exec(ctx, upsert, key, config); err != nil {
		return fmt.Errorf("failed to save %s config %q: %w", t.versionType, key, err)
	}

	version := `
		INSERT INTO config_versions (config_type, config_id, config, version, comment)
		SELECT $1, $2, $3, COALESCE(MAX(version), 0) + 1, NULLIF($4, '')
		FROM config_versions WHERE config_type = $1 AND config_id = $2`
	if _, err := tx.Exec(ctx, version, t.versionType, key, config, comment); err != nil {
		return fmt.Errorf("failed to record %s config version for %q: %w", t.versionType, key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) deleteConfig(ctx context.Context, t configTable, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, t.table, t.keyColumn)
	tag, err := s.pool.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s config %q: %w", t.versionType, key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %q", ErrNotFound, t.versionType, key)
	}
	return nil
}

func (s *Store) listKeys(ctx context.Context, t configTable) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`, t.keyColumn, t.table, t.keyColumn)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s configs: %w", t.versionType, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan %s key: %w", t.versionType, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
