package premium

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresArtifactStore implements ArtifactStore and ArtifactPublisher
// backed by the artifact_releases and artifact_bundles tables
type PostgresArtifactStore struct {
	db *sql.DB
}

// NewPostgresArtifactStore creates a PostgreSQL-backed store
func NewPostgresArtifactStore(db *sql.DB) *PostgresArtifactStore {
	return &PostgresArtifactStore{db: db}
}

// LoadManifest returns the manifest of the active release
func (s *PostgresArtifactStore) LoadManifest(ctx context.Context) (*Manifest, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT manifest
		FROM artifact_releases
		WHERE active = true
	`).Scan(&raw)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no active artifact release")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active release: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// LoadBundle returns one bundle document of a release
func (s *PostgresArtifactStore) LoadBundle(ctx context.Context, version string, ref SegmentRef) ([]byte, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT b.document
		FROM artifact_bundles b
		JOIN artifact_releases r ON r.id = b.release_id
		WHERE r.version = $1 AND b.bundle = $2
	`, version, ref.Bundle).Scan(&doc)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bundle %s not found in release %s", ref.Bundle, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bundle: %w", err)
	}
	return doc, nil
}

// Publish inserts a new release with its bundles and activates it,
// deactivating the previous release in the same transaction
func (s *PostgresArtifactStore) Publish(ctx context.Context, m Manifest, documents map[string][]byte) error {
	manifestJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM artifact_releases WHERE version = $1)
	`, m.Version).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check release existence: %w", err)
	}
	if exists {
		return fmt.Errorf("release %s already exists", m.Version)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE artifact_releases
		SET active = false
		WHERE active = true
	`); err != nil {
		return fmt.Errorf("failed to deactivate previous release: %w", err)
	}

	releaseID := uuid.New()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO artifact_releases (id, version, manifest, active, created_at)
		VALUES ($1, $2, $3, true, NOW())
	`, releaseID, m.Version, string(manifestJSON)); err != nil {
		return fmt.Errorf("failed to insert release: %w", err)
	}

	for _, ref := range m.Segments {
		doc, ok := documents[ref.Bundle]
		if !ok {
			return fmt.Errorf("bundle %s missing from release %s", ref.Bundle, m.Version)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO artifact_bundles (release_id, bundle, document)
			VALUES ($1, $2, $3)
		`, releaseID, ref.Bundle, string(doc)); err != nil {
			return fmt.Errorf("failed to insert bundle %s: %w", ref.Bundle, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit release: %w", err)
	}
	return nil
}

// Release summarises a stored release
type Release struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ListReleases returns every stored release, newest first
func (s *PostgresArtifactStore) ListReleases(ctx context.Context) ([]Release, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, active, created_at
		FROM artifact_releases
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	defer rows.Close()

	var releases []Release
	for rows.Next() {
		var r Release
		if err := rows.Scan(&r.ID, &r.Version, &r.Active, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}
		releases = append(releases, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating releases: %w", err)
	}
	return releases, nil
}
