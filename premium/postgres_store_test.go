//go:build integration

package premium

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL container with the artifact tables
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "premium_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=test password=test dbname=premium_test sslmode=disable", host, port.Port())
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	migrationSQL, err := os.ReadFile("../migrations/000001_initial_schema.up.sql")
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		db.Close()
		container.Terminate(ctx)
	}
	return db, cleanup
}

func TestPostgresStore_PublishLoadRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresArtifactStore(db)

	if _, err := store.LoadManifest(ctx); err == nil {
		t.Fatal("LoadManifest() with no releases succeeded")
	}

	manifest, docs, err := NewFileArtifactStore(shippedArtifacts).ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if err := store.Publish(ctx, *manifest, docs); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	loaded, err := store.LoadManifest(ctx)
	if err != nil {
		t.Fatalf("LoadManifest() failed: %v", err)
	}
	if loaded.Version != manifest.Version || loaded.AgeThreshold != manifest.AgeThreshold {
		t.Errorf("LoadManifest() = %+v, want %+v", loaded, manifest)
	}
	if loaded.Calibration.Formula != manifest.Calibration.Formula {
		t.Errorf("formula = %q, want %q", loaded.Calibration.Formula, manifest.Calibration.Formula)
	}

	bundles := make(map[string]Bundle)
	for _, ref := range loaded.Segments {
		doc, err := store.LoadBundle(ctx, loaded.Version, ref)
		if err != nil {
			t.Fatalf("LoadBundle(%s) failed: %v", ref.Bundle, err)
		}
		var b Bundle
		if err := json.Unmarshal(doc, &b); err != nil {
			t.Fatalf("stored bundle %s is not valid JSON: %v", ref.Bundle, err)
		}
		bundles[ref.Name] = b
	}

	set, err := NewArtifactSet(*loaded, bundles)
	if err != nil {
		t.Fatalf("NewArtifactSet() from postgres failed: %v", err)
	}
	pred, err := NewPredictor(set).Predict(exampleRecord(55))
	if err != nil {
		t.Fatal(err)
	}
	if pred.Amount.StringFixed(CurrencyPlaces) != "12650.00" {
		t.Errorf("prediction = %s, want 12650.00", pred.Amount)
	}
}

func TestPostgresStore_PublishActivatesNewest(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresArtifactStore(db)

	manifest, docs, err := NewFileArtifactStore(shippedArtifacts).ReadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Publish(ctx, *manifest, docs); err != nil {
		t.Fatal(err)
	}

	if err := store.Publish(ctx, *manifest, docs); err == nil {
		t.Error("republishing an existing version succeeded")
	}

	next := *manifest
	next.Version = "2025.07.1"
	if err := store.Publish(ctx, next, docs); err != nil {
		t.Fatalf("Publish(next) failed: %v", err)
	}

	active, err := store.LoadManifest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active.Version != "2025.07.1" {
		t.Errorf("active version = %s, want 2025.07.1", active.Version)
	}

	releases, err := store.ListReleases(ctx)
	if err != nil {
		t.Fatalf("ListReleases() failed: %v", err)
	}
	if len(releases) != 2 {
		t.Fatalf("len(releases) = %d, want 2", len(releases))
	}
	activeCount := 0
	for _, r := range releases {
		if r.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("%d active releases, want 1", activeCount)
	}
}

func TestPostgresStore_PublishMissingDocumentRollsBack(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresArtifactStore(db)

	manifest, docs, err := NewFileArtifactStore(shippedArtifacts).ReadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	delete(docs, "older.json")

	if err := store.Publish(ctx, *manifest, docs); err == nil {
		t.Fatal("Publish() with a missing document succeeded")
	}

	releases, err := store.ListReleases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(releases) != 0 {
		t.Errorf("failed publish left %d releases behind", len(releases))
	}
}
