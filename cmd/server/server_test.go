//go:build integration

package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/liamcoop/premium/premium"
)

// setupTestDB creates a PostgreSQL testcontainer and runs migrations
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("postgres://postgres:password@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	migrationSQL, err := os.ReadFile("../../migrations/000001_initial_schema.up.sql")
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}

	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		db.Close()
		postgres.Terminate(ctx)
	}

	return db, cleanup
}

// publishDir copies the artifact directory into postgres as the active release
func publishDir(t *testing.T, store *premium.PostgresArtifactStore, dir string) *premium.Manifest {
	t.Helper()
	ctx := context.Background()

	manifest, docs, err := premium.NewFileArtifactStore(dir).ReadAll(ctx)
	if err != nil {
		t.Fatalf("Failed to read artifacts: %v", err)
	}
	if err := store.Publish(ctx, *manifest, docs); err != nil {
		t.Fatalf("Failed to publish release: %v", err)
	}
	return manifest
}

// TestEndToEnd_PublishAndPredict covers the postgres-backed flow:
// 1. Publish the shipped release
// 2. Start a server on the active release
// 3. Predict both segments
// 4. Check health pings the database
func TestEndToEnd_PublishAndPredict(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := premium.NewPostgresArtifactStore(db)

	t.Log("Step 1: Publishing release...")
	manifest := publishDir(t, store, "../../artifacts")

	t.Log("Step 2: Starting server...")
	server, err := NewServerWithStore(context.Background(), store, db, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	ts := httptest.NewServer(server)
	defer ts.Close()

	t.Log("Step 3: Predicting...")
	cases := []struct {
		age     int
		segment string
		premium string
	}{
		{30, premium.SegmentYoung, "6677.79"},
		{55, premium.SegmentOlder, "12650.00"},
	}
	for _, c := range cases {
		input := map[string]any{
			"Age":                  c.age,
			"Number of Dependants": 0,
			"Income in Lakhs":      10,
			"Genetical Risk":       2,
			"Insurance Plan":       "Silver",
			"Employment Status":    "Salaried",
			"Gender":               "Male",
			"Marital Status":       "Unmarried",
			"BMI Category":         "Normal",
			"Smoking Status":       "No Smoking",
			"Region":               "Northeast",
			"Medical History":      "No Disease",
		}
		body, _ := json.Marshal(input)

		resp, err := http.Post(ts.URL+"/api/v1/predict", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("Predict request failed: %v", err)
		}

		var result PredictResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		if result.Segment != c.segment {
			t.Errorf("Age %d: expected segment %s, got %s", c.age, c.segment, result.Segment)
		}
		if result.Premium.String() != c.premium {
			t.Errorf("Age %d: expected premium %s, got %s", c.age, c.premium, result.Premium)
		}
		if result.ArtifactVersion != manifest.Version {
			t.Errorf("Expected artifact version %s, got %s", manifest.Version, result.ArtifactVersion)
		}
	}

	t.Log("Step 4: Checking health...")
	resp, err := http.Get(ts.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestNewServer_NoActiveRelease(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewServerWithStore(context.Background(), premium.NewPostgresArtifactStore(db), db, time.Second)
	if err == nil {
		t.Fatal("Expected an error with no published release")
	}
}
