package segmentengine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/liamcoop/premium/premium"
)

// Manager owns the process-wide artifact release and hands out predictors
// bound to it. The release is loaded once; a failed load is final.
type Manager struct {
	store  premium.ArtifactStore
	cache  premium.ArtifactCache
	logger *slog.Logger
}

// NewManager creates a manager reading from store
func NewManager(store premium.ArtifactStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		cache:  premium.NewInMemoryArtifactCache(),
		logger: logger,
	}
}

// Load reads, validates and compiles the active release on first call.
// Later calls return the same release, or the same error.
func (m *Manager) Load(ctx context.Context) (*premium.ArtifactSet, error) {
	return m.cache.GetOrLoad(func() (*premium.ArtifactSet, error) {
		start := time.Now()
		set, err := LoadRelease(ctx, m.store)
		if err != nil {
			m.logger.Error("artifact load failed", "error", err)
			return nil, err
		}
		m.logger.Info("artifacts loaded",
			"version", set.Version,
			"threshold", set.AgeThreshold,
			"schema", set.Schema.Version,
			"duration", time.Since(start).String(),
		)
		return set, nil
	})
}

// Predictor returns a predictor for the loaded release
func (m *Manager) Predictor() (*premium.Predictor, error) {
	set, ok := m.cache.Get()
	if !ok {
		return nil, fmt.Errorf("%w: artifacts not loaded", premium.ErrArtifactLoad)
	}
	return premium.NewPredictor(set), nil
}

// Loaded reports whether a release is available
func (m *Manager) Loaded() bool {
	return m.cache.IsValid()
}

// LoadRelease fetches the active manifest and its bundles from store and
// builds an ArtifactSet. Every failure wraps premium.ErrArtifactLoad.
func LoadRelease(ctx context.Context, store premium.ArtifactStore) (*premium.ArtifactSet, error) {
	manifest, err := store.LoadManifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", premium.ErrArtifactLoad, err)
	}
	if err := ValidateManifest(manifest); err != nil {
		return nil, fmt.Errorf("%w: manifest: %w", premium.ErrArtifactLoad, err)
	}

	bundles := make(map[string]premium.Bundle, len(manifest.Segments))
	for _, ref := range manifest.Segments {
		doc, err := store.LoadBundle(ctx, manifest.Version, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %s: %w", premium.ErrArtifactLoad, ref.Name, err)
		}
		b, err := DecodeBundle(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %s: %w", premium.ErrArtifactLoad, ref.Name, err)
		}
		bundles[ref.Name] = b
	}

	return premium.NewArtifactSet(*manifest, bundles)
}
