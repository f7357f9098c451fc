package premium

import (
	"context"
	"fmt"
	"sync"
)

// ArtifactStore gives read access to the active artifact release
type ArtifactStore interface {
	// LoadManifest returns the manifest of the active release
	LoadManifest(ctx context.Context) (*Manifest, error)

	// LoadBundle returns the raw JSON document of one segment bundle of
	// the given release version
	LoadBundle(ctx context.Context, version string, ref SegmentRef) ([]byte, error)
}

// ArtifactPublisher stores a new release and makes it the active one
type ArtifactPublisher interface {
	Publish(ctx context.Context, m Manifest, documents map[string][]byte) error
}

// InMemoryArtifactStore keeps releases in memory. Used in tests and for
// embedding a release directly in a binary.
type InMemoryArtifactStore struct {
	releases map[string]*memRelease
	active   string
	mu       sync.RWMutex
}

type memRelease struct {
	manifest  Manifest
	documents map[string][]byte // bundle name -> document
}

// NewInMemoryArtifactStore creates an empty store
func NewInMemoryArtifactStore() *InMemoryArtifactStore {
	return &InMemoryArtifactStore{
		releases: make(map[string]*memRelease),
	}
}

// Publish adds a release and activates it. Versions are immutable once published.
func (s *InMemoryArtifactStore) Publish(_ context.Context, m Manifest, documents map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Version == "" {
		return fmt.Errorf("release has no version")
	}
	if _, exists := s.releases[m.Version]; exists {
		return fmt.Errorf("release %s already exists", m.Version)
	}

	docs := make(map[string][]byte, len(documents))
	for name, doc := range documents {
		docs[name] = append([]byte(nil), doc...)
	}
	s.releases[m.Version] = &memRelease{manifest: m, documents: docs}
	s.active = m.Version
	return nil
}

// LoadManifest returns the active release manifest
func (s *InMemoryArtifactStore) LoadManifest(_ context.Context) (*Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rel, ok := s.releases[s.active]
	if !ok {
		return nil, fmt.Errorf("no active release")
	}
	m := rel.manifest
	return &m, nil
}

// LoadBundle returns a copy of a bundle document
func (s *InMemoryArtifactStore) LoadBundle(_ context.Context, version string, ref SegmentRef) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rel, ok := s.releases[version]
	if !ok {
		return nil, fmt.Errorf("release %s not found", version)
	}
	doc, ok := rel.documents[ref.Bundle]
	if !ok {
		return nil, fmt.Errorf("bundle %s not found in release %s", ref.Bundle, version)
	}
	return append([]byte(nil), doc...), nil
}
