package premium

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest name inside an artifact directory
const ManifestFile = "manifest.yaml"

// FileArtifactStore reads a release from a directory holding manifest.yaml
// and one JSON document per segment
type FileArtifactStore struct {
	dir string
}

// NewFileArtifactStore creates a store rooted at dir
func NewFileArtifactStore(dir string) *FileArtifactStore {
	return &FileArtifactStore{dir: dir}
}

// Dir returns the root directory
func (s *FileArtifactStore) Dir() string {
	return s.dir
}

// LoadManifest decodes manifest.yaml, rejecting unknown keys
func (s *FileArtifactStore) LoadManifest(_ context.Context) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return DecodeManifestYAML(data)
}

// LoadBundle reads a bundle document. The version is checked later against
// the document's own version field.
func (s *FileArtifactStore) LoadBundle(_ context.Context, _ string, ref SegmentRef) ([]byte, error) {
	if !filepath.IsLocal(ref.Bundle) {
		return nil, fmt.Errorf("bundle path %q escapes artifact directory", ref.Bundle)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, ref.Bundle))
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle %s: %w", ref.Bundle, err)
	}
	return data, nil
}

// ReadAll loads the manifest and every referenced document, for publishing
// a directory release into another store
func (s *FileArtifactStore) ReadAll(ctx context.Context) (*Manifest, map[string][]byte, error) {
	m, err := s.LoadManifest(ctx)
	if err != nil {
		return nil, nil, err
	}
	docs := make(map[string][]byte, len(m.Segments))
	for _, ref := range m.Segments {
		doc, err := s.LoadBundle(ctx, m.Version, ref)
		if err != nil {
			return nil, nil, err
		}
		docs[ref.Bundle] = doc
	}
	return m, docs, nil
}

// DecodeManifestYAML parses a manifest document strictly
func DecodeManifestYAML(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
