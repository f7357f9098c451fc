package premium

import (
	"fmt"
	"time"
)

// Manifest describes one artifact release: which bundles belong to it,
// where the segments split and how the derived risk score is calibrated
type Manifest struct {
	Version      string       `yaml:"version" json:"version"`
	AgeThreshold int          `yaml:"age_threshold" json:"age_threshold"`
	Calibration  Calibration  `yaml:"calibration" json:"calibration"`
	Segments     []SegmentRef `yaml:"segments" json:"segments"`
}

// SegmentRef points at the bundle document of one segment
type SegmentRef struct {
	Name   string `yaml:"name" json:"name"`
	Bundle string `yaml:"bundle" json:"bundle"`
}

// Bundle is the decoded per-segment document: model, scaler and the
// feature layout both were fitted against
type Bundle struct {
	Segment       string       `json:"segment"`
	Version       string       `json:"version"`
	SchemaVersion string       `json:"schema_version"`
	FeatureOrder  []string     `json:"feature_order"`
	Model         ModelSpec    `json:"model"`
	Scaler        ScalerParams `json:"scaler"`
}

// ModelArtifact is a validated, executable segment bundle
type ModelArtifact struct {
	Segment string
	Version string
	Kind    string
	Model   Model
	Scaler  ScalerParams
}

// ArtifactSet is the immutable result of loading a release.
// Nothing in it is mutated after NewArtifactSet returns.
type ArtifactSet struct {
	Version      string
	AgeThreshold int
	LoadedAt     time.Time
	Schema       *FeatureSchema
	Risk         *RiskScorer

	young *ModelArtifact
	older *ModelArtifact
}

// NewArtifactSet validates a manifest and its bundles against the encoder
// schema and compiles them. Every failure wraps ErrArtifactLoad.
func NewArtifactSet(m Manifest, bundles map[string]Bundle) (*ArtifactSet, error) {
	if m.Version == "" {
		return nil, artifactErrorf("manifest has no version")
	}
	if m.AgeThreshold <= MinAge || m.AgeThreshold > MaxAge {
		return nil, artifactErrorf("age threshold %d outside (%d, %d]", m.AgeThreshold, MinAge, MaxAge)
	}

	risk, err := NewRiskScorer(m.Calibration)
	if err != nil {
		return nil, artifactErrorf("calibration: %w", err)
	}

	set := &ArtifactSet{
		Version:      m.Version,
		AgeThreshold: m.AgeThreshold,
		LoadedAt:     time.Now(),
		Schema:       DefaultSchema,
		Risk:         risk,
	}

	declared := make(map[string]bool, len(m.Segments))
	for _, ref := range m.Segments {
		if declared[ref.Name] {
			return nil, artifactErrorf("segment %q declared twice", ref.Name)
		}
		declared[ref.Name] = true

		b, ok := bundles[ref.Name]
		if !ok {
			return nil, artifactErrorf("bundle for segment %q missing", ref.Name)
		}
		art, err := compileBundle(m.Version, ref.Name, b)
		if err != nil {
			return nil, err
		}

		switch ref.Name {
		case SegmentYoung:
			set.young = art
		case SegmentOlder:
			set.older = art
		default:
			return nil, artifactErrorf("unknown segment %q", ref.Name)
		}
	}

	if set.young == nil || set.older == nil {
		return nil, artifactErrorf("release must declare both %q and %q segments", SegmentYoung, SegmentOlder)
	}

	return set, nil
}

func compileBundle(version, segment string, b Bundle) (*ModelArtifact, error) {
	if b.Segment != segment {
		return nil, artifactErrorf("bundle declares segment %q, manifest expects %q", b.Segment, segment)
	}
	if b.Version != version {
		return nil, artifactErrorf("segment %q: bundle version %q does not match release %q", segment, b.Version, version)
	}
	if err := DefaultSchema.Matches(b.SchemaVersion, b.FeatureOrder); err != nil {
		return nil, artifactErrorf("segment %q: %w", segment, err)
	}
	if err := b.Scaler.Validate(DefaultSchema); err != nil {
		return nil, artifactErrorf("segment %q scaler: %w", segment, err)
	}
	model, err := b.Model.Build(DefaultSchema)
	if err != nil {
		return nil, artifactErrorf("segment %q model: %w", segment, err)
	}

	return &ModelArtifact{
		Segment: segment,
		Version: version,
		Kind:    b.Model.Kind,
		Model:   model,
		Scaler:  b.Scaler,
	}, nil
}

// Select routes an applicant to a segment artifact: below the threshold
// uses the young model, at or above it the older model
func (s *ArtifactSet) Select(age int) *ModelArtifact {
	if age < s.AgeThreshold {
		return s.young
	}
	return s.older
}

// Segments returns both artifacts, young first
func (s *ArtifactSet) Segments() []*ModelArtifact {
	return []*ModelArtifact{s.young, s.older}
}

// String summarises the release for logs
func (s *ArtifactSet) String() string {
	return fmt.Sprintf("release %s (schema %s, threshold %d, %s=%s, %s=%s)",
		s.Version, s.Schema.Version, s.AgeThreshold,
		s.young.Segment, s.young.Kind, s.older.Segment, s.older.Kind)
}
