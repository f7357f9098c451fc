package premium

import (
	"context"
	"encoding/json"
	"testing"
)

const shippedArtifacts = "../artifacts"

// loadShippedRelease reads the release checked in under artifacts/
func loadShippedRelease(t *testing.T) (Manifest, map[string]Bundle) {
	t.Helper()

	m, docs, err := NewFileArtifactStore(shippedArtifacts).ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}

	bundles := make(map[string]Bundle, len(m.Segments))
	for _, ref := range m.Segments {
		var b Bundle
		if err := json.Unmarshal(docs[ref.Bundle], &b); err != nil {
			t.Fatalf("failed to decode %s: %v", ref.Bundle, err)
		}
		bundles[ref.Name] = b
	}
	return *m, bundles
}

func shippedSet(t *testing.T) *ArtifactSet {
	t.Helper()
	m, bundles := loadShippedRelease(t)
	set, err := NewArtifactSet(m, bundles)
	if err != nil {
		t.Fatalf("NewArtifactSet() failed: %v", err)
	}
	return set
}

func exampleRecord(age int) InputRecord {
	return InputRecord{
		Age:                age,
		NumberOfDependants: 0,
		IncomeLakhs:        10,
		GeneticalRisk:      2,
		InsurancePlan:      "Silver",
		EmploymentStatus:   "Salaried",
		Gender:             "Male",
		MaritalStatus:      "Unmarried",
		BMICategory:        "Normal",
		SmokingStatus:      "No Smoking",
		Region:             "Northeast",
		MedicalHistory:     "No Disease",
	}
}

func defaultScorer(t *testing.T) *RiskScorer {
	t.Helper()
	rs, err := NewRiskScorer(DefaultCalibration())
	if err != nil {
		t.Fatalf("NewRiskScorer() failed: %v", err)
	}
	return rs
}

// linearBundle builds a minimal valid linear bundle for segment
func linearBundle(segment string, intercept float64, coefficients map[string]float64) Bundle {
	return Bundle{
		Segment:       segment,
		Version:       "test",
		SchemaVersion: SchemaVersion,
		FeatureOrder:  append([]string(nil), DefaultSchema.Names...),
		Model: ModelSpec{
			Kind:         ModelLinear,
			Intercept:    intercept,
			Coefficients: coefficients,
		},
		Scaler: ScalerParams{Kind: ScalerMinMax, Features: map[string]FeatureScale{}},
	}
}

func testManifest() Manifest {
	return Manifest{
		Version:      "test",
		AgeThreshold: 40,
		Calibration:  DefaultCalibration(),
		Segments: []SegmentRef{
			{Name: SegmentYoung, Bundle: "young.json"},
			{Name: SegmentOlder, Bundle: "older.json"},
		},
	}
}
