package premium

import (
	"github.com/shopspring/decimal"
)

// InputRecord is the raw applicant profile as collected by a caller
type InputRecord struct {
	Age                int
	NumberOfDependants int
	IncomeLakhs        int
	GeneticalRisk      int
	InsurancePlan      string
	EmploymentStatus   string // may be empty
	Gender             string
	MaritalStatus      string
	BMICategory        string
	SmokingStatus      string
	Region             string
	MedicalHistory     string
}

// FeatureVector is an ordered numeric encoding of an InputRecord.
// Values line up position-for-position with Schema.
type FeatureVector struct {
	Schema *FeatureSchema
	Values []float64
}

// Get returns the value of a named feature
func (v FeatureVector) Get(name string) (float64, bool) {
	idx, ok := v.Schema.Index(name)
	if !ok {
		return 0, false
	}
	return v.Values[idx], true
}

// Clone returns a deep copy of the vector values (the schema is shared, it is immutable)
func (v FeatureVector) Clone() FeatureVector {
	values := make([]float64, len(v.Values))
	copy(values, v.Values)
	return FeatureVector{Schema: v.Schema, Values: values}
}

// Prediction is the terminal output of the pipeline
type Prediction struct {
	Amount          decimal.Decimal // annual premium, 2 decimal places, never negative
	Segment         string
	ArtifactVersion string
	Clamped         bool // raw model output was negative and floored at zero
}

// Float64 returns the amount as a float
func (p Prediction) Float64() float64 {
	f, _ := p.Amount.Float64()
	return f
}

// Segment names shipped with every artifact release
const (
	SegmentYoung = "young"
	SegmentOlder = "older"
)
