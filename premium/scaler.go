package premium

import (
	"fmt"
	"math"
	"slices"
)

// Scaler kinds
const (
	ScalerMinMax   = "minmax"
	ScalerStandard = "standard"
)

// FeatureScale holds the fitted parameters of one scaled feature.
// Min/Max are used by minmax scalers, Mean/Std by standard scalers.
type FeatureScale struct {
	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Mean float64 `json:"mean,omitempty"`
	Std  float64 `json:"std,omitempty"`
}

// ScalerParams is the scaler fitted alongside one segment's model
type ScalerParams struct {
	Kind     string                  `json:"kind"`
	Features map[string]FeatureScale `json:"features"`
}

// Validate checks the parameters against the feature schema
func (p ScalerParams) Validate(schema *FeatureSchema) error {
	if p.Kind != ScalerMinMax && p.Kind != ScalerStandard {
		return fmt.Errorf("unknown scaler kind %q", p.Kind)
	}
	for name, fs := range p.Features {
		if !slices.Contains(ContinuousFeatures, name) {
			return fmt.Errorf("feature %q cannot be scaled", name)
		}
		if _, ok := schema.Index(name); !ok {
			return fmt.Errorf("scaled feature %q not in schema", name)
		}
		switch p.Kind {
		case ScalerMinMax:
			if !finite(fs.Min, fs.Max) || fs.Max <= fs.Min {
				return fmt.Errorf("feature %q: degenerate range [%v, %v]", name, fs.Min, fs.Max)
			}
		case ScalerStandard:
			if !finite(fs.Mean, fs.Std) || fs.Std <= 0 {
				return fmt.Errorf("feature %q: invalid mean/std %v/%v", name, fs.Mean, fs.Std)
			}
		}
	}
	return nil
}

// Scale applies the fitted transform to the designated features and leaves
// the rest untouched. The input vector is not modified.
func Scale(v FeatureVector, p ScalerParams) FeatureVector {
	out := v.Clone()
	for name, fs := range p.Features {
		idx, ok := v.Schema.Index(name)
		if !ok {
			continue
		}
		x := out.Values[idx]
		switch p.Kind {
		case ScalerMinMax:
			out.Values[idx] = (x - fs.Min) / (fs.Max - fs.Min)
		case ScalerStandard:
			out.Values[idx] = (x - fs.Mean) / fs.Std
		}
	}
	return out
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
