package premium

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision of every returned premium
const CurrencyPlaces = 2

// Predictor runs the full pipeline against one loaded ArtifactSet.
// It holds no mutable state and is safe for concurrent use.
type Predictor struct {
	set     *ArtifactSet
	encoder *Encoder
}

// NewPredictor binds a predictor to a loaded release
func NewPredictor(set *ArtifactSet) *Predictor {
	return &Predictor{
		set:     set,
		encoder: NewEncoder(set.Risk),
	}
}

// Artifacts returns the release the predictor applies
func (p *Predictor) Artifacts() *ArtifactSet {
	return p.set
}

// Encode exposes the encoder step on its own
func (p *Predictor) Encode(rec InputRecord) (FeatureVector, error) {
	return p.encoder.Encode(rec)
}

// Predict estimates the annual premium for rec
func (p *Predictor) Predict(rec InputRecord) (Prediction, error) {
	features, err := p.encoder.Encode(rec)
	if err != nil {
		return Prediction{}, err
	}

	art := p.set.Select(rec.Age)
	scaled := Scale(features, art.Scaler)

	raw := art.Model.Apply(scaled)
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return Prediction{}, fmt.Errorf("%w: segment %s produced %v", ErrArithmeticAnomaly, art.Segment, raw)
	}

	return finalize(raw, art), nil
}

// PredictMap parses a wire-form input mapping and predicts
func (p *Predictor) PredictMap(raw map[string]any) (Prediction, error) {
	rec, err := ParseInput(raw)
	if err != nil {
		return Prediction{}, err
	}
	return p.Predict(rec)
}

// finalize floors negative output at zero and rounds to currency precision
func finalize(raw float64, art *ModelArtifact) Prediction {
	pred := Prediction{
		Segment:         art.Segment,
		ArtifactVersion: art.Version,
	}
	if raw < 0 {
		pred.Amount = decimal.Zero.Round(CurrencyPlaces)
		pred.Clamped = true
		return pred
	}
	pred.Amount = decimal.NewFromFloat(raw).Round(CurrencyPlaces)
	return pred
}
