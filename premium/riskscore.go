package premium

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/cel-go/cel"
)

// DefaultRiskFormula blends the genetic score (0-5) and the normalized
// medical-history severity (0-1) with equal weight
const DefaultRiskFormula = `0.5 * (genetic_risk / 5.0) + 0.5 * severity`

// Calibration carries the fitted constants of the derived risk score.
// It ships in the artifact manifest alongside the models.
type Calibration struct {
	// ConditionWeights maps a single lower-cased condition to its severity
	ConditionWeights map[string]float64 `yaml:"condition_weights" json:"condition_weights"`

	// Normalizer divides the summed condition weights into [0, 1]
	Normalizer float64 `yaml:"normalizer" json:"normalizer"`

	// Formula is a CEL expression over genetic_risk and severity, both double
	Formula string `yaml:"formula" json:"formula"`
}

// DefaultCalibration returns the per-condition weights used when the model
// artifacts were fitted
func DefaultCalibration() Calibration {
	return Calibration{
		ConditionWeights: map[string]float64{
			"no disease":          0,
			"diabetes":            6,
			"high blood pressure": 6,
			"heart disease":       8,
			"thyroid":             5,
		},
		Normalizer: 14,
		Formula:    DefaultRiskFormula,
	}
}

// RiskScorer computes the derived risk feature from genetic risk and medical history
type RiskScorer struct {
	program  cel.Program
	severity map[string]float64 // medical history value -> normalized severity
}

// NewRiskScorer compiles the calibration formula and precomputes the
// severity of every known medical history value. The whole input domain is
// evaluated once so a formula that misbehaves fails here rather than per request.
func NewRiskScorer(cal Calibration) (*RiskScorer, error) {
	if cal.Normalizer <= 0 || math.IsNaN(cal.Normalizer) || math.IsInf(cal.Normalizer, 0) {
		return nil, fmt.Errorf("normalizer must be positive, got %v", cal.Normalizer)
	}

	severity := make(map[string]float64, len(MedicalHistories))
	for _, history := range MedicalHistories {
		total := 0.0
		for _, condition := range splitConditions(history) {
			w, ok := cal.ConditionWeights[condition]
			if !ok {
				return nil, fmt.Errorf("no severity weight for condition %q", condition)
			}
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("severity weight for %q must be a finite non-negative number", condition)
			}
			total += w
		}
		severity[history] = total / cal.Normalizer
	}

	formula := cal.Formula
	if strings.TrimSpace(formula) == "" {
		formula = DefaultRiskFormula
	}

	env, err := cel.NewEnv(
		cel.Variable("genetic_risk", cel.DoubleType),
		cel.Variable("severity", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(formula)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.DoubleType) {
		return nil, fmt.Errorf("formula must produce a double, got %s", ast.OutputType())
	}

	prog, err := env.Program(ast, cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	rs := &RiskScorer{program: prog, severity: severity}

	for genetic := MinGenetic; genetic <= MaxGenetic; genetic++ {
		for _, history := range MedicalHistories {
			if _, err := rs.Score(genetic, history); err != nil {
				return nil, fmt.Errorf("formula rejected genetic_risk=%d history=%q: %w", genetic, history, err)
			}
		}
	}

	return rs, nil
}

// Severity returns the normalized severity of a medical history value
func (rs *RiskScorer) Severity(history string) (float64, bool) {
	s, ok := rs.severity[history]
	return s, ok
}

// Score evaluates the calibration formula. It only looks at its two arguments.
func (rs *RiskScorer) Score(geneticRisk int, history string) (float64, error) {
	sev, ok := rs.severity[history]
	if !ok {
		return 0, invalidField(KeyMedicalHistory, "unrecognized value %q", history)
	}

	out, _, err := rs.program.Eval(map[string]any{
		"genetic_risk": float64(geneticRisk),
		"severity":     sev,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: risk formula: %v", ErrArithmeticAnomaly, err)
	}

	score, ok := out.Value().(float64)
	if !ok {
		return 0, fmt.Errorf("%w: risk formula returned %T", ErrArithmeticAnomaly, out.Value())
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("%w: risk formula returned %v", ErrArithmeticAnomaly, score)
	}
	return score, nil
}

// splitConditions breaks "Diabetes & Heart disease" into its lower-cased parts
func splitConditions(history string) []string {
	parts := strings.Split(history, "&")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(p)))
	}
	return out
}
