package premium

import "fmt"

// SchemaVersion identifies the feature layout produced by the encoder.
// Any change to the order or number of features must bump this value;
// artifacts declaring another version are rejected at load.
const SchemaVersion = "v1"

// Allowed category values, in declaration order
var (
	Genders            = []string{"Male", "Female"}
	MaritalStatuses    = []string{"Married", "Unmarried"}
	EmploymentStatuses = []string{"Salaried", "Self-Employed", "Freelancer"}
	Regions            = []string{"Northeast", "Northwest", "Southeast", "Southwest"}
	InsurancePlans     = []string{"Bronze", "Silver", "Gold"}
	MedicalHistories   = []string{
		"No Disease",
		"Diabetes",
		"High blood pressure",
		"Diabetes & High blood pressure",
		"Thyroid",
		"Heart disease",
		"High blood pressure & Heart disease",
		"Diabetes & Thyroid",
		"Diabetes & Heart disease",
	}
)

// Ordinal tables, ordered by increasing assumed risk
var (
	BMIOrdinal = map[string]float64{
		"Normal":      0,
		"Underweight": 1,
		"Overweight":  2,
		"Obesity":     3,
	}
	SmokingOrdinal = map[string]float64{
		"No Smoking": 0,
		"Occasional": 1,
		"Regular":    2,
	}
)

// Names of the numeric and ordinal positions
const (
	FeatureAge                 = "age"
	FeatureDependants          = "number_of_dependants"
	FeatureIncome              = "income_lakhs"
	FeatureGeneticalRisk       = "genetical_risk"
	FeatureNormalizedRiskScore = "normalized_risk_score"
	FeatureBMICategory         = "bmi_category"
	FeatureSmokingStatus       = "smoking_status"
)

// ContinuousFeatures lists the features an artifact may designate as scaled
var ContinuousFeatures = []string{
	FeatureAge,
	FeatureDependants,
	FeatureIncome,
	FeatureGeneticalRisk,
	FeatureNormalizedRiskScore,
}

// FeatureSchema is the ordered list of feature names with an index for lookups
type FeatureSchema struct {
	Version string
	Names   []string
	index   map[string]int
}

// NewFeatureSchema builds a schema from an ordered name list, rejecting duplicates
func NewFeatureSchema(version string, names []string) (*FeatureSchema, error) {
	index := make(map[string]int, len(names))
	for i, name := range names {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate feature %q", name)
		}
		index[name] = i
	}
	copied := make([]string, len(names))
	copy(copied, names)
	return &FeatureSchema{Version: version, Names: copied, index: index}, nil
}

// Len returns the number of positions
func (s *FeatureSchema) Len() int {
	return len(s.Names)
}

// Index returns the position of a feature
func (s *FeatureSchema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Matches reports whether other declares exactly the same version and order
func (s *FeatureSchema) Matches(version string, names []string) error {
	if version != s.Version {
		return fmt.Errorf("schema version %q does not match encoder version %q", version, s.Version)
	}
	if len(names) != len(s.Names) {
		return fmt.Errorf("feature count %d does not match encoder count %d", len(names), len(s.Names))
	}
	for i, name := range names {
		if s.Names[i] != name {
			return fmt.Errorf("feature %d is %q, encoder expects %q", i, name, s.Names[i])
		}
	}
	return nil
}

func indicatorName(prefix, value string) string {
	return prefix + "_" + value
}

// DefaultSchema is the layout the encoder assembles
var DefaultSchema = mustDefaultSchema()

func mustDefaultSchema() *FeatureSchema {
	names := []string{
		FeatureAge,
		FeatureDependants,
		FeatureIncome,
		FeatureGeneticalRisk,
		FeatureNormalizedRiskScore,
		FeatureBMICategory,
		FeatureSmokingStatus,
	}
	groups := []struct {
		prefix string
		values []string
	}{
		{"gender", Genders},
		{"marital_status", MaritalStatuses},
		{"employment_status", EmploymentStatuses},
		{"region", Regions},
		{"insurance_plan", InsurancePlans},
		{"medical_history", MedicalHistories},
	}
	for _, g := range groups {
		for _, v := range g.values {
			names = append(names, indicatorName(g.prefix, v))
		}
	}

	schema, err := NewFeatureSchema(SchemaVersion, names)
	if err != nil {
		panic(err)
	}
	return schema
}
