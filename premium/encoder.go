package premium

// Encoder turns an InputRecord into a FeatureVector laid out by its schema
type Encoder struct {
	schema *FeatureSchema
	risk   *RiskScorer
}

// NewEncoder creates an encoder for the default schema
func NewEncoder(risk *RiskScorer) *Encoder {
	return &Encoder{schema: DefaultSchema, risk: risk}
}

// Schema returns the layout produced by Encode
func (e *Encoder) Schema() *FeatureSchema {
	return e.schema
}

// Encode validates the record and assembles its features.
// Any domain violation is reported as an InputError; nothing is clamped.
func (e *Encoder) Encode(rec InputRecord) (FeatureVector, error) {
	if err := rec.Validate(); err != nil {
		return FeatureVector{}, err
	}

	riskScore, err := e.risk.Score(rec.GeneticalRisk, rec.MedicalHistory)
	if err != nil {
		return FeatureVector{}, err
	}

	values := make([]float64, e.schema.Len())
	set := func(name string, v float64) {
		// every name written here exists in DefaultSchema
		idx, _ := e.schema.Index(name)
		values[idx] = v
	}

	set(FeatureAge, float64(rec.Age))
	set(FeatureDependants, float64(rec.NumberOfDependants))
	set(FeatureIncome, float64(rec.IncomeLakhs))
	set(FeatureGeneticalRisk, float64(rec.GeneticalRisk))
	set(FeatureNormalizedRiskScore, riskScore)
	set(FeatureBMICategory, BMIOrdinal[rec.BMICategory])
	set(FeatureSmokingStatus, SmokingOrdinal[rec.SmokingStatus])

	set(indicatorName("gender", rec.Gender), 1)
	set(indicatorName("marital_status", rec.MaritalStatus), 1)
	// empty employment status leaves all employment indicators at zero
	if rec.EmploymentStatus != "" {
		set(indicatorName("employment_status", rec.EmploymentStatus), 1)
	}
	set(indicatorName("region", rec.Region), 1)
	set(indicatorName("insurance_plan", rec.InsurancePlan), 1)
	set(indicatorName("medical_history", rec.MedicalHistory), 1)

	return FeatureVector{Schema: e.schema, Values: values}, nil
}
