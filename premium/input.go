package premium

import (
	"encoding/json"
	"math"
	"slices"
	"sort"
)

// Wire keys of the input mapping
const (
	KeyAge              = "Age"
	KeyDependants       = "Number of Dependants"
	KeyIncome           = "Income in Lakhs"
	KeyGeneticalRisk    = "Genetical Risk"
	KeyInsurancePlan    = "Insurance Plan"
	KeyEmploymentStatus = "Employment Status"
	KeyGender           = "Gender"
	KeyMaritalStatus    = "Marital Status"
	KeyBMICategory      = "BMI Category"
	KeySmokingStatus    = "Smoking Status"
	KeyRegion           = "Region"
	KeyMedicalHistory   = "Medical History"
)

// InputKeys lists every required key
var InputKeys = []string{
	KeyAge,
	KeyDependants,
	KeyIncome,
	KeyGeneticalRisk,
	KeyInsurancePlan,
	KeyEmploymentStatus,
	KeyGender,
	KeyMaritalStatus,
	KeyBMICategory,
	KeySmokingStatus,
	KeyRegion,
	KeyMedicalHistory,
}

// Declared numeric ranges (inclusive)
const (
	MinAge        = 18
	MaxAge        = 100
	MinDependants = 0
	MaxDependants = 20
	MinIncome     = 0
	MaxIncome     = 200
	MinGenetic    = 0
	MaxGenetic    = 5
)

// ParseInput converts a field-name → value mapping into an InputRecord.
// All twelve keys are required and no other key is accepted. Numeric fields
// must be integral; enum fields must be strings. Domain checks on the values
// themselves happen in Validate.
func ParseInput(raw map[string]any) (InputRecord, error) {
	var rec InputRecord

	if raw == nil {
		return rec, invalidField("input", "no fields supplied")
	}

	var unknown []string
	for key := range raw {
		if !slices.Contains(InputKeys, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return rec, invalidField(unknown[0], "unknown field")
	}

	ints := []struct {
		key string
		dst *int
	}{
		{KeyAge, &rec.Age},
		{KeyDependants, &rec.NumberOfDependants},
		{KeyIncome, &rec.IncomeLakhs},
		{KeyGeneticalRisk, &rec.GeneticalRisk},
	}
	for _, f := range ints {
		v, ok := raw[f.key]
		if !ok {
			return rec, invalidField(f.key, "missing")
		}
		n, err := toInt(f.key, v)
		if err != nil {
			return rec, err
		}
		*f.dst = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{KeyInsurancePlan, &rec.InsurancePlan},
		{KeyEmploymentStatus, &rec.EmploymentStatus},
		{KeyGender, &rec.Gender},
		{KeyMaritalStatus, &rec.MaritalStatus},
		{KeyBMICategory, &rec.BMICategory},
		{KeySmokingStatus, &rec.SmokingStatus},
		{KeyRegion, &rec.Region},
		{KeyMedicalHistory, &rec.MedicalHistory},
	}
	for _, f := range strs {
		v, ok := raw[f.key]
		if !ok {
			return rec, invalidField(f.key, "missing")
		}
		s, isString := v.(string)
		if !isString {
			return rec, invalidField(f.key, "expected a string, got %T", v)
		}
		*f.dst = s
	}

	return rec, nil
}

func toInt(key string, v any) (int, error) {
	var f float64
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		parsed, err := n.Float64()
		if err != nil {
			return 0, invalidField(key, "not a number: %q", n.String())
		}
		f = parsed
	default:
		return 0, invalidField(key, "expected an integer, got %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, invalidField(key, "expected an integer, got %v", f)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, invalidField(key, "out of range: %v", f)
	}
	return int(f), nil
}

// Validate re-asserts the declared domain of every field
func (r InputRecord) Validate() error {
	ranges := []struct {
		key      string
		value    int
		min, max int
	}{
		{KeyAge, r.Age, MinAge, MaxAge},
		{KeyDependants, r.NumberOfDependants, MinDependants, MaxDependants},
		{KeyIncome, r.IncomeLakhs, MinIncome, MaxIncome},
		{KeyGeneticalRisk, r.GeneticalRisk, MinGenetic, MaxGenetic},
	}
	for _, rg := range ranges {
		if rg.value < rg.min || rg.value > rg.max {
			return invalidField(rg.key, "%d outside [%d, %d]", rg.value, rg.min, rg.max)
		}
	}

	enums := []struct {
		key     string
		value   string
		allowed []string
	}{
		{KeyInsurancePlan, r.InsurancePlan, InsurancePlans},
		{KeyGender, r.Gender, Genders},
		{KeyMaritalStatus, r.MaritalStatus, MaritalStatuses},
		{KeyRegion, r.Region, Regions},
		{KeyMedicalHistory, r.MedicalHistory, MedicalHistories},
	}
	for _, e := range enums {
		if !slices.Contains(e.allowed, e.value) {
			return invalidField(e.key, "unrecognized value %q", e.value)
		}
	}

	if r.EmploymentStatus != "" && !slices.Contains(EmploymentStatuses, r.EmploymentStatus) {
		return invalidField(KeyEmploymentStatus, "unrecognized value %q", r.EmploymentStatus)
	}
	if _, ok := BMIOrdinal[r.BMICategory]; !ok {
		return invalidField(KeyBMICategory, "unrecognized value %q", r.BMICategory)
	}
	if _, ok := SmokingOrdinal[r.SmokingStatus]; !ok {
		return invalidField(KeySmokingStatus, "unrecognized value %q", r.SmokingStatus)
	}

	return nil
}

// ToMap renders the record in wire form
func (r InputRecord) ToMap() map[string]any {
	return map[string]any{
		KeyAge:              r.Age,
		KeyDependants:       r.NumberOfDependants,
		KeyIncome:           r.IncomeLakhs,
		KeyGeneticalRisk:    r.GeneticalRisk,
		KeyInsurancePlan:    r.InsurancePlan,
		KeyEmploymentStatus: r.EmploymentStatus,
		KeyGender:           r.Gender,
		KeyMaritalStatus:    r.MaritalStatus,
		KeyBMICategory:      r.BMICategory,
		KeySmokingStatus:    r.SmokingStatus,
		KeyRegion:           r.Region,
		KeyMedicalHistory:   r.MedicalHistory,
	}
}
