package premium

import (
	"math"
	"testing"
)

func vectorWith(values map[string]float64) FeatureVector {
	v := FeatureVector{Schema: DefaultSchema, Values: make([]float64, DefaultSchema.Len())}
	for name, x := range values {
		idx, _ := DefaultSchema.Index(name)
		v.Values[idx] = x
	}
	return v
}

func TestScaleMinMax(t *testing.T) {
	p := ScalerParams{
		Kind: ScalerMinMax,
		Features: map[string]FeatureScale{
			FeatureAge: {Min: 18, Max: 38},
		},
	}
	in := vectorWith(map[string]float64{FeatureAge: 28, FeatureBMICategory: 2})

	out := Scale(in, p)

	if got, _ := out.Get(FeatureAge); got != 0.5 {
		t.Errorf("scaled age = %v, want 0.5", got)
	}
	if got, _ := out.Get(FeatureBMICategory); got != 2 {
		t.Errorf("unscaled bmi = %v, want 2", got)
	}
	if got, _ := in.Get(FeatureAge); got != 28 {
		t.Errorf("Scale() modified its input: age = %v", got)
	}
}

func TestScaleStandard(t *testing.T) {
	p := ScalerParams{
		Kind: ScalerStandard,
		Features: map[string]FeatureScale{
			FeatureIncome: {Mean: 25, Std: 20},
		},
	}
	out := Scale(vectorWith(map[string]float64{FeatureIncome: 5}), p)

	if got, _ := out.Get(FeatureIncome); got != -1 {
		t.Errorf("scaled income = %v, want -1", got)
	}
}

func TestScalerValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  ScalerParams
		wantErr bool
	}{
		{"valid minmax", ScalerParams{Kind: ScalerMinMax, Features: map[string]FeatureScale{FeatureAge: {Min: 18, Max: 39}}}, false},
		{"valid standard", ScalerParams{Kind: ScalerStandard, Features: map[string]FeatureScale{FeatureAge: {Mean: 50, Std: 10}}}, false},
		{"no features", ScalerParams{Kind: ScalerMinMax}, false},
		{"unknown kind", ScalerParams{Kind: "robust"}, true},
		{"degenerate range", ScalerParams{Kind: ScalerMinMax, Features: map[string]FeatureScale{FeatureAge: {Min: 5, Max: 5}}}, true},
		{"zero std", ScalerParams{Kind: ScalerStandard, Features: map[string]FeatureScale{FeatureAge: {Mean: 5}}}, true},
		{"nan bound", ScalerParams{Kind: ScalerMinMax, Features: map[string]FeatureScale{FeatureAge: {Min: math.NaN(), Max: 5}}}, true},
		{"indicator feature", ScalerParams{Kind: ScalerMinMax, Features: map[string]FeatureScale{"gender_Male": {Min: 0, Max: 1}}}, true},
		{"ordinal feature", ScalerParams{Kind: ScalerMinMax, Features: map[string]FeatureScale{FeatureSmokingStatus: {Min: 0, Max: 2}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate(DefaultSchema)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLinearModel(t *testing.T) {
	m, err := ModelSpec{
		Kind:         ModelLinear,
		Intercept:    100,
		Coefficients: map[string]float64{FeatureAge: 2, "insurance_plan_Gold": 50},
	}.Build(DefaultSchema)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	got := m.Apply(vectorWith(map[string]float64{FeatureAge: 10, "insurance_plan_Gold": 1}))
	if got != 170 {
		t.Errorf("Apply() = %v, want 170", got)
	}
}

func stump(feature string, threshold, left, right float64) TreeSpec {
	return TreeSpec{Nodes: []TreeNode{
		{Feature: feature, Threshold: threshold, Left: 1, Right: 2},
		{Leaf: left},
		{Leaf: right},
	}}
}

func TestTreeEnsemble(t *testing.T) {
	m, err := ModelSpec{
		Kind:      ModelTreeEnsemble,
		BaseScore: 1000,
		Trees: []TreeSpec{
			stump(FeatureAge, 0.5, -100, 100),
			stump(FeatureSmokingStatus, 1.5, 0, 300),
		},
	}.Build(DefaultSchema)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	tests := []struct {
		name    string
		age     float64
		smoking float64
		want    float64
	}{
		{"both left", 0.2, 0, 900},
		{"threshold goes right", 0.5, 1.5, 1400},
		{"mixed", 0.9, 1, 1100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Apply(vectorWith(map[string]float64{FeatureAge: tt.age, FeatureSmokingStatus: tt.smoking}))
			if got != tt.want {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModelBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		spec ModelSpec
	}{
		{"unknown kind", ModelSpec{Kind: "neural"}},
		{"linear without coefficients", ModelSpec{Kind: ModelLinear}},
		{"linear unknown feature", ModelSpec{Kind: ModelLinear, Coefficients: map[string]float64{"height": 1}}},
		{"linear infinite coefficient", ModelSpec{Kind: ModelLinear, Coefficients: map[string]float64{FeatureAge: math.Inf(1)}}},
		{"ensemble without trees", ModelSpec{Kind: ModelTreeEnsemble}},
		{"empty tree", ModelSpec{Kind: ModelTreeEnsemble, Trees: []TreeSpec{{}}}},
		{"child out of range", ModelSpec{Kind: ModelTreeEnsemble, Trees: []TreeSpec{{Nodes: []TreeNode{
			{Feature: FeatureAge, Left: 1, Right: 5}, {Leaf: 1},
		}}}}},
		{"child points at root", ModelSpec{Kind: ModelTreeEnsemble, Trees: []TreeSpec{{Nodes: []TreeNode{
			{Feature: FeatureAge, Left: 0, Right: 1}, {Leaf: 1},
		}}}}},
		{"cycle", ModelSpec{Kind: ModelTreeEnsemble, Trees: []TreeSpec{{Nodes: []TreeNode{
			{Feature: FeatureAge, Left: 1, Right: 2},
			{Feature: FeatureAge, Left: 2, Right: 2},
			{Leaf: 1},
		}}}}},
		{"unreachable node", ModelSpec{Kind: ModelTreeEnsemble, Trees: []TreeSpec{{Nodes: []TreeNode{
			{Feature: FeatureAge, Left: 1, Right: 2}, {Leaf: 1}, {Leaf: 2}, {Leaf: 3},
		}}}}},
		{"unknown split feature", ModelSpec{Kind: ModelTreeEnsemble, Trees: []TreeSpec{stump("height", 1, 0, 1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.spec.Build(DefaultSchema); err == nil {
				t.Error("Build() succeeded, want error")
			}
		})
	}
}
