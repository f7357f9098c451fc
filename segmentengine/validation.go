package segmentengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/liamcoop/premium/premium"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const bundleSchemaURL = "schema://premium-bundle.json"

var numberSchema = map[string]any{"type": "number"}

// BundleSchema is the JSON Schema every segment bundle document must satisfy
var BundleSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []any{"segment", "version", "schema_version", "feature_order", "model", "scaler"},
	"properties": map[string]any{
		"segment":        map[string]any{"type": "string", "enum": []any{premium.SegmentYoung, premium.SegmentOlder}},
		"version":        map[string]any{"type": "string", "minLength": 1},
		"schema_version": map[string]any{"type": "string", "minLength": 1},
		"feature_order": map[string]any{
			"type":        "array",
			"minItems":    1,
			"uniqueItems": true,
			"items":       map[string]any{"type": "string", "minLength": 1},
		},
		"model": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []any{"kind"},
			"properties": map[string]any{
				"kind":         map[string]any{"enum": []any{premium.ModelLinear, premium.ModelTreeEnsemble}},
				"intercept":    numberSchema,
				"coefficients": map[string]any{"type": "object", "minProperties": 1, "additionalProperties": numberSchema},
				"base_score":   numberSchema,
				"trees": map[string]any{
					"type":     "array",
					"minItems": 1,
					"items": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"required":             []any{"nodes"},
						"properties": map[string]any{
							"nodes": map[string]any{
								"type":     "array",
								"minItems": 1,
								"items": map[string]any{
									"type":                 "object",
									"additionalProperties": false,
									"properties": map[string]any{
										"feature":   map[string]any{"type": "string"},
										"threshold": numberSchema,
										"left":      map[string]any{"type": "integer", "minimum": 1},
										"right":     map[string]any{"type": "integer", "minimum": 1},
										"leaf":      numberSchema,
									},
								},
							},
						},
					},
				},
			},
			"allOf": []any{
				map[string]any{
					"if":   map[string]any{"properties": map[string]any{"kind": map[string]any{"const": premium.ModelLinear}}},
					"then": map[string]any{"required": []any{"coefficients"}},
				},
				map[string]any{
					"if":   map[string]any{"properties": map[string]any{"kind": map[string]any{"const": premium.ModelTreeEnsemble}}},
					"then": map[string]any{"required": []any{"trees"}},
				},
			},
		},
		"scaler": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []any{"kind", "features"},
			"properties": map[string]any{
				"kind": map[string]any{"enum": []any{premium.ScalerMinMax, premium.ScalerStandard}},
				"features": map[string]any{
					"type": "object",
					"additionalProperties": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"properties": map[string]any{
							"min":  numberSchema,
							"max":  numberSchema,
							"mean": numberSchema,
							"std":  numberSchema,
						},
					},
				},
			},
		},
	},
}

var (
	compiledBundleSchema *jsonschema.Schema
	compileBundleErr     error
	compileBundleOnce    sync.Once
)

func bundleSchema() (*jsonschema.Schema, error) {
	compileBundleOnce.Do(func() {
		// the compiler wants a plain JSON value, so round-trip the Go literal
		defBytes, err := json.Marshal(BundleSchema)
		if err != nil {
			compileBundleErr = fmt.Errorf("marshal bundle schema: %w", err)
			return
		}
		def, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
		if err != nil {
			compileBundleErr = fmt.Errorf("parse bundle schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(bundleSchemaURL, def); err != nil {
			compileBundleErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledBundleSchema, compileBundleErr = c.Compile(bundleSchemaURL)
	})
	return compiledBundleSchema, compileBundleErr
}

// DecodeBundle validates a bundle document against BundleSchema and decodes it
func DecodeBundle(doc []byte) (premium.Bundle, error) {
	var b premium.Bundle

	schema, err := bundleSchema()
	if err != nil {
		return b, fmt.Errorf("bundle schema: %w", err)
	}

	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return b, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return b, fmt.Errorf("schema validation failed: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return b, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return b, nil
}

var versionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateManifest checks the manifest fields that do not need the bundles
func ValidateManifest(m *premium.Manifest) error {
	if m == nil {
		return fmt.Errorf("manifest is empty")
	}
	if !versionPattern.MatchString(m.Version) {
		return fmt.Errorf("invalid release version %q", m.Version)
	}
	if len(m.Segments) == 0 {
		return fmt.Errorf("manifest declares no segments")
	}

	bundles := make(map[string]bool, len(m.Segments))
	for _, ref := range m.Segments {
		if ref.Name == "" {
			return fmt.Errorf("segment with empty name")
		}
		if ref.Bundle == "" {
			return fmt.Errorf("segment %q has no bundle", ref.Name)
		}
		if bundles[ref.Bundle] {
			return fmt.Errorf("bundle %q referenced twice", ref.Bundle)
		}
		bundles[ref.Bundle] = true
	}

	if len(m.Calibration.ConditionWeights) == 0 {
		return fmt.Errorf("calibration has no condition weights")
	}
	return nil
}
