package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/liamcoop/premium/premium"
	"github.com/liamcoop/premium/segmentengine"
)

// ValidationResult is the json output of validate
type ValidationResult struct {
	Source        string        `json:"source"`
	Valid         bool          `json:"valid"`
	Version       string        `json:"version,omitempty"`
	AgeThreshold  int           `json:"age_threshold,omitempty"`
	SchemaVersion string        `json:"schema_version,omitempty"`
	Segments      []SegmentLine `json:"segments,omitempty"`
	Duration      time.Duration `json:"duration_ms"`
	Error         string        `json:"error,omitempty"`
}

// SegmentLine describes one validated bundle
type SegmentLine struct {
	Name   string `json:"name"`
	Model  string `json:"model"`
	Scaler string `json:"scaler"`
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Validate an artifact release",
		Long: `Validate the release in an artifact directory, or the active release of the
configured source when no directory is given.

This command checks:
- manifest structure and calibration formula
- bundle documents against the bundle JSON schema
- feature order and schema version against the encoder
- scaler parameters and model structure`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				store  premium.ArtifactStore
				source string
			)
			if len(args) == 1 {
				store = premium.NewFileArtifactStore(args[0])
				source = args[0]
			} else {
				s, closeStore, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer closeStore()
				store = s
				source = a.v.GetString("artifact_source")
			}

			start := time.Now()
			set, err := segmentengine.LoadRelease(cmd.Context(), store)
			result := ValidationResult{
				Source:   source,
				Valid:    err == nil,
				Duration: time.Since(start),
			}
			if err != nil {
				result.Error = err.Error()
			} else {
				result.Version = set.Version
				result.AgeThreshold = set.AgeThreshold
				result.SchemaVersion = set.Schema.Version
				for _, art := range set.Segments() {
					result.Segments = append(result.Segments, SegmentLine{
						Name:   art.Segment,
						Model:  art.Kind,
						Scaler: art.Scaler.Kind,
					})
				}
			}

			if printErr := a.printValidation(cmd, result); printErr != nil {
				return printErr
			}
			return err
		},
	}
}

func (a *app) printValidation(cmd *cobra.Command, r ValidationResult) error {
	out := cmd.OutOrStdout()
	if a.output == OutputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	if !r.Valid {
		fmt.Fprintf(out, "✗ %s: invalid\n", r.Source)
		return nil
	}
	fmt.Fprintf(out, "✓ %s: release %s (schema %s, age threshold %d)\n", r.Source, r.Version, r.SchemaVersion, r.AgeThreshold)
	for _, s := range r.Segments {
		fmt.Fprintf(out, "  %-6s model=%s scaler=%s\n", s.Name, s.Model, s.Scaler)
	}
	return nil
}
