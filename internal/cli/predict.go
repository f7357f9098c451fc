package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/liamcoop/premium/premium"
	"github.com/liamcoop/premium/segmentengine"
)

// PredictResult is the json output of predict
type PredictResult struct {
	Premium         json.Number `json:"premium"`
	Segment         string      `json:"segment"`
	ArtifactVersion string      `json:"artifact_version"`
	Clamped         bool        `json:"clamped,omitempty"`
}

// profileFlag ties a command-line flag to an input key
type profileFlag struct {
	name    string
	key     string
	usage   string
	numeric bool
}

var profileFlags = []profileFlag{
	{"age", premium.KeyAge, "age in years (18-100)", true},
	{"dependants", premium.KeyDependants, "number of dependants", true},
	{"income", premium.KeyIncome, "income in lakhs", true},
	{"genetic-risk", premium.KeyGeneticalRisk, "genetical risk score (0-5)", true},
	{"plan", premium.KeyInsurancePlan, "insurance plan (Bronze, Silver, Gold)", false},
	{"employment", premium.KeyEmploymentStatus, "employment status (Salaried, Self-Employed, Freelancer, or empty)", false},
	{"gender", premium.KeyGender, "gender (Male, Female)", false},
	{"marital-status", premium.KeyMaritalStatus, "marital status (Married, Unmarried)", false},
	{"bmi", premium.KeyBMICategory, "BMI category (Normal, Underweight, Overweight, Obesity)", false},
	{"smoking", premium.KeySmokingStatus, "smoking status (No Smoking, Occasional, Regular)", false},
	{"region", premium.KeyRegion, "region (Northeast, Northwest, Southeast, Southwest)", false},
	{"history", premium.KeyMedicalHistory, "medical history, e.g. \"Diabetes & Heart disease\"", false},
}

func newPredictCmd(a *app) *cobra.Command {
	var inputFile string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the premium for one applicant",
		Long: `Predict the annual premium for one applicant profile.

The profile is read from a JSON object (--input, "-" for stdin) keyed by the
form field names, or assembled from flags. Every field is required; an empty
--employment is accepted.

Examples:
  premium predict --input applicant.json
  premium predict --age 30 --dependants 0 --income 10 --genetic-risk 2 \
    --plan Silver --employment Salaried --gender Male --marital-status Unmarried \
    --bmi Normal --smoking "No Smoking" --region Northeast --history "No Disease"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw map[string]any
				err error
			)
			if inputFile != "" {
				raw, err = readInput(inputFile, cmd.InOrStdin())
			} else {
				raw, err = inputFromFlags(cmd)
			}
			if err != nil {
				return err
			}
			return a.predict(cmd, raw)
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "JSON file holding the applicant profile")
	for _, f := range profileFlags {
		if f.numeric {
			cmd.Flags().Int(f.name, 0, f.usage)
		} else {
			cmd.Flags().String(f.name, "", f.usage)
		}
	}
	return cmd
}

func readInput(path string, stdin io.Reader) (map[string]any, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: input is not a JSON object: %v", premium.ErrInvalidInput, err)
	}
	return raw, nil
}

// inputFromFlags builds the input map from the flags the caller set.
// Unset flags are left out so they are reported as missing.
func inputFromFlags(cmd *cobra.Command) (map[string]any, error) {
	raw := make(map[string]any, len(profileFlags))
	for _, f := range profileFlags {
		flag := cmd.Flags().Lookup(f.name)
		if !flag.Changed && f.key != premium.KeyEmploymentStatus {
			continue
		}
		if f.numeric {
			n, err := cmd.Flags().GetInt(f.name)
			if err != nil {
				return nil, err
			}
			raw[f.key] = n
		} else {
			raw[f.key] = flag.Value.String()
		}
	}
	return raw, nil
}

func (a *app) predict(cmd *cobra.Command, raw map[string]any) error {
	store, closeStore, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	manager := segmentengine.NewManager(store, nil)
	if _, err := manager.Load(cmd.Context()); err != nil {
		return err
	}
	predictor, err := manager.Predictor()
	if err != nil {
		return err
	}

	pred, err := predictor.PredictMap(raw)
	if err != nil {
		return err
	}

	result := PredictResult{
		Premium:         json.Number(pred.Amount.StringFixed(premium.CurrencyPlaces)),
		Segment:         pred.Segment,
		ArtifactVersion: pred.ArtifactVersion,
		Clamped:         pred.Clamped,
	}

	out := cmd.OutOrStdout()
	if a.output == OutputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(out, "Premium: %s\n", result.Premium)
	fmt.Fprintf(out, "Segment: %s\n", result.Segment)
	fmt.Fprintf(out, "Release: %s\n", result.ArtifactVersion)
	if result.Clamped {
		fmt.Fprintln(out, "Note: model output was negative and floored at zero")
	}
	return nil
}
