package premium

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a request whose fields violate their declared domain
	ErrInvalidInput = errors.New("invalid input")

	// ErrArtifactLoad marks a missing, corrupt or schema-mismatched model artifact
	ErrArtifactLoad = errors.New("artifact load failed")

	// ErrArithmeticAnomaly marks a non-finite model output
	ErrArithmeticAnomaly = errors.New("arithmetic anomaly")
)

// InputError describes which field was rejected and why.
// errors.Is(err, ErrInvalidInput) holds for every InputError.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidField(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func artifactErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrArtifactLoad}, args...)...)
}
