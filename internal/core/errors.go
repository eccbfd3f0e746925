package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidIdentifier is returned when a manifest identifier is empty or
	// is not a valid content hash.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrContentUnavailable is returned when the content store cannot supply
	// the bytes behind a content URI.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrManifestValidation is the umbrella for every manifest that fails to
	// decode or to match the manifest schema.
	ErrManifestValidation = errors.New("manifest validation failed")

	// ErrMalformedJSON is returned when manifest bytes are not valid JSON.
	ErrMalformedJSON = errors.New("malformed JSON")

	// ErrSchemaViolation is returned when decoded JSON does not match the
	// manifest schema.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrUnknownChain is returned when a chain id, name or genesis hash is not
	// in the chain table.
	ErrUnknownChain = errors.New("unknown chain")
)

// IdentifierError wraps ErrInvalidIdentifier with the rejected input.
type IdentifierError struct {
	Raw    string
	Reason string
}

func (e *IdentifierError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("invalid identifier: %s", e.Reason)
	}
	return fmt.Sprintf("invalid identifier %q: %s", e.Raw, e.Reason)
}

func (e *IdentifierError) Unwrap() error {
	return ErrInvalidIdentifier
}

// ContentError wraps ErrContentUnavailable with the URI and the underlying cause.
type ContentError struct {
	URI string
	Err error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content %s unavailable: %v", e.URI, e.Err)
}

func (e *ContentError) Unwrap() []error {
	return []error{ErrContentUnavailable, e.Err}
}

// Violation is a single schema violation at a field path.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationError reports a manifest that could not be decoded or validated.
// Kind is ErrMalformedJSON or ErrSchemaViolation.
type ValidationError struct {
	Kind       error
	Cause      error
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) > 0 {
		msgs := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			msgs[i] = v.String()
		}
		return fmt.Sprintf("%v: %v: %s", ErrManifestValidation, e.Kind, strings.Join(msgs, "; "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v: %v", ErrManifestValidation, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%v: %v", ErrManifestValidation, e.Kind)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrManifestValidation || target == e.Kind
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// ChainError wraps ErrUnknownChain with the lookup key.
type ChainError struct {
	Key string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("unknown chain: %s", e.Key)
}

func (e *ChainError) Unwrap() error {
	return ErrUnknownChain
}
