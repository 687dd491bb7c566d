package binder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/object"
)

var (
	ErrNoApplicableMethod        = errors.New("no applicable method")
	ErrAmbiguousMatch            = errors.New("ambiguous match")
	ErrInvalidParameters         = errors.New("invalid parameters")
	ErrUnsupportedDictionaryType = errors.New("unsupported dictionary type")
	ErrInvalidSignature          = errors.New("invalid signature")
	ErrInvalidCallSignature      = errors.New("invalid call signature")
	ErrConversion                = errors.New("conversion failed")
	ErrInference                 = errors.New("type inference failed")

	ErrIncorrectBoxType   = object.ErrIncorrectBoxType
	ErrReadOnlyAssignment = object.ErrReadOnlyAssignment
)

// ErrorSet aggregates the per-candidate failures of one resolution.
type ErrorSet struct {
	Errs []error
}

func newErrorSet() *ErrorSet {
	return new(ErrorSet)
}

func (e *ErrorSet) Add(err error) {
	var subErrs *ErrorSet
	if errors.As(err, &subErrs) {
		e.Errs = append(e.Errs, subErrs.Unwrap()...)
	} else {
		e.Errs = append(e.Errs, err)
	}
}

func (e ErrorSet) Error() string {
	return errors.Join(e.Errs...).Error()
}

func (e ErrorSet) Unwrap() []error {
	return e.Errs
}

func (e *ErrorSet) Len() int {
	return len(e.Errs)
}

// CandidateError records why one candidate was rejected.
type CandidateError struct {
	Candidate *MethodCandidate
	Err       error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("%s: %v", e.Candidate, e.Err)
}

func (e *CandidateError) Unwrap() error {
	return e.Err
}

type NoApplicableMethodError struct {
	Name      string
	Arguments string
	Failures  *ErrorSet
}

func (e *NoApplicableMethodError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s(%s)", ErrNoApplicableMethod, e.Name, e.Arguments)
	if e.Failures != nil {
		for _, err := range e.Failures.Errs {
			fmt.Fprintf(&sb, "\n\t%v", err)
		}
	}

	return sb.String()
}

func (e *NoApplicableMethodError) Is(target error) bool {
	return target == ErrNoApplicableMethod
}

func (e *NoApplicableMethodError) Unwrap() error {
	if e.Failures == nil {
		return nil
	}

	return e.Failures
}

type AmbiguousMatchError struct {
	Name       string
	Level      NarrowingLevel
	Candidates []*MethodCandidate
}

func (e *AmbiguousMatchError) Error() string {
	sigs := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		sigs[i] = c.String()
	}

	return fmt.Sprintf("%s for %s at %s: %s", ErrAmbiguousMatch, e.Name, e.Level, strings.Join(sigs, ", "))
}

func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguousMatch
}

// InvalidParametersError reports a structural binding failure of the only candidate.
type InvalidParametersError struct {
	Candidate *MethodCandidate
	Parameter string
	Err       error
}

func (e *InvalidParametersError) Error() string {
	return fmt.Sprintf("%s: %s parameter %s: %v", ErrInvalidParameters, e.Candidate, e.Parameter, e.Err)
}

func (e *InvalidParametersError) Is(target error) bool {
	return target == ErrInvalidParameters
}

func (e *InvalidParametersError) Unwrap() error {
	return e.Err
}

type UnsupportedDictionaryTypeError struct {
	Method    string
	Parameter string
	Type      types.Type
}

func (e *UnsupportedDictionaryTypeError) Error() string {
	return fmt.Sprintf("%s: %s parameter %s has type %s", ErrUnsupportedDictionaryType, e.Method, e.Parameter, e.Type)
}

func (e *UnsupportedDictionaryTypeError) Is(target error) bool {
	return target == ErrUnsupportedDictionaryType
}

type ConversionError struct {
	Value string
	From  types.Type
	To    types.Type
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s: cannot convert %s from %s to %s", ErrConversion, e.Value, e.From, e.To)
}

func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

// ArgumentMismatch reports an argument that converts to its parameter at no allowed level.
type ArgumentMismatch struct {
	Index     int
	Parameter string
	From      types.Type
	To        types.Type
}

func (e *ArgumentMismatch) Error() string {
	return fmt.Sprintf("argument %d (%s) does not convert to %s %s", e.Index, e.From, e.Parameter, e.To)
}

type InferenceError struct {
	Parameter *types.TypeParameter
	Reason    string
}

func (e *InferenceError) Error() string {
	if e.Parameter == nil {
		return fmt.Sprintf("%s: %s", ErrInference, e.Reason)
	}

	return fmt.Sprintf("%s: %s: %s", ErrInference, e.Parameter.ConstraintString(), e.Reason)
}

func (e *InferenceError) Is(target error) bool {
	return target == ErrInference
}
