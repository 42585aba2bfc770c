// Package errs defines the closed failure taxonomy shared by the write
// services and the batch dispatch engine. Every business failure raised by
// a collaborator is one of these kinds; the batch error normalizer maps each
// kind to a stable HTTP-style status code.
package errs

import "fmt"

// Kind tags a Failure with its category. The set is closed: anything that
// is not one of the tagged kinds is treated as unexpected by the normalizer.
type Kind uint8

const (
	// KindUnexpected marks an uncategorized internal failure.
	KindUnexpected Kind = iota
	// KindResolution marks a method+path pair with no registered operation.
	KindResolution
	// KindValidation marks a malformed or incomplete request payload.
	KindValidation
	// KindNotFound marks a reference to an entity that does not exist.
	KindNotFound
	// KindAuthorization marks a caller lacking permission for an operation.
	KindAuthorization
	// KindBusinessRule marks a state-machine precondition that was not met.
	KindBusinessRule
)

// String returns the string representation of a failure kind.
func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindBusinessRule:
		return "business_rule"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Failure is the tagged-variant error carried from a write service up to the
// dispatch engine. Services construct failures through the helpers below and
// never map them to status codes themselves.
type Failure struct {
	Kind    Kind
	Message string
}

// Error returns the failure message.
func (f *Failure) Error() string {
	return f.Message
}

// Resolution reports that no operation is registered for method+path.
func Resolution(method, relativeURL string) error {
	return &Failure{
		Kind:    KindResolution,
		Message: fmt.Sprintf("no operation registered for %s %s", method, relativeURL),
	}
}

// Validation reports a malformed or incomplete payload.
func Validation(format string, args ...any) error {
	return &Failure{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(entity string, id int64) error {
	return &Failure{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s with identifier %d does not exist", entity, id),
	}
}

// Authorization reports a caller lacking permission for an operation.
func Authorization(action string) error {
	return &Failure{
		Kind:    KindAuthorization,
		Message: fmt.Sprintf("caller is not permitted to perform %s", action),
	}
}

// BusinessRule reports a violated state-machine precondition.
func BusinessRule(format string, args ...any) error {
	return &Failure{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}
