package batch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/anil-trigital/GST/internal/errs"
)

// Strategy is the executable unit implementing one specific sub-operation.
// A strategy invokes exactly one collaborator operation and never maps its
// failures to status codes itself; errors propagate to the engine, which is
// the single normalization point.
type Strategy interface {
	Execute(ctx context.Context, req Request) (Response, error)
}

// Registry maps (method, path template) pairs to strategies. Registration
// happens once at startup; resolution is an O(1) lookup on the canonical
// form of the requested method and URL.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register binds a strategy to a method and path template, e.g.
// ("POST", "loans/{id}/transactions?command=repayment"). Registering the
// same template twice is a programming error.
func (r *Registry) Register(method, template string, s Strategy) error {
	if s == nil {
		return fmt.Errorf("nil strategy for %s %s", method, template)
	}

	key := canonicalKey(method, template)
	if _, exists := r.strategies[key]; exists {
		return fmt.Errorf("duplicate registration for %s %s", method, template)
	}

	r.strategies[key] = s

	return nil
}

// Resolve returns the strategy responsible for the given method and relative
// URL. The same pair always resolves to the same strategy instance.
func (r *Registry) Resolve(method, relativeURL string) (Strategy, error) {
	s, exists := r.strategies[canonicalKey(method, relativeURL)]
	if !exists {
		return nil, errs.Resolution(method, relativeURL)
	}

	return s, nil
}

// canonicalKey reduces a method and URL (or template) to the lookup key.
// Numeric path segments collapse to {id}; of the query string only the
// command parameter participates in routing.
func canonicalKey(method, relativeURL string) string {
	path, query, _ := strings.Cut(relativeURL, "?")

	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		if isIdentifier(segment) {
			segments[i] = "{id}"
		}
	}

	key := strings.ToUpper(method) + " " + strings.Join(segments, "/")

	if cmd := commandParam(query); cmd != "" {
		key += "?command=" + cmd
	}

	return key
}

func isIdentifier(segment string) bool {
	if segment == "" {
		return false
	}

	_, err := strconv.ParseInt(segment, 10, 64)

	return err == nil
}

func commandParam(query string) string {
	if query == "" {
		return ""
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return ""
	}

	return values.Get("command")
}

// pathID extracts the identifier at the given zero-based path segment of a
// relative URL, e.g. pathID("loans/42/transactions?command=repayment", 1).
func pathID(relativeURL string, segment int) (int64, error) {
	path, _, _ := strings.Cut(relativeURL, "?")

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if segment >= len(segments) {
		return 0, errs.Validation("relative URL %q carries no identifier at segment %d", relativeURL, segment)
	}

	id, err := strconv.ParseInt(segments[segment], 10, 64)
	if err != nil {
		return 0, errs.Validation("identifier %q in relative URL is not numeric", segments[segment])
	}

	return id, nil
}
