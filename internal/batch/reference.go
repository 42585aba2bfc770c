package batch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anil-trigital/GST/internal/errs"
)

// resolveReference substitutes $.key tokens in a sub-request's relative URL
// and body with top-level values from the referenced earlier response.
// It returns the request unchanged when no reference is declared.
//
// A reference pointing at a request that has not completed yet (forward
// reference), or at one that failed, is a validation failure for this item.
func resolveReference(req Request, completed map[int64]Response) (Request, error) {
	if req.Reference == nil {
		return req, nil
	}

	referenced, exists := completed[*req.Reference]
	if !exists {
		return req, errs.Validation(
			"request %d references request %d, which precedes it in no earlier position",
			req.RequestID, *req.Reference)
	}

	if referenced.StatusCode != 200 {
		return req, errs.Validation(
			"request %d references request %d, which did not succeed",
			req.RequestID, *req.Reference)
	}

	var values map[string]any
	if err := json.Unmarshal(referenced.Body, &values); err != nil {
		return req, errs.Validation(
			"request %d references request %d, whose body is not a JSON object",
			req.RequestID, *req.Reference)
	}

	resolved := req

	substituted, err := substitute(req.RelativeURL, values, req.RequestID)
	if err != nil {
		return req, err
	}

	resolved.RelativeURL = substituted

	if len(req.Body) > 0 {
		substituted, err = substitute(string(req.Body), values, req.RequestID)
		if err != nil {
			return req, err
		}

		resolved.Body = json.RawMessage(substituted)
	}

	return resolved, nil
}

// substitute replaces every $.key occurrence in s with the scalar rendering
// of values[key]. Keys run until the first non-identifier character.
func substitute(s string, values map[string]any, requestID int64) (string, error) {
	var b strings.Builder

	for {
		idx := strings.Index(s, "$.")
		if idx < 0 {
			b.WriteString(s)
			return b.String(), nil
		}

		b.WriteString(s[:idx])
		s = s[idx+2:]

		end := 0
		for end < len(s) && isKeyChar(s[end]) {
			end++
		}

		key := s[:end]
		s = s[end:]

		if key == "" {
			return "", errs.Validation("request %d carries an empty $. reference token", requestID)
		}

		value, exists := values[key]
		if !exists {
			return "", errs.Validation(
				"request %d references field %q, which the referenced response does not carry",
				requestID, key)
		}

		b.WriteString(render(value))
	}
}

func isKeyChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// render produces the textual form substituted for a token. Numbers render
// without a fractional tail when integral, so generated identifiers remain
// usable inside URLs.
func render(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}

		return fmt.Sprintf("%v", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
