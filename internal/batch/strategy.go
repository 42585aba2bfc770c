package batch

import (
	"encoding/json"
	"fmt"

	"github.com/anil-trigital/GST/internal/errs"
)

// decodeBody unmarshals a sub-request body into a command payload. A missing
// or malformed body is a validation failure for that item.
func decodeBody[T any](req Request) (T, error) {
	var cmd T

	if len(req.Body) == 0 {
		return cmd, errs.Validation("request %d carries no body", req.RequestID)
	}

	if err := json.Unmarshal(req.Body, &cmd); err != nil {
		return cmd, errs.Validation("request %d body is not valid JSON", req.RequestID)
	}

	return cmd, nil
}

// respond marshals a collaborator result into a 200 response for req.
func respond(req Request, result any) (Response, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return Response{}, fmt.Errorf("failed to serialize result for request %d: %w", req.RequestID, err)
	}

	return ok(req, body), nil
}
