package batch

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anil-trigital/GST/internal/errs"
)

// ErrorInfo is the normalized representation of any failure raised while
// executing a sub-request. It is produced exclusively by Normalize.
type ErrorInfo struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// unexpectedMessage deliberately carries no internal detail.
const unexpectedMessage = "an unexpected error occurred while processing the request"

// rolledBackMessage marks sibling items of a failed enclosing-transaction
// batch.
const rolledBackMessage = "request was rolled back because another request in the enclosing transaction failed"

// Normalize converts an arbitrary failure into a stable status/message pair.
// The mapping depends only on the failure's kind, never on where it was
// raised. Anything outside the closed taxonomy becomes a 500 with a generic
// message so internal detail never reaches the caller.
func Normalize(err error) ErrorInfo {
	var failure *errs.Failure
	if !errors.As(err, &failure) {
		return ErrorInfo{StatusCode: 500, Message: unexpectedMessage}
	}

	switch failure.Kind {
	case errs.KindResolution, errs.KindNotFound:
		return ErrorInfo{StatusCode: 404, Message: failure.Message}
	case errs.KindValidation:
		return ErrorInfo{StatusCode: 400, Message: failure.Message}
	case errs.KindAuthorization:
		return ErrorInfo{StatusCode: 403, Message: failure.Message}
	case errs.KindBusinessRule:
		return ErrorInfo{StatusCode: 409, Message: failure.Message}
	default:
		return ErrorInfo{StatusCode: 500, Message: unexpectedMessage}
	}
}

// rolledBack is the ErrorInfo applied to every non-failing item of an
// aborted enclosing-transaction batch.
func rolledBack() ErrorInfo {
	return ErrorInfo{StatusCode: 409, Message: rolledBackMessage}
}

func (info ErrorInfo) body() json.RawMessage {
	body, err := json.Marshal(info)
	if err != nil {
		// ErrorInfo is two scalar fields; marshalling cannot realistically
		// fail, but never return an empty body.
		return json.RawMessage(fmt.Sprintf(`{"statusCode":%d}`, info.StatusCode))
	}

	return body
}
