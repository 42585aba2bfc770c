//go:build unit

package batch

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/anil-trigital/GST/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(id int64) *int64 { return &id }

func TestResolveReferenceNoReference(t *testing.T) {
	t.Parallel()

	req := Request{RequestID: 1, Method: "POST", RelativeURL: "clients", Body: []byte(`{"a":1}`)}

	resolved, err := resolveReference(req, nil)
	require.NoError(t, err)
	assert.Equal(t, req, resolved)
}

func TestResolveReferenceSubstitutesURLAndBody(t *testing.T) {
	t.Parallel()

	completed := map[int64]Response{
		1: {RequestID: 1, StatusCode: 200, Body: []byte(`{"resourceId":42,"externalId":"abc-123"}`)},
	}

	req := Request{
		RequestID:   2,
		Reference:   ref(1),
		Method:      "POST",
		RelativeURL: "loans/$.resourceId/transactions?command=repayment",
		Body:        []byte(`{"note":"loan $.externalId","loanId":$.resourceId}`),
	}

	resolved, err := resolveReference(req, completed)
	require.NoError(t, err)

	assert.Equal(t, "loans/42/transactions?command=repayment", resolved.RelativeURL)
	assert.JSONEq(t, `{"note":"loan abc-123","loanId":42}`, string(resolved.Body))
}

func TestResolveReferenceIntegralNumbersRenderWithoutFraction(t *testing.T) {
	t.Parallel()

	completed := map[int64]Response{
		1: {StatusCode: 200, Body: []byte(`{"resourceId":7}`)},
	}

	req := Request{RequestID: 2, Reference: ref(1), RelativeURL: "clients/$.resourceId"}

	resolved, err := resolveReference(req, completed)
	require.NoError(t, err)
	assert.Equal(t, "clients/7", resolved.RelativeURL)
}

func TestResolveReferenceFailures(t *testing.T) {
	t.Parallel()

	completed := map[int64]Response{
		1: {StatusCode: 200, Body: []byte(`{"resourceId":42}`)},
		3: {StatusCode: 409, Body: []byte(`{"statusCode":409,"message":"conflict"}`)},
		4: {StatusCode: 200, Body: []byte(`[1,2,3]`)},
	}

	tests := []struct {
		name string
		req  Request
	}{
		{
			name: "forward reference",
			req:  Request{RequestID: 2, Reference: ref(99), RelativeURL: "clients/$.resourceId"},
		},
		{
			name: "referenced request failed",
			req:  Request{RequestID: 2, Reference: ref(3), RelativeURL: "clients/$.resourceId"},
		},
		{
			name: "referenced body is not an object",
			req:  Request{RequestID: 2, Reference: ref(4), RelativeURL: "clients/$.resourceId"},
		},
		{
			name: "token names a missing field",
			req:  Request{RequestID: 2, Reference: ref(1), RelativeURL: "clients/$.missingField"},
		},
		{
			name: "empty token",
			req:  Request{RequestID: 2, Reference: ref(1), RelativeURL: "clients/$."},
		},
		{
			name: "token failure inside body",
			req: Request{
				RequestID:   2,
				Reference:   ref(1),
				RelativeURL: "clients",
				Body:        json.RawMessage(`{"id":$.nope}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := resolveReference(tt.req, completed)

			var failure *errs.Failure
			require.True(t, errors.As(err, &failure))
			assert.Equal(t, errs.KindValidation, failure.Kind)
		})
	}
}

func TestSubstituteLeavesPlainTextAlone(t *testing.T) {
	t.Parallel()

	out, err := substitute("loans/42/transactions", map[string]any{"id": 1.0}, 5)
	require.NoError(t, err)
	assert.Equal(t, "loans/42/transactions", out)
}

func TestSubstituteMultipleTokens(t *testing.T) {
	t.Parallel()

	values := map[string]any{"a": "x", "b": 2.0, "ok": true}

	out, err := substitute("$.a/$.b?flag=$.ok", values, 5)
	require.NoError(t, err)
	assert.Equal(t, "x/2?flag=true", out)
}
