//go:build unit

package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/anil-trigital/GST/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUnitOfWork counts boundary outcomes and can inject a commit failure.
type stubUnitOfWork struct {
	begun      int
	committed  int
	rolledBack int
	commitErr  error
}

func (u *stubUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	u.begun++

	if err := fn(ctx); err != nil {
		u.rolledBack++
		return err
	}

	if u.commitErr != nil {
		u.rolledBack++
		return u.commitErr
	}

	u.committed++

	return nil
}

func newTestEngine(t *testing.T, uow *stubUnitOfWork, strategies map[string]Strategy) *Engine {
	t.Helper()

	registry := NewRegistry()

	for template, s := range strategies {
		method, path, found := splitTemplate(template)
		require.True(t, found, "template %q must be 'METHOD path'", template)
		require.NoError(t, registry.Register(method, path, s))
	}

	return NewEngine(registry, uow, nil)
}

func splitTemplate(template string) (method, path string, ok bool) {
	for i := range template {
		if template[i] == ' ' {
			return template[:i], template[i+1:], true
		}
	}

	return "", "", false
}

func TestValidateRequests(t *testing.T) {
	t.Parallel()

	t.Run("accepts a full batch", func(t *testing.T) {
		t.Parallel()

		reqs := make([]Request, MaxOperations)
		for i := range reqs {
			reqs[i] = Request{RequestID: int64(i + 1)}
		}

		require.NoError(t, ValidateRequests(reqs))
	})

	t.Run("rejects an oversized batch", func(t *testing.T) {
		t.Parallel()

		reqs := make([]Request, MaxOperations+1)
		for i := range reqs {
			reqs[i] = Request{RequestID: int64(i + 1)}
		}

		err := ValidateRequests(reqs)
		require.Error(t, err)
		assert.Equal(t, 400, Normalize(err).StatusCode)
	})

	t.Run("rejects duplicated request ids", func(t *testing.T) {
		t.Parallel()

		err := ValidateRequests([]Request{{RequestID: 5}, {RequestID: 6}, {RequestID: 5}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requestId 5")
	})
}

func TestRunIndependentPreservesOrder(t *testing.T) {
	t.Parallel()

	uow := &stubUnitOfWork{}
	engine := newTestEngine(t, uow, map[string]Strategy{
		"POST clients": &stubStrategy{name: "create"},
	})

	reqs := []Request{
		{RequestID: 30, Method: "POST", RelativeURL: "clients"},
		{RequestID: 10, Method: "POST", RelativeURL: "clients"},
		{RequestID: 20, Method: "POST", RelativeURL: "clients"},
	}

	responses := engine.RunIndependent(context.Background(), reqs)

	require.Len(t, responses, 3)
	assert.Equal(t, int64(30), responses[0].RequestID)
	assert.Equal(t, int64(10), responses[1].RequestID)
	assert.Equal(t, int64(20), responses[2].RequestID)
	assert.Equal(t, 3, uow.committed)
}

func TestRunIndependentIsolatesFailures(t *testing.T) {
	t.Parallel()

	uow := &stubUnitOfWork{}
	failing := &stubStrategy{name: "approve", err: errs.BusinessRule("loan 9 cannot be approved from status ACTIVE")}
	engine := newTestEngine(t, uow, map[string]Strategy{
		"POST clients":                    &stubStrategy{name: "create"},
		"POST loans/{id}?command=approve": failing,
	})

	reqs := []Request{
		{RequestID: 1, Method: "POST", RelativeURL: "clients"},
		{RequestID: 2, Method: "POST", RelativeURL: "loans/9?command=approve"},
		{RequestID: 3, Method: "POST", RelativeURL: "clients"},
	}

	responses := engine.RunIndependent(context.Background(), reqs)

	require.Len(t, responses, 3)
	assert.Equal(t, 200, responses[0].StatusCode)
	assert.Equal(t, 409, responses[1].StatusCode)
	assert.Equal(t, 200, responses[2].StatusCode)

	// Each item ran in its own boundary; only the failing one rolled back.
	assert.Equal(t, 3, uow.begun)
	assert.Equal(t, 2, uow.committed)
	assert.Equal(t, 1, uow.rolledBack)
}

func TestRunIndependentUnknownOperation(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &stubUnitOfWork{}, map[string]Strategy{
		"POST clients": &stubStrategy{name: "create"},
	})

	responses := engine.RunIndependent(context.Background(), []Request{
		{RequestID: 1, Method: "DELETE", RelativeURL: "clients/1"},
	})

	require.Len(t, responses, 1)
	assert.Equal(t, 404, responses[0].StatusCode)

	var info ErrorInfo
	require.NoError(t, json.Unmarshal(responses[0].Body, &info))
	assert.Contains(t, info.Message, "no operation registered")
}

func TestRunIndependentResolvesReferences(t *testing.T) {
	t.Parallel()

	get := &stubStrategy{name: "get"}
	engine := newTestEngine(t, &stubUnitOfWork{}, map[string]Strategy{
		"POST clients":     &clientCreateStub{},
		"GET clients/{id}": get,
	})

	reqs := []Request{
		{RequestID: 1, Method: "POST", RelativeURL: "clients"},
		{RequestID: 2, Method: "GET", RelativeURL: "clients/$.resourceId", Reference: ref(1)},
	}

	responses := engine.RunIndependent(context.Background(), reqs)

	require.Len(t, responses, 2)
	assert.Equal(t, 200, responses[1].StatusCode)
	require.Len(t, get.executed, 1)
	assert.Equal(t, "clients/42", get.executed[0].RelativeURL)
}

// clientCreateStub answers with the body shape the reference resolver reads.
type clientCreateStub struct{}

func (clientCreateStub) Execute(_ context.Context, req Request) (Response, error) {
	return ok(req, []byte(`{"resourceId":42}`)), nil
}

func TestRunIndependentReferenceToFailedItem(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &stubUnitOfWork{}, map[string]Strategy{
		"POST clients":     &stubStrategy{name: "create", err: errs.Validation("field fullname is required")},
		"GET clients/{id}": &stubStrategy{name: "get"},
	})

	responses := engine.RunIndependent(context.Background(), []Request{
		{RequestID: 1, Method: "POST", RelativeURL: "clients"},
		{RequestID: 2, Method: "GET", RelativeURL: "clients/$.resourceId", Reference: ref(1)},
	})

	require.Len(t, responses, 2)
	assert.Equal(t, 400, responses[0].StatusCode)
	assert.Equal(t, 400, responses[1].StatusCode)

	var info ErrorInfo
	require.NoError(t, json.Unmarshal(responses[1].Body, &info))
	assert.Contains(t, info.Message, "did not succeed")
}

func TestRunIndependentEchoesRequestHeaders(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &stubUnitOfWork{}, map[string]Strategy{
		"POST clients": &stubStrategy{name: "create"},
	})

	headers := []Header{{Name: "Idempotency-Key", Value: "k-1"}}

	responses := engine.RunIndependent(context.Background(), []Request{
		{RequestID: 1, Method: "POST", RelativeURL: "clients", Headers: headers},
	})

	require.Len(t, responses, 1)
	assert.Equal(t, headers, responses[0].Headers)
}

func TestRunEnclosingAllSucceed(t *testing.T) {
	t.Parallel()

	uow := &stubUnitOfWork{}
	engine := newTestEngine(t, uow, map[string]Strategy{
		"POST clients": &stubStrategy{name: "create"},
	})

	responses := engine.RunEnclosing(context.Background(), []Request{
		{RequestID: 1, Method: "POST", RelativeURL: "clients"},
		{RequestID: 2, Method: "POST", RelativeURL: "clients"},
	})

	require.Len(t, responses, 2)
	assert.Equal(t, 200, responses[0].StatusCode)
	assert.Equal(t, 200, responses[1].StatusCode)

	// One boundary for the whole batch.
	assert.Equal(t, 1, uow.begun)
	assert.Equal(t, 1, uow.committed)
}

func TestRunEnclosingFailFast(t *testing.T) {
	t.Parallel()

	uow := &stubUnitOfWork{}
	first := &stubStrategy{name: "first"}
	third := &stubStrategy{name: "third"}
	engine := newTestEngine(t, uow, map[string]Strategy{
		"POST clients":                    first,
		"POST loans/{id}?command=approve": &stubStrategy{name: "approve", err: errs.NotFound("loan", 9)},
		"GET clients/{id}":                third,
	})

	responses := engine.RunEnclosing(context.Background(), []Request{
		{RequestID: 1, Method: "POST", RelativeURL: "clients"},
		{RequestID: 2, Method: "POST", RelativeURL: "loans/9?command=approve"},
		{RequestID: 3, Method: "GET", RelativeURL: "clients/1"},
	})

	require.Len(t, responses, 3)

	// Failing item carries its own normalized error.
	assert.Equal(t, 404, responses[1].StatusCode)

	// Every sibling reports the rollback, including ones that had succeeded.
	assert.Equal(t, 409, responses[0].StatusCode)
	assert.Equal(t, 409, responses[2].StatusCode)

	var info ErrorInfo
	require.NoError(t, json.Unmarshal(responses[0].Body, &info))
	assert.Equal(t, rolledBackMessage, info.Message)

	// The item after the failure never executed.
	assert.Empty(t, third.executed)

	assert.Equal(t, 1, uow.begun)
	assert.Equal(t, 0, uow.committed)
	assert.Equal(t, 1, uow.rolledBack)
}

func TestRunEnclosingCommitFailure(t *testing.T) {
	t.Parallel()

	uow := &stubUnitOfWork{commitErr: fmt.Errorf("commit failed: connection lost")}
	engine := newTestEngine(t, uow, map[string]Strategy{
		"POST clients": &stubStrategy{name: "create"},
	})

	responses := engine.RunEnclosing(context.Background(), []Request{
		{RequestID: 1, Method: "POST", RelativeURL: "clients"},
		{RequestID: 2, Method: "POST", RelativeURL: "clients"},
	})

	require.Len(t, responses, 2)

	// No single failing item; every item carries the same normalized failure.
	for _, resp := range responses {
		assert.Equal(t, 500, resp.StatusCode)

		var info ErrorInfo
		require.NoError(t, json.Unmarshal(resp.Body, &info))
		assert.Equal(t, unexpectedMessage, info.Message)
	}
}

func TestRunEnclosingEmptyBatch(t *testing.T) {
	t.Parallel()

	uow := &stubUnitOfWork{}
	engine := newTestEngine(t, uow, map[string]Strategy{})

	responses := engine.RunEnclosing(context.Background(), nil)

	assert.Empty(t, responses)
	assert.Equal(t, 1, uow.committed)
}
