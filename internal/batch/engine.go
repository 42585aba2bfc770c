package batch

import (
	"context"

	"github.com/anil-trigital/GST/internal/errs"
	"github.com/anil-trigital/GST/internal/storage"
	logpkg "github.com/anil-trigital/GST/pkg/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Engine dispatches the sub-requests of one batch call. Sub-requests run
// strictly sequentially and in input order; the output list always has one
// response per request, in the same order. The engine is stateless across
// calls and is the single place where strategy failures are normalized.
type Engine struct {
	registry *Registry
	uow      storage.UnitOfWork
	logger   logpkg.Logger
	tracer   trace.Tracer
}

// NewEngine creates an engine over a registry and a transaction boundary.
func NewEngine(registry *Registry, uow storage.UnitOfWork, logger logpkg.Logger) *Engine {
	if logger == nil {
		logger = logpkg.NewNop()
	}

	return &Engine{
		registry: registry,
		uow:      uow,
		logger:   logger,
		tracer:   otel.Tracer("github.com/anil-trigital/GST/internal/batch"),
	}
}

// ValidateRequests rejects batches that cannot be dispatched at all: too
// many sub-requests, or duplicated correlation identifiers. These are
// client errors surfaced at the transport level before any item executes.
func ValidateRequests(reqs []Request) error {
	if len(reqs) > MaxOperations {
		return errs.Validation("batch carries %d requests, maximum is %d", len(reqs), MaxOperations)
	}

	seen := make(map[int64]struct{}, len(reqs))

	for _, req := range reqs {
		if _, dup := seen[req.RequestID]; dup {
			return errs.Validation("requestId %d appears more than once in the batch", req.RequestID)
		}

		seen[req.RequestID] = struct{}{}
	}

	return nil
}

// RunIndependent executes each sub-request in its own transaction boundary.
// A failed item is rolled back individually and normalized; later items
// still execute.
func (e *Engine) RunIndependent(ctx context.Context, reqs []Request) []Response {
	ctx, span := e.tracer.Start(ctx, "batch.run_independent",
		trace.WithAttributes(attribute.Int("batch.size", len(reqs))))
	defer span.End()

	responses := make([]Response, 0, len(reqs))
	completed := make(map[int64]Response, len(reqs))
	failures := 0

	for _, req := range reqs {
		resp, err := e.runItem(ctx, req, completed, e.inOwnTransaction)
		if err != nil {
			resp = failed(req, Normalize(err))
			failures++
		}

		completed[req.RequestID] = resp
		responses = append(responses, resp)
	}

	e.logger.Log(ctx, logpkg.LevelInfo, "batch completed",
		logpkg.String("mode", "independent"),
		logpkg.Int("requests", len(reqs)),
		logpkg.Int("failures", failures),
	)

	return responses
}

// RunEnclosing executes the whole batch inside one transaction boundary
// with fail-fast semantics: the first failure stops the loop and rolls back
// every effect of the batch. The failing item carries its normalized error;
// every other item is reported as rolled back.
func (e *Engine) RunEnclosing(ctx context.Context, reqs []Request) []Response {
	ctx, span := e.tracer.Start(ctx, "batch.run_enclosing",
		trace.WithAttributes(attribute.Int("batch.size", len(reqs))))
	defer span.End()

	succeeded := make([]Response, 0, len(reqs))
	completed := make(map[int64]Response, len(reqs))

	failedIdx := -1

	var failInfo ErrorInfo

	err := e.uow.Do(ctx, func(txCtx context.Context) error {
		for i, req := range reqs {
			resp, err := e.runItem(txCtx, req, completed, e.inEnclosingTransaction)
			if err != nil {
				failedIdx = i
				failInfo = Normalize(err)

				return err
			}

			completed[req.RequestID] = resp
			succeeded = append(succeeded, resp)
		}

		return nil
	})
	if err == nil {
		e.logger.Log(ctx, logpkg.LevelInfo, "batch completed",
			logpkg.String("mode", "enclosing"),
			logpkg.Int("requests", len(reqs)),
		)

		return succeeded
	}

	span.SetStatus(codes.Error, "enclosing transaction rolled back")

	// The commit itself may fail after every item succeeded; there is no
	// single failing item then, so all items report the same failure.
	if failedIdx < 0 {
		failInfo = Normalize(err)
	}

	responses := make([]Response, 0, len(reqs))

	for i, req := range reqs {
		if i == failedIdx {
			responses = append(responses, failed(req, failInfo))
			continue
		}

		if failedIdx < 0 {
			responses = append(responses, failed(req, failInfo))
			continue
		}

		responses = append(responses, failed(req, rolledBack()))
	}

	e.logger.Log(ctx, logpkg.LevelWarn, "batch rolled back",
		logpkg.String("mode", "enclosing"),
		logpkg.Int("requests", len(reqs)),
		logpkg.Int("failed_index", failedIdx),
	)

	return responses
}

// runItem drives one sub-request through Resolving and Executing. The exec
// callback supplies the transaction boundary the strategy runs inside.
func (e *Engine) runItem(
	ctx context.Context,
	req Request,
	completed map[int64]Response,
	exec func(ctx context.Context, s Strategy, req Request) (Response, error),
) (Response, error) {
	ctx, span := e.tracer.Start(ctx, "batch.item", trace.WithAttributes(
		attribute.Int64("batch.request_id", req.RequestID),
		attribute.String("batch.method", req.Method),
		attribute.String("batch.relative_url", req.RelativeURL),
	))
	defer span.End()

	resolved, err := resolveReference(req, completed)
	if err != nil {
		span.RecordError(err)
		return Response{}, err
	}

	strategy, err := e.registry.Resolve(resolved.Method, resolved.RelativeURL)
	if err != nil {
		span.RecordError(err)
		return Response{}, err
	}

	resp, err := exec(ctx, strategy, resolved)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sub-request failed")

		e.logger.Log(ctx, logpkg.LevelWarn, "sub-request failed",
			logpkg.Int64("request_id", req.RequestID),
			logpkg.String("method", req.Method),
			logpkg.String("relative_url", req.RelativeURL),
			logpkg.Err(err),
		)

		return Response{}, err
	}

	return resp, nil
}

// inOwnTransaction wraps a single strategy execution in its own unit of work.
func (e *Engine) inOwnTransaction(ctx context.Context, s Strategy, req Request) (Response, error) {
	var resp Response

	err := e.uow.Do(ctx, func(txCtx context.Context) error {
		r, err := s.Execute(txCtx, req)
		if err != nil {
			return err
		}

		resp = r

		return nil
	})
	if err != nil {
		return Response{}, err
	}

	return resp, nil
}

// inEnclosingTransaction executes the strategy directly; the caller already
// holds the batch-wide unit of work.
func (e *Engine) inEnclosingTransaction(ctx context.Context, s Strategy, req Request) (Response, error) {
	return s.Execute(ctx, req)
}
