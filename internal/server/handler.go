// Package server exposes the batch API over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/anil-trigital/GST/internal/batch"
	"github.com/anil-trigital/GST/internal/errs"
	"github.com/anil-trigital/GST/internal/events"
	logpkg "github.com/anil-trigital/GST/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// BatchCompletedEvent summarizes one finished batch call.
type BatchCompletedEvent struct {
	Mode       string    `json:"mode"`
	Requests   int       `json:"requests"`
	Failures   int       `json:"failures"`
	FinishedAt time.Time `json:"finishedAt"`
}

// BatchHandler serves POST /v1/batches. It deserializes the request list,
// selects the execution mode from the enclosingTransaction query flag and
// forwards to the dispatch engine. The transport-level status is 200 even
// when items fail; callers read per-item outcomes from each response.
type BatchHandler struct {
	engine    *batch.Engine
	publisher events.Publisher
	logger    logpkg.Logger
}

// NewBatchHandler creates the handler. publisher may be nil.
func NewBatchHandler(engine *batch.Engine, publisher events.Publisher, logger logpkg.Logger) *BatchHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	if logger == nil {
		logger = logpkg.NewNop()
	}

	return &BatchHandler{engine: engine, publisher: publisher, logger: logger}
}

// Handle processes one batch call.
func (h *BatchHandler) Handle(c *fiber.Ctx) error {
	var requests []batch.Request
	if err := json.Unmarshal(c.Body(), &requests); err != nil {
		return BadRequest(c, "malformed_batch", "request body must be a JSON array of batch requests")
	}

	if err := batch.ValidateRequests(requests); err != nil {
		var failure *errs.Failure
		if errors.As(err, &failure) {
			return BadRequest(c, "invalid_batch", failure.Message)
		}

		return InternalServerError(c)
	}

	ctx := c.UserContext()
	enclosing := c.QueryBool("enclosingTransaction", false)

	var responses []batch.Response
	if enclosing {
		responses = h.engine.RunEnclosing(ctx, requests)
	} else {
		responses = h.engine.RunIndependent(ctx, requests)
	}

	event := BatchCompletedEvent{
		Mode:       mode(enclosing),
		Requests:   len(requests),
		Failures:   countFailures(responses),
		FinishedAt: time.Now().UTC(),
	}

	if err := h.publisher.Publish(ctx, events.KeyBatchCompleted, event); err != nil {
		h.logger.Log(ctx, logpkg.LevelWarn, "failed to publish batch event", logpkg.Err(err))
	}

	return OK(c, responses)
}

// Ping reports liveness.
func Ping(c *fiber.Ctx) error {
	return c.SendString("pong")
}

func mode(enclosing bool) string {
	if enclosing {
		return "enclosing"
	}

	return "independent"
}

func countFailures(responses []batch.Response) int {
	failures := 0

	for _, resp := range responses {
		if resp.StatusCode != fiber.StatusOK {
			failures++
		}
	}

	return failures
}
