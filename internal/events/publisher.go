// Package events publishes platform events (batch completions, ledger
// transactions) to an exchange for downstream consumers.
package events

import "context"

// Routing keys for platform events.
const (
	KeyBatchCompleted   = "batch.completed"
	KeyRepaymentApplied = "loan.repayment.applied"
	KeyLoanDisbursed    = "loan.disbursed"
)

// Publisher delivers an event payload under a routing key. Implementations
// must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(context.Context, string, any) error { return nil }
