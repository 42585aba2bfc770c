// Package command defines the result envelope returned by write operations.
package command

// ProcessingResult is the outcome of a successfully processed write command.
// ResourceID identifies the affected entity so later requests in a batch can
// reference it.
type ProcessingResult struct {
	ResourceID int64          `json:"resourceId"`
	ExternalID string         `json:"externalId,omitempty"`
	Changes    map[string]any `json:"changes,omitempty"`
}
