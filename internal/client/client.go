// Package client implements the client write service: creation of pending
// clients and their activation.
package client

import (
	"context"
	"time"
)

// Status is the lifecycle state of a client.
//
// Transitions:
//
//	PENDING → ACTIVE
type Status string

const (
	// StatusPending marks a client registered but not yet activated.
	StatusPending Status = "PENDING"
	// StatusActive marks a client cleared for portfolio operations.
	StatusActive Status = "ACTIVE"
)

// Client is the client aggregate.
type Client struct {
	ID          int64      `json:"id"`
	ExternalID  string     `json:"externalId"`
	FullName    string     `json:"fullname"`
	OfficeID    int64      `json:"officeId"`
	Status      Status     `json:"status"`
	SubmittedOn time.Time  `json:"submittedOnDate"`
	ActivatedOn *time.Time `json:"activationDate,omitempty"`
}

// Clone returns a deep copy of the client.
func (c *Client) Clone() *Client {
	cp := *c

	if c.ActivatedOn != nil {
		activated := *c.ActivatedOn
		cp.ActivatedOn = &activated
	}

	return &cp
}

// Repository is the persistence contract the client service depends on.
type Repository interface {
	CreateClient(ctx context.Context, c *Client) (int64, error)
	FindClient(ctx context.Context, id int64) (*Client, error)
	UpdateClient(ctx context.Context, c *Client) error
}
