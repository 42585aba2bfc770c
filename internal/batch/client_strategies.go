package batch

import (
	"context"

	"github.com/anil-trigital/GST/internal/client"
)

// CreateClientStrategy handles POST clients.
type CreateClientStrategy struct {
	clients *client.Service
}

// NewCreateClientStrategy creates the strategy.
func NewCreateClientStrategy(clients *client.Service) *CreateClientStrategy {
	return &CreateClientStrategy{clients: clients}
}

// Execute registers a new pending client.
func (s *CreateClientStrategy) Execute(ctx context.Context, req Request) (Response, error) {
	cmd, err := decodeBody[client.CreateCommand](req)
	if err != nil {
		return Response{}, err
	}

	result, err := s.clients.Create(ctx, cmd)
	if err != nil {
		return Response{}, err
	}

	return respond(req, result)
}

// ActivateClientStrategy handles POST clients/{id}?command=activate.
type ActivateClientStrategy struct {
	clients *client.Service
}

// NewActivateClientStrategy creates the strategy.
func NewActivateClientStrategy(clients *client.Service) *ActivateClientStrategy {
	return &ActivateClientStrategy{clients: clients}
}

// Execute activates a pending client.
func (s *ActivateClientStrategy) Execute(ctx context.Context, req Request) (Response, error) {
	id, err := pathID(req.RelativeURL, 1)
	if err != nil {
		return Response{}, err
	}

	cmd, err := decodeBody[client.ActivateCommand](req)
	if err != nil {
		return Response{}, err
	}

	result, err := s.clients.Activate(ctx, id, cmd)
	if err != nil {
		return Response{}, err
	}

	return respond(req, result)
}

// GetClientStrategy handles GET clients/{id}.
type GetClientStrategy struct {
	clients *client.Service
}

// NewGetClientStrategy creates the strategy.
func NewGetClientStrategy(clients *client.Service) *GetClientStrategy {
	return &GetClientStrategy{clients: clients}
}

// Execute returns the client.
func (s *GetClientStrategy) Execute(ctx context.Context, req Request) (Response, error) {
	id, err := pathID(req.RelativeURL, 1)
	if err != nil {
		return Response{}, err
	}

	c, err := s.clients.Get(ctx, id)
	if err != nil {
		return Response{}, err
	}

	return respond(req, c)
}
