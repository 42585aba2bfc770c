package batch

import (
	"context"

	"github.com/anil-trigital/GST/internal/provisioning"
)

// CreateProvisioningCriteriaStrategy handles POST provisioningcriteria.
type CreateProvisioningCriteriaStrategy struct {
	criteria *provisioning.Service
}

// NewCreateProvisioningCriteriaStrategy creates the strategy.
func NewCreateProvisioningCriteriaStrategy(criteria *provisioning.Service) *CreateProvisioningCriteriaStrategy {
	return &CreateProvisioningCriteriaStrategy{criteria: criteria}
}

// Execute defines a new provisioning criteria.
func (s *CreateProvisioningCriteriaStrategy) Execute(ctx context.Context, req Request) (Response, error) {
	cmd, err := decodeBody[provisioning.CreateCommand](req)
	if err != nil {
		return Response{}, err
	}

	result, err := s.criteria.Create(ctx, cmd)
	if err != nil {
		return Response{}, err
	}

	return respond(req, result)
}

// UpdateProvisioningCriteriaStrategy handles PUT provisioningcriteria/{id}.
type UpdateProvisioningCriteriaStrategy struct {
	criteria *provisioning.Service
}

// NewUpdateProvisioningCriteriaStrategy creates the strategy.
func NewUpdateProvisioningCriteriaStrategy(criteria *provisioning.Service) *UpdateProvisioningCriteriaStrategy {
	return &UpdateProvisioningCriteriaStrategy{criteria: criteria}
}

// Execute updates an existing provisioning criteria.
func (s *UpdateProvisioningCriteriaStrategy) Execute(ctx context.Context, req Request) (Response, error) {
	id, err := pathID(req.RelativeURL, 1)
	if err != nil {
		return Response{}, err
	}

	cmd, err := decodeBody[provisioning.UpdateCommand](req)
	if err != nil {
		return Response{}, err
	}

	result, err := s.criteria.Update(ctx, id, cmd)
	if err != nil {
		return Response{}, err
	}

	return respond(req, result)
}
