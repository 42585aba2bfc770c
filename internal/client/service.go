package client

import (
	"context"
	"time"

	"github.com/anil-trigital/GST/internal/command"
	"github.com/anil-trigital/GST/internal/errs"
	"github.com/anil-trigital/GST/internal/validate"
	logpkg "github.com/anil-trigital/GST/pkg/log"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// CreateCommand is the payload for registering a new client.
type CreateCommand struct {
	FullName    string `json:"fullname" validate:"required,min=1,max=160"`
	OfficeID    int64  `json:"officeId" validate:"required,gt=0"`
	SubmittedOn string `json:"submittedOnDate" validate:"required"`
}

// ActivateCommand is the payload for activating a pending client.
type ActivateCommand struct {
	ActivationDate string `json:"activationDate" validate:"required"`
}

// Service is the client write/read service.
type Service struct {
	repo   Repository
	logger logpkg.Logger
}

// NewService creates a client service.
func NewService(repo Repository, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewNop()
	}

	return &Service{repo: repo, logger: logger}
}

// Create registers a new client in pending state.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (command.ProcessingResult, error) {
	if err := validate.Struct(cmd); err != nil {
		return command.ProcessingResult{}, err
	}

	submittedOn, err := time.Parse(dateLayout, cmd.SubmittedOn)
	if err != nil {
		return command.ProcessingResult{}, errs.Validation("field submittedOnDate must use layout %s", dateLayout)
	}

	c := &Client{
		ExternalID:  uuid.NewString(),
		FullName:    cmd.FullName,
		OfficeID:    cmd.OfficeID,
		Status:      StatusPending,
		SubmittedOn: submittedOn,
	}

	id, err := s.repo.CreateClient(ctx, c)
	if err != nil {
		return command.ProcessingResult{}, err
	}

	s.logger.Log(ctx, logpkg.LevelInfo, "client created",
		logpkg.Int64("client_id", id),
		logpkg.String("external_id", c.ExternalID),
	)

	return command.ProcessingResult{ResourceID: id, ExternalID: c.ExternalID}, nil
}

// Activate moves a pending client to active. Activating a client in any
// other state violates the client state machine.
func (s *Service) Activate(ctx context.Context, id int64, cmd ActivateCommand) (command.ProcessingResult, error) {
	if err := validate.Struct(cmd); err != nil {
		return command.ProcessingResult{}, err
	}

	activationDate, err := time.Parse(dateLayout, cmd.ActivationDate)
	if err != nil {
		return command.ProcessingResult{}, errs.Validation("field activationDate must use layout %s", dateLayout)
	}

	c, err := s.repo.FindClient(ctx, id)
	if err != nil {
		return command.ProcessingResult{}, err
	}

	if c.Status != StatusPending {
		return command.ProcessingResult{}, errs.BusinessRule(
			"client %d cannot be activated from status %s", id, c.Status)
	}

	if activationDate.Before(c.SubmittedOn) {
		return command.ProcessingResult{}, errs.Validation(
			"activationDate cannot precede submittedOnDate")
	}

	c.Status = StatusActive
	c.ActivatedOn = &activationDate

	if err := s.repo.UpdateClient(ctx, c); err != nil {
		return command.ProcessingResult{}, err
	}

	s.logger.Log(ctx, logpkg.LevelInfo, "client activated", logpkg.Int64("client_id", id))

	return command.ProcessingResult{
		ResourceID: id,
		ExternalID: c.ExternalID,
		Changes:    map[string]any{"status": string(StatusActive)},
	}, nil
}

// Get returns a client by id.
func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	return s.repo.FindClient(ctx, id)
}
