package provisioning

import (
	"context"
	"strings"

	"github.com/anil-trigital/GST/internal/command"
	"github.com/anil-trigital/GST/internal/errs"
	"github.com/anil-trigital/GST/internal/validate"
	logpkg "github.com/anil-trigital/GST/pkg/log"
	"github.com/google/uuid"
)

// CreateCommand is the payload for defining a new provisioning criteria.
type CreateCommand struct {
	Name    string   `json:"criteriaName" validate:"required,min=1,max=200"`
	Buckets []Bucket `json:"definitions" validate:"required,min=1,dive"`
}

// UpdateCommand is the payload for updating an existing criteria. Zero-value
// fields are left unchanged.
type UpdateCommand struct {
	Name    string   `json:"criteriaName,omitempty" validate:"omitempty,min=1,max=200"`
	Buckets []Bucket `json:"definitions,omitempty" validate:"omitempty,min=1,dive"`
}

// Service is the provisioning-criteria write service.
type Service struct {
	repo   Repository
	logger logpkg.Logger
}

// NewService creates a provisioning service.
func NewService(repo Repository, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewNop()
	}

	return &Service{repo: repo, logger: logger}
}

// Create defines a new criteria. Names are unique across criteria.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (command.ProcessingResult, error) {
	if err := validate.Struct(cmd); err != nil {
		return command.ProcessingResult{}, err
	}

	name := strings.TrimSpace(cmd.Name)

	existing, err := s.repo.FindCriteriaByName(ctx, name)
	if err != nil {
		return command.ProcessingResult{}, err
	}

	if existing != nil {
		return command.ProcessingResult{}, errs.BusinessRule(
			"provisioning criteria named %q already exists", name)
	}

	c := &Criteria{
		ExternalID: uuid.NewString(),
		Name:       name,
		Buckets:    cmd.Buckets,
	}

	id, err := s.repo.CreateCriteria(ctx, c)
	if err != nil {
		return command.ProcessingResult{}, err
	}

	s.logger.Log(ctx, logpkg.LevelInfo, "provisioning criteria created",
		logpkg.Int64("criteria_id", id), logpkg.String("name", name))

	return command.ProcessingResult{ResourceID: id, ExternalID: c.ExternalID}, nil
}

// Update applies changes to an existing criteria and reports which fields
// changed. Renaming to a name held by another criteria is rejected.
func (s *Service) Update(ctx context.Context, id int64, cmd UpdateCommand) (command.ProcessingResult, error) {
	if err := validate.Struct(cmd); err != nil {
		return command.ProcessingResult{}, err
	}

	c, err := s.repo.FindCriteria(ctx, id)
	if err != nil {
		return command.ProcessingResult{}, err
	}

	changes := map[string]any{}

	if name := strings.TrimSpace(cmd.Name); name != "" && name != c.Name {
		existing, err := s.repo.FindCriteriaByName(ctx, name)
		if err != nil {
			return command.ProcessingResult{}, err
		}

		if existing != nil && existing.ID != id {
			return command.ProcessingResult{}, errs.BusinessRule(
				"provisioning criteria named %q already exists", name)
		}

		c.Name = name
		changes["criteriaName"] = name
	}

	if len(cmd.Buckets) > 0 {
		c.Buckets = cmd.Buckets
		changes["definitions"] = len(cmd.Buckets)
	}

	if len(changes) == 0 {
		return command.ProcessingResult{ResourceID: id, ExternalID: c.ExternalID}, nil
	}

	if err := s.repo.UpdateCriteria(ctx, c); err != nil {
		return command.ProcessingResult{}, err
	}

	s.logger.Log(ctx, logpkg.LevelInfo, "provisioning criteria updated",
		logpkg.Int64("criteria_id", id))

	return command.ProcessingResult{ResourceID: id, ExternalID: c.ExternalID, Changes: changes}, nil
}
