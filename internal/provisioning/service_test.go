//go:build unit

package provisioning_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/anil-trigital/GST/internal/errs"
	"github.com/anil-trigital/GST/internal/provisioning"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepo is a minimal in-memory provisioning.Repository.
type stubRepo struct {
	nextID   int64
	criteria map[int64]*provisioning.Criteria
}

func newStubRepo() *stubRepo {
	return &stubRepo{criteria: map[int64]*provisioning.Criteria{}}
}

func (r *stubRepo) CreateCriteria(_ context.Context, c *provisioning.Criteria) (int64, error) {
	r.nextID++
	c.ID = r.nextID
	r.criteria[c.ID] = c.Clone()

	return c.ID, nil
}

func (r *stubRepo) FindCriteria(_ context.Context, id int64) (*provisioning.Criteria, error) {
	c, exists := r.criteria[id]
	if !exists {
		return nil, errs.NotFound("provisioning criteria", id)
	}

	return c.Clone(), nil
}

func (r *stubRepo) FindCriteriaByName(_ context.Context, name string) (*provisioning.Criteria, error) {
	for _, c := range r.criteria {
		if strings.EqualFold(c.Name, name) {
			return c.Clone(), nil
		}
	}

	return nil, nil
}

func (r *stubRepo) UpdateCriteria(_ context.Context, c *provisioning.Criteria) error {
	if _, exists := r.criteria[c.ID]; !exists {
		return errs.NotFound("provisioning criteria", c.ID)
	}

	r.criteria[c.ID] = c.Clone()

	return nil
}

func buckets() []provisioning.Bucket {
	return []provisioning.Bucket{
		{MinAge: 0, MaxAge: 30, Provision: decimal.NewFromInt(1)},
		{MinAge: 31, MaxAge: 90, Provision: decimal.NewFromInt(5)},
	}
}

func requireKind(t *testing.T, err error, kind errs.Kind) {
	t.Helper()

	var failure *errs.Failure
	require.True(t, errors.As(err, &failure), "expected tagged failure, got %v", err)
	assert.Equal(t, kind, failure.Kind)
}

func TestCreateCriteria(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	service := provisioning.NewService(repo, nil)

	result, err := service.Create(context.Background(), provisioning.CreateCommand{
		Name:    "  standard  ",
		Buckets: buckets(),
	})
	require.NoError(t, err)

	c := repo.criteria[result.ResourceID]
	require.NotNil(t, c)

	// Names are stored trimmed.
	assert.Equal(t, "standard", c.Name)
	assert.Len(t, c.Buckets, 2)
}

func TestCreateCriteriaDuplicateName(t *testing.T) {
	t.Parallel()

	service := provisioning.NewService(newStubRepo(), nil)
	ctx := context.Background()

	_, err := service.Create(ctx, provisioning.CreateCommand{Name: "standard", Buckets: buckets()})
	require.NoError(t, err)

	// Uniqueness is case-insensitive.
	_, err = service.Create(ctx, provisioning.CreateCommand{Name: "STANDARD", Buckets: buckets()})
	requireKind(t, err, errs.KindBusinessRule)
}

func TestCreateCriteriaValidation(t *testing.T) {
	t.Parallel()

	service := provisioning.NewService(newStubRepo(), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  provisioning.CreateCommand
	}{
		{"missing name", provisioning.CreateCommand{Buckets: buckets()}},
		{"no buckets", provisioning.CreateCommand{Name: "standard"}},
		{
			"inverted age range",
			provisioning.CreateCommand{Name: "standard", Buckets: []provisioning.Bucket{
				{MinAge: 90, MaxAge: 30, Provision: decimal.NewFromInt(1)},
			}},
		},
		{
			"non-positive provision",
			provisioning.CreateCommand{Name: "standard", Buckets: []provisioning.Bucket{
				{MinAge: 0, MaxAge: 30, Provision: decimal.Zero},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := service.Create(ctx, tt.cmd)
			requireKind(t, err, errs.KindValidation)
		})
	}
}

func TestUpdateCriteria(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	service := provisioning.NewService(repo, nil)
	ctx := context.Background()

	created, err := service.Create(ctx, provisioning.CreateCommand{Name: "standard", Buckets: buckets()})
	require.NoError(t, err)

	result, err := service.Update(ctx, created.ResourceID, provisioning.UpdateCommand{
		Name: "standard-v2",
		Buckets: []provisioning.Bucket{
			{MinAge: 0, MaxAge: 60, Provision: decimal.NewFromInt(2)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "standard-v2", result.Changes["criteriaName"])
	assert.Equal(t, 1, result.Changes["definitions"])

	c := repo.criteria[created.ResourceID]
	assert.Equal(t, "standard-v2", c.Name)
	assert.Len(t, c.Buckets, 1)
}

func TestUpdateCriteriaNoChanges(t *testing.T) {
	t.Parallel()

	service := provisioning.NewService(newStubRepo(), nil)
	ctx := context.Background()

	created, err := service.Create(ctx, provisioning.CreateCommand{Name: "standard", Buckets: buckets()})
	require.NoError(t, err)

	result, err := service.Update(ctx, created.ResourceID, provisioning.UpdateCommand{})
	require.NoError(t, err)

	assert.Empty(t, result.Changes)
}

func TestUpdateCriteriaRenameConflict(t *testing.T) {
	t.Parallel()

	service := provisioning.NewService(newStubRepo(), nil)
	ctx := context.Background()

	_, err := service.Create(ctx, provisioning.CreateCommand{Name: "standard", Buckets: buckets()})
	require.NoError(t, err)

	second, err := service.Create(ctx, provisioning.CreateCommand{Name: "premium", Buckets: buckets()})
	require.NoError(t, err)

	_, err = service.Update(ctx, second.ResourceID, provisioning.UpdateCommand{Name: "standard"})
	requireKind(t, err, errs.KindBusinessRule)
}

func TestUpdateUnknownCriteria(t *testing.T) {
	t.Parallel()

	service := provisioning.NewService(newStubRepo(), nil)

	_, err := service.Update(context.Background(), 404, provisioning.UpdateCommand{Name: "x"})
	requireKind(t, err, errs.KindNotFound)
}
