//go:build unit

package client_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anil-trigital/GST/internal/client"
	"github.com/anil-trigital/GST/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepo is a minimal in-memory client.Repository.
type stubRepo struct {
	nextID  int64
	clients map[int64]*client.Client
}

func newStubRepo() *stubRepo {
	return &stubRepo{clients: map[int64]*client.Client{}}
}

func (r *stubRepo) CreateClient(_ context.Context, c *client.Client) (int64, error) {
	r.nextID++
	c.ID = r.nextID
	r.clients[c.ID] = c.Clone()

	return c.ID, nil
}

func (r *stubRepo) FindClient(_ context.Context, id int64) (*client.Client, error) {
	c, exists := r.clients[id]
	if !exists {
		return nil, errs.NotFound("client", id)
	}

	return c.Clone(), nil
}

func (r *stubRepo) UpdateClient(_ context.Context, c *client.Client) error {
	if _, exists := r.clients[c.ID]; !exists {
		return errs.NotFound("client", c.ID)
	}

	r.clients[c.ID] = c.Clone()

	return nil
}

func requireKind(t *testing.T, err error, kind errs.Kind) {
	t.Helper()

	var failure *errs.Failure
	require.True(t, errors.As(err, &failure), "expected tagged failure, got %v", err)
	assert.Equal(t, kind, failure.Kind)
}

func TestCreateClient(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	service := client.NewService(repo, nil)

	result, err := service.Create(context.Background(), client.CreateCommand{
		FullName:    "Ada Lovelace",
		OfficeID:    1,
		SubmittedOn: "2026-01-05",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.ResourceID)
	assert.NotEmpty(t, result.ExternalID)

	c := repo.clients[result.ResourceID]
	require.NotNil(t, c)
	assert.Equal(t, client.StatusPending, c.Status)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), c.SubmittedOn)
	assert.Nil(t, c.ActivatedOn)
}

func TestCreateClientValidation(t *testing.T) {
	t.Parallel()

	service := client.NewService(newStubRepo(), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  client.CreateCommand
	}{
		{"missing name", client.CreateCommand{OfficeID: 1, SubmittedOn: "2026-01-05"}},
		{"missing office", client.CreateCommand{FullName: "Ada", SubmittedOn: "2026-01-05"}},
		{"missing date", client.CreateCommand{FullName: "Ada", OfficeID: 1}},
		{"unparseable date", client.CreateCommand{FullName: "Ada", OfficeID: 1, SubmittedOn: "05.01.2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := service.Create(ctx, tt.cmd)
			requireKind(t, err, errs.KindValidation)
		})
	}
}

func TestActivateClient(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	service := client.NewService(repo, nil)
	ctx := context.Background()

	created, err := service.Create(ctx, client.CreateCommand{
		FullName:    "Ada Lovelace",
		OfficeID:    1,
		SubmittedOn: "2026-01-05",
	})
	require.NoError(t, err)

	result, err := service.Activate(ctx, created.ResourceID, client.ActivateCommand{
		ActivationDate: "2026-01-10",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "ACTIVE"}, result.Changes)

	c := repo.clients[created.ResourceID]
	assert.Equal(t, client.StatusActive, c.Status)
	require.NotNil(t, c.ActivatedOn)

	// Activating an already active client violates the state machine.
	_, err = service.Activate(ctx, created.ResourceID, client.ActivateCommand{
		ActivationDate: "2026-01-11",
	})
	requireKind(t, err, errs.KindBusinessRule)
}

func TestActivateClientDateBeforeSubmission(t *testing.T) {
	t.Parallel()

	service := client.NewService(newStubRepo(), nil)
	ctx := context.Background()

	created, err := service.Create(ctx, client.CreateCommand{
		FullName:    "Ada Lovelace",
		OfficeID:    1,
		SubmittedOn: "2026-01-05",
	})
	require.NoError(t, err)

	_, err = service.Activate(ctx, created.ResourceID, client.ActivateCommand{
		ActivationDate: "2026-01-04",
	})
	requireKind(t, err, errs.KindValidation)
}

func TestActivateUnknownClient(t *testing.T) {
	t.Parallel()

	service := client.NewService(newStubRepo(), nil)

	_, err := service.Activate(context.Background(), 404, client.ActivateCommand{
		ActivationDate: "2026-01-10",
	})
	requireKind(t, err, errs.KindNotFound)
}
