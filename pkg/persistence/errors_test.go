package persistence_test

import (
	"errors"
	"testing"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		executionErr := persistence.NewExecutionError("Update", "exec-1", persistence.ErrExecutionFinalized)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsExecutionFinalized(executionErr))
		assert.False(t, persistence.IsExecutionNotFound(executionErr))

		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
		assert.True(t, errors.Is(executionErr, persistence.ErrExecutionFinalized))
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("Delete", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "Delete")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})

	t.Run("execution error contains context", func(t *testing.T) {
		err := persistence.NewExecutionError("GetByID", "exec-9", persistence.ErrExecutionNotFound)

		assert.Contains(t, err.Error(), "exec-9")
		assert.Contains(t, err.Error(), "execution not found")
	})
}

func TestListWorkflowsOptions_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    persistence.ListWorkflowsOptions
		want    persistence.ListWorkflowsOptions
		wantErr bool
	}{
		{
			name: "defaults",
			opts: persistence.ListWorkflowsOptions{},
			want: persistence.ListWorkflowsOptions{Limit: 20, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name: "limit above maximum falls back to default",
			opts: persistence.ListWorkflowsOptions{Limit: 500, Offset: -3, SortBy: "name", SortOrder: "asc"},
			want: persistence.ListWorkflowsOptions{Limit: 20, SortBy: "name", SortOrder: "asc"},
		},
		{
			name:    "sql injection attempt",
			opts:    persistence.ListWorkflowsOptions{SortBy: "name; DROP TABLE workflows; --"},
			wantErr: true,
		},
		{
			name:    "invalid order",
			opts:    persistence.ListWorkflowsOptions{SortBy: "name", SortOrder: "sideways"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			err := opts.Normalize()

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, persistence.IsInvalidSortField(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, opts)
		})
	}
}

func TestListWorkflowsOptions_Matches(t *testing.T) {
	t.Parallel()

	campaign := "camp-1"
	active := true
	definition := &models.WorkflowDefinition{
		OwnerID:    "tenant-1",
		CampaignID: &campaign,
		IsActive:   true,
		Trigger:    models.NewTrigger(models.ManualTrigger{}),
	}

	assert.True(t, (&persistence.ListWorkflowsOptions{}).Matches(definition))
	assert.True(t, (&persistence.ListWorkflowsOptions{OwnerID: "tenant-1", CampaignID: "camp-1", IsActive: &active}).Matches(definition))
	assert.False(t, (&persistence.ListWorkflowsOptions{CampaignID: "camp-10"}).Matches(definition))
	assert.False(t, (&persistence.ListWorkflowsOptions{TriggerType: models.TriggerTypeEventBased}).Matches(definition))
	assert.False(t, (&persistence.ListWorkflowsOptions{OwnerID: "tenant-2"}).Matches(definition))
}
