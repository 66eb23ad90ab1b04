package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/persistence"
	"github.com/google/uuid"
)

const selectWorkflowColumns = `
		SELECT
			id
		  , name
		  , description
		  , owner_id
		  , campaign_id
		  , trigger
		  , conditions
		  , actions
		  , is_active
		  , failure_policy
		  , created_at
		  , updated_at
		  , deleted_at
		FROM workflows
`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	row := r.db.QueryRowContext(ctx, selectWorkflowColumns+` WHERE id = $1 AND deleted_at IS NULL`, id)

	definition, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return definition, nil
}

// Save saves a workflow to the database.
func (r *WorkflowRepository) Save(ctx context.Context, definition *models.WorkflowDefinition) error {
	now := time.Now().UTC()

	if definition.CreatedAt.IsZero() {
		definition.CreatedAt = now
	}

	definition.UpdatedAt = now

	if definition.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		definition.ID = id.String()
	}

	triggerJSON, err := json.Marshal(definition.Trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}

	conditions := definition.Conditions
	if conditions == nil {
		conditions = []models.Condition{}
	}

	conditionsJSON, err := json.Marshal(conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	actions := definition.Actions
	if actions == nil {
		actions = []models.Action{}
	}

	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		INSERT INTO workflows (id, name, description, owner_id, campaign_id, trigger_type, trigger,
			conditions, actions, is_active, failure_policy, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			owner_id = EXCLUDED.owner_id,
			campaign_id = EXCLUDED.campaign_id,
			trigger_type = EXCLUDED.trigger_type,
			trigger = EXCLUDED.trigger,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			is_active = EXCLUDED.is_active,
			failure_policy = EXCLUDED.failure_policy,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err = r.db.ExecContext(ctx, query,
		definition.ID,
		definition.Name,
		definition.Description,
		definition.OwnerID,
		definition.CampaignID,
		string(definition.Trigger.Type),
		triggerJSON,
		conditionsJSON,
		actionsJSON,
		definition.IsActive,
		string(definition.EffectiveFailurePolicy()),
		definition.CreatedAt,
		definition.UpdatedAt,
		definition.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", definition.ID, err)
	}

	return nil
}

// Delete soft deletes a workflow by setting deleted_at timestamp.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE workflows SET deleted_at = $1, is_active = false WHERE id = $2 AND deleted_at IS NULL`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// ListWorkflows returns paginated and filtered workflows.
func (r *WorkflowRepository) ListWorkflows(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	where, args := buildWhere(opts)

	var totalCount int64

	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflows"+where, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}

	// Sort field and order are allowlisted by Normalize.
	query := selectWorkflowColumns + where +
		fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d", opts.SortBy, strings.ToUpper(opts.SortOrder), len(args)+1, len(args)+2)

	workflows, err := r.query(ctx, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, err
	}

	return &persistence.WorkflowListResult{
		Workflows:   workflows,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(workflows)) < totalCount,
	}, nil
}

// ListActiveByTriggerType returns the active definitions with the given trigger type.
func (r *WorkflowRepository) ListActiveByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.WorkflowDefinition, error) {
	return r.query(ctx, selectWorkflowColumns+`
		WHERE deleted_at IS NULL AND is_active = true AND trigger_type = $1
		ORDER BY created_at ASC`, string(triggerType))
}

// ListByCampaign returns the definitions whose campaign id equals campaignID.
func (r *WorkflowRepository) ListByCampaign(ctx context.Context, campaignID string) ([]*models.WorkflowDefinition, error) {
	return r.query(ctx, selectWorkflowColumns+`
		WHERE deleted_at IS NULL AND campaign_id = $1
		ORDER BY created_at ASC`, campaignID)
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...any) ([]*models.WorkflowDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		definition, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, definition)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func buildWhere(opts persistence.ListWorkflowsOptions) (string, []any) {
	clauses := []string{"deleted_at IS NULL"}
	args := make([]any, 0, 4)

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, clause+" $"+strconv.Itoa(len(args)))
	}

	if opts.OwnerID != "" {
		add("owner_id =", opts.OwnerID)
	}

	if opts.CampaignID != "" {
		add("campaign_id =", opts.CampaignID)
	}

	if opts.IsActive != nil {
		add("is_active =", *opts.IsActive)
	}

	if opts.TriggerType != "" {
		add("trigger_type =", string(opts.TriggerType))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanWorkflow(row scanner) (*models.WorkflowDefinition, error) {
	var (
		definition     models.WorkflowDefinition
		campaignID     sql.NullString
		triggerJSON    []byte
		conditionsJSON []byte
		actionsJSON    []byte
		failurePolicy  string
		deletedAt      sql.NullTime
	)

	err := row.Scan(
		&definition.ID,
		&definition.Name,
		&definition.Description,
		&definition.OwnerID,
		&campaignID,
		&triggerJSON,
		&conditionsJSON,
		&actionsJSON,
		&definition.IsActive,
		&failurePolicy,
		&definition.CreatedAt,
		&definition.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if campaignID.Valid {
		definition.CampaignID = &campaignID.String
	}

	if deletedAt.Valid {
		definition.DeletedAt = &deletedAt.Time
	}

	definition.FailurePolicy = models.FailurePolicy(failurePolicy)

	err = json.Unmarshal(triggerJSON, &definition.Trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger: %w", err)
	}

	err = json.Unmarshal(conditionsJSON, &definition.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}

	err = json.Unmarshal(actionsJSON, &definition.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	return &definition, nil
}
