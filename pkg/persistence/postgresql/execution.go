package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/persistence"
	"github.com/lib/pq"
)

const (
	selectExecutionColumns = `
		SELECT
			id
		  , workflow_id
		  , contact_id
		  , status
		  , context
		  , error_message
		  , started_at
		  , completed_at
		FROM workflow_executions
	`

	uniqueViolation = "23505"
)

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	contextJSON, err := json.Marshal(execution.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal execution context: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_executions (id, workflow_id, contact_id, status, context, error_message, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		execution.ID,
		execution.WorkflowID,
		execution.ContactID,
		string(execution.Status),
		contextJSON,
		nullString(execution.ErrorMessage),
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.NewExecutionError("Create", execution.ID, persistence.ErrExecutionAlreadyExists)
		}

		return fmt.Errorf("failed to insert execution %s: %w", execution.ID, err)
	}

	return nil
}

// Update applies patch under a row lock. Terminal executions are left untouched.
func (r *ExecutionRepository) Update(ctx context.Context, id string, patch models.ExecutionPatch) (*models.WorkflowExecution, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	execution, err := scanExecution(tx.QueryRowContext(ctx, selectExecutionColumns+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.NewExecutionError("Update", id, persistence.ErrExecutionNotFound)

			return nil, err
		}

		return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
	}

	if execution.Status.IsTerminal() {
		err = persistence.NewExecutionError("Update", id, persistence.ErrExecutionFinalized)

		return nil, err
	}

	patch.Apply(execution)

	contextJSON, err := json.Marshal(execution.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution context: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE workflow_executions
		SET status = $1, context = $2, error_message = $3, completed_at = $4
		WHERE id = $5`,
		string(execution.Status),
		contextJSON,
		nullString(execution.ErrorMessage),
		execution.CompletedAt,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update execution %s: %w", id, err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit execution %s: %w", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	execution, err := scanExecution(r.db.QueryRowContext(ctx, selectExecutionColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// ListByWorkflow returns the executions of a workflow, most recent first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	rows, err := r.db.QueryContext(ctx, selectExecutionColumns+`
		WHERE workflow_id = $1
		ORDER BY started_at DESC, id DESC`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) CountRunning(ctx context.Context, workflowID string) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workflow_executions WHERE workflow_id = $1 AND status = $2`,
		workflowID, string(models.ExecutionStatusRunning)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count running executions: %w", err)
	}

	return count, nil
}

func scanExecution(row scanner) (*models.WorkflowExecution, error) {
	var (
		execution    models.WorkflowExecution
		status       string
		contextJSON  []byte
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.ContactID,
		&status,
		&contextJSON,
		&errorMessage,
		&execution.StartedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)
	execution.ErrorMessage = errorMessage.String

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	err = json.Unmarshal(contextJSON, &execution.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution context: %w", err)
	}

	return &execution, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
