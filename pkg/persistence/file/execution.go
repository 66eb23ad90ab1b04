package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/persistence"
)

// ExecutionRepository handles execution-related file operations.
type ExecutionRepository struct {
	root string // File system root for storing executions
	mu   sync.Mutex
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir() string {
	return filepath.Join(er.root, "executions")
}

// Create stores a new execution.
func (er *ExecutionRepository) Create(_ context.Context, execution *models.WorkflowExecution) error {
	err := validateID(execution.ID)
	if err != nil {
		return fmt.Errorf("invalid execution ID: %w", err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	_, err = os.Stat(er.path(execution.ID))
	if err == nil {
		return persistence.NewExecutionError("Create", execution.ID, persistence.ErrExecutionAlreadyExists)
	}

	return er.write(execution)
}

// Update applies patch to a non-terminal execution.
func (er *ExecutionRepository) Update(_ context.Context, id string, patch models.ExecutionPatch) (*models.WorkflowExecution, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	execution, err := er.read(id)
	if err != nil {
		return nil, err
	}

	if execution.Status.IsTerminal() {
		return nil, persistence.NewExecutionError("Update", id, persistence.ErrExecutionFinalized)
	}

	patch.Apply(execution)

	err = er.write(execution)
	if err != nil {
		return nil, err
	}

	return execution, nil
}

// GetByID retrieves an execution by its ID from the file system.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	return er.read(id)
}

// ListByWorkflow returns the executions of a workflow, most recent first.
func (er *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	return er.listByWorkflow(workflowID)
}

// CountRunning returns the number of RUNNING executions of a workflow.
func (er *ExecutionRepository) CountRunning(_ context.Context, workflowID string) (int, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	executions, err := er.listByWorkflow(workflowID)
	if err != nil {
		return 0, err
	}

	count := 0

	for _, execution := range executions {
		if execution.Status == models.ExecutionStatusRunning {
			count++
		}
	}

	return count, nil
}

func (er *ExecutionRepository) listByWorkflow(workflowID string) ([]*models.WorkflowExecution, error) {
	entries, err := os.ReadDir(er.dir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*models.WorkflowExecution{}, nil
		}

		return nil, fmt.Errorf("failed to read executions directory: %w", err)
	}

	executions := make([]*models.WorkflowExecution, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		execution, err := er.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// Skip invalid files
			continue
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.SliceStable(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

func (er *ExecutionRepository) path(id string) string {
	return filepath.Join(er.dir(), id+".json")
}

func (er *ExecutionRepository) read(id string) (*models.WorkflowExecution, error) {
	err := validateID(id)
	if err != nil {
		return nil, fmt.Errorf("invalid execution ID: %w", err)
	}

	data, err := os.ReadFile(er.path(id)) // #nosec G304 -- path is validated and constructed safely
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to read execution %s: %w", id, err)
	}

	var execution models.WorkflowExecution

	err = json.Unmarshal(data, &execution)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) write(execution *models.WorkflowExecution) error {
	err := os.MkdirAll(er.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	err = os.WriteFile(er.path(execution.ID), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write execution %s: %w", execution.ID, err)
	}

	return nil
}
