package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	root string // File system root for storing workflows
	mu   sync.RWMutex
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

// ListWorkflows returns paginated and filtered workflows with in-memory operations.
func (wr *WorkflowRepository) ListWorkflows(_ context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	wr.mu.RLock()
	defer wr.mu.RUnlock()

	all, err := wr.loadAll()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowDefinition, 0, len(all))

	for _, definition := range all {
		if opts.Matches(definition) {
			filtered = append(filtered, definition)
		}
	}

	sortWorkflows(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))

	if opts.Offset >= len(filtered) {
		return &persistence.WorkflowListResult{
			Workflows:  make([]*models.WorkflowDefinition, 0),
			TotalCount: totalCount,
		}, nil
	}

	endIdx := min(opts.Offset+opts.Limit, len(filtered))

	return &persistence.WorkflowListResult{
		Workflows:   filtered[opts.Offset:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(filtered),
	}, nil
}

// ListActiveByTriggerType returns the active definitions with the given trigger type.
func (wr *WorkflowRepository) ListActiveByTriggerType(_ context.Context, triggerType models.TriggerType) ([]*models.WorkflowDefinition, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	all, err := wr.loadAll()
	if err != nil {
		return nil, err
	}

	result := make([]*models.WorkflowDefinition, 0)

	for _, definition := range all {
		if definition.IsActive && definition.Trigger.Type == triggerType {
			result = append(result, definition)
		}
	}

	sortWorkflows(result, persistence.SortByCreatedAt, persistence.SortOrderAsc)

	return result, nil
}

// ListByCampaign returns the definitions whose campaign id equals campaignID.
func (wr *WorkflowRepository) ListByCampaign(_ context.Context, campaignID string) ([]*models.WorkflowDefinition, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	all, err := wr.loadAll()
	if err != nil {
		return nil, err
	}

	result := make([]*models.WorkflowDefinition, 0)

	for _, definition := range all {
		if definition.BelongsToCampaign(campaignID) {
			result = append(result, definition)
		}
	}

	sortWorkflows(result, persistence.SortByCreatedAt, persistence.SortOrderAsc)

	return result, nil
}

// loadAll reads every stored definition that has not been deleted.
func (wr *WorkflowRepository) loadAll() ([]*models.WorkflowDefinition, error) {
	jsonFiles, err := fs.Glob(os.DirFS(wr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	definitions := make([]*models.WorkflowDefinition, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		definition, err := wr.read(strings.TrimSuffix(file, ".json"))
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			return nil, err
		}

		if definition.DeletedAt == nil {
			definitions = append(definitions, definition)
		}
	}

	return definitions, nil
}

// sortWorkflows sorts workflows in-place based on the specified field and order.
func sortWorkflows(workflows []*models.WorkflowDefinition, sortBy, sortOrder string) {
	sort.SliceStable(workflows, func(i, j int) bool {
		var less bool

		switch sortBy {
		case persistence.SortByUpdatedAt:
			less = workflows[i].UpdatedAt.Before(workflows[j].UpdatedAt)
		case persistence.SortByName:
			less = workflows[i].Name < workflows[j].Name
		default:
			less = workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
		}

		if sortOrder == persistence.SortOrderDesc {
			return !less
		}

		return less
	})
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID string) (*models.WorkflowDefinition, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	definition, err := wr.read(workflowID)
	if err != nil {
		return nil, err
	}

	if definition.DeletedAt != nil {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, persistence.ErrWorkflowNotFound)
	}

	return definition, nil
}

func (wr *WorkflowRepository) read(workflowID string) (*models.WorkflowDefinition, error) {
	err := validateID(workflowID)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow ID: %w", err)
	}

	filePath := filepath.Join(wr.dir(), workflowID+".json")

	body, err := os.ReadFile(filePath) // #nosec G304 -- filePath is validated and constructed safely
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("GetByID", workflowID, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	var definition models.WorkflowDefinition

	err = json.Unmarshal(body, &definition)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", workflowID, err)
	}

	return &definition, nil
}

// Save saves a workflow to the file system.
func (wr *WorkflowRepository) Save(_ context.Context, definition *models.WorkflowDefinition) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	return wr.write(definition)
}

func (wr *WorkflowRepository) write(definition *models.WorkflowDefinition) error {
	err := validateID(definition.ID)
	if err != nil {
		return fmt.Errorf("invalid workflow ID: %w", err)
	}

	err = os.MkdirAll(wr.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	now := time.Now().UTC()
	if definition.CreatedAt.IsZero() {
		definition.CreatedAt = now
	}

	definition.UpdatedAt = now

	data, err := json.MarshalIndent(definition, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", definition.ID, err)
	}

	return os.WriteFile(filepath.Join(wr.dir(), definition.ID+".json"), data, 0600)
}

// Delete soft deletes a workflow by its ID.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	definition, err := wr.read(id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
		}

		return err
	}

	if definition.DeletedAt != nil {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	now := time.Now().UTC()
	definition.DeletedAt = &now
	definition.IsActive = false

	return wr.write(definition)
}
