package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	persistence := NewPersistence("/tmp/test")
	fp := persistence.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)

	persistence = NewPersistence("file:///tmp/test")
	fp = persistence.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_Close(t *testing.T) {
	persistence := NewPersistence("./test-data")
	err := persistence.Close(t.Context())
	assert.NoError(t, err)
}

func TestPersistence_HealthCheck(t *testing.T) {
	testDir := t.TempDir()

	assert.NoError(t, NewPersistence(testDir).HealthCheck(t.Context()))
	assert.ErrorIs(t, NewPersistence(filepath.Join(testDir, "missing")).HealthCheck(t.Context()), os.ErrNotExist)
}

func TestPersistence_Repositories(t *testing.T) {
	persistence := NewPersistence(t.TempDir())

	definition := &models.WorkflowDefinition{
		ID:      "wf-1",
		Name:    "Welcome",
		OwnerID: "tenant-1",
		Trigger: models.NewTrigger(models.ManualTrigger{}),
	}
	require.NoError(t, persistence.WorkflowRepository().Save(t.Context(), definition))

	execution := &models.WorkflowExecution{ID: "exec-1", WorkflowID: "wf-1", Status: models.ExecutionStatusRunning}
	require.NoError(t, persistence.ExecutionRepository().Create(t.Context(), execution))

	stored, err := persistence.WorkflowRepository().GetByID(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Welcome", stored.Name)

	running, err := persistence.ExecutionRepository().CountRunning(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 1, running)
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, validateID("0190c0de-7d1e-7000-8000-000000000001"))
	assert.Error(t, validateID(""))
	assert.Error(t, validateID("../etc/passwd"))
	assert.Error(t, validateID("a/b"))
	assert.Error(t, validateID(`a\b`))
}
