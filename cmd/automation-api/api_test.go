package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/campaignhq/automation/pkg/cmd"
	crmfile "github.com/campaignhq/automation/pkg/crm/file"
	"github.com/campaignhq/automation/pkg/metrics"
	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/persistence/file"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	registry := prometheus.NewRegistry()
	contacts := crmfile.NewStore(t.TempDir())
	require.NoError(t, contacts.SaveContact(t.Context(), "C1", map[string]any{"country": "NG"}))
	require.NoError(t, contacts.CreateList(t.Context(), "L1"))

	engine := cmd.Engine{
		Persistence: file.NewPersistence(t.TempDir()),
		CRM:         contacts,
		Sender:      cmd.NewSender(""),
		Metrics:     metrics.New(registry),
	}

	return NewAPI(slog.Default(), engine.Persistence, engine.NewExecutor(), nil, registry).App()
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

func TestAPI_RootEndpoint(t *testing.T) {
	status, body := doRequest(t, setupTestApp(t), http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Campaign Automation API", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	status, body := doRequest(t, setupTestApp(t), http.MethodGet, "/livez", "")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))
}

func TestAPI_RunAndMetrics(t *testing.T) {
	app := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodPost, "/workflows", `{
		"name": "Welcome",
		"owner_id": "owner",
		"trigger": {"type": "MANUAL"},
		"conditions": [{"field": "country", "operator": "in", "value": ["NG", "GH"]}],
		"actions": [
			{"type": "add_to_list", "config": {"list_id": "L1"}},
			{"type": "send_email", "config": {"template_id": "T1"}}
		],
		"is_active": true
	}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	var created models.WorkflowDefinition
	require.NoError(t, json.Unmarshal(body, &created))

	status, body = doRequest(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", `{"contact_id":"C1"}`)
	require.Equal(t, http.StatusOK, status, string(body))

	var result models.ExecutionResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Len(t, result.Results, 2)

	status, body = doRequest(t, app, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `automation_runs_total{reason="",status="completed"} 1`)
	assert.Contains(t, string(body), `automation_actions_total`)
}

func TestAPI_GetWorkflows_Empty(t *testing.T) {
	status, body := doRequest(t, setupTestApp(t), http.MethodGet, "/workflows", "")
	require.Equal(t, http.StatusOK, status)

	var response struct {
		Workflows  []models.WorkflowDefinition `json:"workflows"`
		TotalCount int64                       `json:"total_count"`
	}

	require.NoError(t, json.Unmarshal(body, &response))
	assert.Empty(t, response.Workflows)
	assert.Zero(t, response.TotalCount)
}
