package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/campaignhq/automation/pkg/actions"
	"github.com/campaignhq/automation/pkg/channels/gochannel"
	"github.com/campaignhq/automation/pkg/eventbus"
	"github.com/campaignhq/automation/pkg/events"
	"github.com/campaignhq/automation/pkg/metrics"
	"github.com/campaignhq/automation/pkg/mocks"
	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/persistence"
	"github.com/campaignhq/automation/pkg/persistence/file"
	"github.com/campaignhq/automation/pkg/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recordingExecutions keeps the status written by every Create and Update call.
// A non-nil updateErr makes every Update fail without writing.
type recordingExecutions struct {
	persistence.ExecutionRepository

	mu        sync.Mutex
	statuses  []models.ExecutionStatus
	updateErr error
}

func (r *recordingExecutions) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	r.statuses = append(r.statuses, execution.Status)
	r.mu.Unlock()

	return r.ExecutionRepository.Create(ctx, execution)
}

func (r *recordingExecutions) Update(ctx context.Context, id string, patch models.ExecutionPatch) (*models.WorkflowExecution, error) {
	r.mu.Lock()
	r.statuses = append(r.statuses, patch.Status)
	updateErr := r.updateErr
	r.mu.Unlock()

	if updateErr != nil {
		return nil, updateErr
	}

	return r.ExecutionRepository.Update(ctx, id, patch)
}

type testEnv struct {
	executor   *Executor
	workflows  persistence.WorkflowRepository
	executions *recordingExecutions
	contacts   *mocks.MockContactStore
	channels   *mocks.MockChannelSender
	lists      *mocks.MockListService
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	env := &testEnv{
		workflows:  p.WorkflowRepository(),
		executions: &recordingExecutions{ExecutionRepository: p.ExecutionRepository()},
		contacts:   &mocks.MockContactStore{},
		channels:   &mocks.MockChannelSender{},
		lists:      &mocks.MockListService{},
	}

	dispatcher := actions.NewDispatcher(actions.Dependencies{
		Channels: env.channels,
		Lists:    env.lists,
	})

	env.executor = NewExecutor(Dependencies{
		Workflows:  env.workflows,
		Executions: env.executions,
		Contacts:   env.contacts,
		Dispatcher: dispatcher,
	}, opts...)

	t.Cleanup(func() {
		env.contacts.AssertExpectations(t)
		env.channels.AssertExpectations(t)
		env.lists.AssertExpectations(t)
	})

	return env
}

func (env *testEnv) save(t *testing.T, definition *models.WorkflowDefinition) {
	t.Helper()

	require.NoError(t, env.workflows.Save(t.Context(), definition))
}

func signupWorkflow(id string, actionList ...models.Action) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:       id,
		Name:     "Signup welcome",
		OwnerID:  "tenant-1",
		Trigger:  models.NewTrigger(models.EventTrigger{EventType: "signup", EventSource: "web"}),
		Actions:  actionList,
		IsActive: true,
	}
}

func signupEvent(source string) map[string]any {
	return map[string]any{"eventType": "signup", "eventSource": source}
}

func TestExecutor_Run_WorkflowNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.executor.Run(t.Context(), "missing", "C1", nil)

	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.Empty(t, env.executions.statuses)
}

func TestExecutor_Run_InactiveIsSkipped(t *testing.T) {
	triggerConfigs := map[string]models.TriggerConfig{
		"event based":     models.EventTrigger{EventType: "signup", EventSource: "web"},
		"condition based": models.ConditionTrigger{Conditions: []models.Condition{{Field: "country", Operator: models.OperatorEquals, Value: "NG"}}},
		"time based":      models.ScheduleTrigger{Schedule: "* * * * *", Timezone: "UTC", AudienceListID: "L1"},
		"manual":          models.ManualTrigger{},
		"api":             models.APITrigger{Endpoint: "/hooks/welcome", Method: "POST"},
	}

	payloads := map[string]map[string]any{
		"nil payload": nil,
		"matching payload": {
			"eventType":   "signup",
			"eventSource": "web",
			"country":     "NG",
			"scheduledAt": "2026-03-02T08:30:00Z",
		},
		"non-matching payload": {"eventType": "purchase", "eventSource": "pos", "country": "KE"},
	}

	for triggerName, config := range triggerConfigs {
		for payloadName, payload := range payloads {
			t.Run(triggerName+"/"+payloadName, func(t *testing.T) {
				env := newTestEnv(t)

				definition := signupWorkflow("wf-1", models.NewAction(models.ActionWait, models.WaitConfig{}))
				definition.Trigger = models.NewTrigger(config)
				definition.IsActive = false
				env.save(t, definition)

				result, err := env.executor.Run(t.Context(), "wf-1", "C1", payload)

				require.NoError(t, err)
				assert.Equal(t, models.Skipped(models.SkipReasonInactive), result)
				assert.Empty(t, env.executions.statuses)

				executions, err := env.executions.ListByWorkflow(t.Context(), "wf-1")
				require.NoError(t, err)
				assert.Empty(t, executions)
			})
		}
	}
}

func TestExecutor_Run_TriggerNotMet(t *testing.T) {
	env := newTestEnv(t)
	env.save(t, signupWorkflow("wf-1", models.NewAction(models.ActionWait, models.WaitConfig{})))

	result, err := env.executor.Run(t.Context(), "wf-1", "C1", signupEvent("mobile"))

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSkipped, result.Status)
	assert.Equal(t, models.SkipReasonTriggerNotMet, result.Reason)
	assert.Empty(t, result.ExecutionID)
	assert.Empty(t, env.executions.statuses)
}

func TestExecutor_Run_ConditionsNotMet(t *testing.T) {
	env := newTestEnv(t)

	definition := signupWorkflow("wf-1", models.NewAction(models.ActionWait, models.WaitConfig{}))
	definition.Conditions = []models.Condition{
		{Field: "country", Operator: models.OperatorIn, Value: []any{"NG", "GH"}},
	}
	env.save(t, definition)

	env.contacts.On("GetContact", mock.Anything, "C1").Return(map[string]any{"country": "KE"}, nil)

	result, err := env.executor.Run(t.Context(), "wf-1", "C1", signupEvent("web"))

	require.NoError(t, err)
	assert.Equal(t, models.Skipped(models.SkipReasonConditionsNotMet), result)
	assert.Empty(t, env.executions.statuses)
}

func TestExecutor_Run_ConditionsSeePayloadOverContact(t *testing.T) {
	env := newTestEnv(t)

	definition := signupWorkflow("wf-1", models.NewAction(models.ActionWait, models.WaitConfig{DurationSeconds: 60}))
	definition.Conditions = []models.Condition{
		{Field: "country", Operator: models.OperatorEquals, Value: "GH"},
		{Field: "tier", Operator: models.OperatorEquals, Value: "gold"},
	}
	env.save(t, definition)

	env.contacts.On("GetContact", mock.Anything, "C1").Return(map[string]any{"country": "NG", "tier": "gold"}, nil)

	payload := signupEvent("web")
	payload["country"] = "GH"

	result, err := env.executor.Run(t.Context(), "wf-1", "C1", payload)

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, result.Status)
}

func TestExecutor_Run_ContactNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.save(t, signupWorkflow("wf-1", models.NewAction(models.ActionWait, models.WaitConfig{})))

	env.contacts.On("GetContact", mock.Anything, "C404").Return(nil, protocol.ErrContactNotFound)

	_, err := env.executor.Run(t.Context(), "wf-1", "C404", signupEvent("web"))

	require.Error(t, err)
	assert.True(t, protocol.IsContactNotFound(err))
	assert.Empty(t, env.executions.statuses)
}

func TestExecutor_Run_CompletesActionsInOrder(t *testing.T) {
	env := newTestEnv(t)
	env.save(t, signupWorkflow("wf-1",
		models.NewAction(models.ActionAddToList, models.ListConfig{ListID: "L1"}),
		models.NewAction(models.ActionSendEmail, models.MessageConfig{TemplateID: "T1"}),
	))

	env.contacts.On("GetContact", mock.Anything, "C1").Return(map[string]any{"email": "c1@example.com"}, nil)
	env.lists.On("AddMember", mock.Anything, "C1", "L1").Return(nil)
	env.channels.On("SendEmail", mock.Anything, "C1", mock.AnythingOfType("models.MessageConfig")).Return("msg-1", nil)

	result, err := env.executor.Run(t.Context(), "wf-1", "C1", signupEvent("web"))

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, result.Status)
	require.NotEmpty(t, result.ExecutionID)

	execution, err := env.executions.GetByID(t.Context(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, "C1", execution.ContactID)
	require.NotNil(t, execution.CompletedAt)
	assert.False(t, execution.CompletedAt.Before(execution.StartedAt))
	assert.Empty(t, execution.ErrorMessage)

	require.Len(t, execution.Context.Result, 2)
	assert.Equal(t, models.ActionAddToList, execution.Context.Result[0].Type)
	assert.Equal(t, models.ActionSendEmail, execution.Context.Result[1].Type)
	assert.Equal(t, "signup", execution.Context.TriggerPayload["eventType"])

	assert.Equal(t, []models.ExecutionStatus{models.ExecutionStatusRunning, models.ExecutionStatusCompleted}, env.executions.statuses)
}

func TestExecutor_Run_NoActionsCompletes(t *testing.T) {
	env := newTestEnv(t)

	definition := signupWorkflow("wf-1")
	definition.Trigger = models.NewTrigger(models.ManualTrigger{})
	env.save(t, definition)

	env.contacts.On("GetContact", mock.Anything, "C1").Return(map[string]any{}, nil)

	result, err := env.executor.Run(t.Context(), "wf-1", "C1", nil)

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Empty(t, result.Results)
}

func TestExecutor_Run_ActionFailureContinues(t *testing.T) {
	env := newTestEnv(t)
	env.save(t, signupWorkflow("wf-1",
		models.NewAction(models.ActionAddToList, models.ListConfig{ListID: "L1"}),
		models.NewAction(models.ActionSendEmail, models.MessageConfig{TemplateID: "T1"}),
	))

	env.contacts.On("GetContact", mock.Anything, "C1").Return(map[string]any{}, nil)
	env.lists.On("AddMember", mock.Anything, "C1", "L1").Return(errors.New("list service unavailable"))
	env.channels.On("SendEmail", mock.Anything, "C1", mock.Anything).Return("msg-1", nil)

	result, err := env.executor.Run(t.Context(), "wf-1", "C1", signupEvent("web"))

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, result.Status)
	require.Len(t, result.Results, 2)
	assert.Equal(t, models.ActionStatusFailed, result.Results[0].Status)
	assert.Equal(t, "list service unavailable", result.Results[0].Detail)
	assert.Equal(t, models.ActionStatusCompleted, result.Results[1].Status)

	execution, err := env.executions.GetByID(t.Context(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
}

func TestExecutor_Run_AbortPolicyStopsAtFailure(t *testing.T) {
	env := newTestEnv(t)

	definition := signupWorkflow("wf-1",
		models.NewAction(models.ActionAddToList, models.ListConfig{ListID: "L1"}),
		models.NewAction(models.ActionSendEmail, models.MessageConfig{TemplateID: "T1"}),
	)
	definition.FailurePolicy = models.FailurePolicyAbort
	env.save(t, definition)

	env.contacts.On("GetContact", mock.Anything, "C1").Return(map[string]any{}, nil)
	env.lists.On("AddMember", mock.Anything, "C1", "L1").Return(errors.New("list service unavailable"))

	result, err := env.executor.Run(t.Context(), "wf-1", "C1", signupEvent("web"))

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, result.Status)
	require.Len(t, result.Results, 1)

	execution, err := env.executions.GetByID(t.Context(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.ErrorMessage, "add_to_list")
	assert.Contains(t, execution.ErrorMessage, "list service unavailable")
	env.channels.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutor_Run_UnknownActionFailsExecution(t *testing.T) {
	env := newTestEnv(t)
	env.save(t, signupWorkflow("wf-1",
		models.NewAction(models.ActionAddToList, models.ListConfig{ListID: "L1"}),
		models.Action{Type: "unknown_action"},
	))

	env.contacts.On("GetContact", mock.Anything, "C1").Return(map[string]any{}, nil)
	env.lists.On("AddMember", mock.Anything, "C1", "L1").Return(nil)

	result, err := env.executor.Run(t.Context(), "wf-1", "C1", signupEvent("web"))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, actions.ErrUnknownActionType)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, 1, runErr.ActionIndex)

	assert.Equal(t, []models.ExecutionStatus{models.ExecutionStatusRunning, models.ExecutionStatusFailed}, env.executions.statuses)

	execution, err := env.executions.GetByID(t.Context(), runErr.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.NotEmpty(t, execution.ErrorMessage)
	require.NotNil(t, execution.CompletedAt)
	require.Len(t, execution.Context.Result, 1)
}

func TestExecutor_Run_UnknownActionReportsUnrecordedFailure(t *testing.T) {
	env := newTestEnv(t)
	env.save(t, signupWorkflow("wf-1", models.Action{Type: "unknown_action"}))

	env.contacts.On("GetContact", mock.Anything, "C1").Return(map[string]any{}, nil)

	dbDown := errors.New("db down")
	env.executions.updateErr = dbDown

	result, err := env.executor.Run(t.Context(), "wf-1", "C1", signupEvent("web"))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, actions.ErrUnknownActionType)
	assert.ErrorIs(t, err, dbDown)
	assert.Contains(t, err.Error(), "db down")

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.ErrorIs(t, runErr.RecordErr, dbDown)

	execution, err := env.executions.GetByID(t.Context(), runErr.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)
}

func TestExecutor_Run_CancelledContextStillRecordsOutcome(t *testing.T) {
	env := newTestEnv(t)
	env.save(t, signupWorkflow("wf-1", models.NewAction(models.ActionAddToList, models.ListConfig{ListID: "L1"})))

	ctx, cancel := context.WithCancel(t.Context())

	env.contacts.On("GetContact", mock.Anything, "C1").Return(map[string]any{}, nil)
	env.lists.On("AddMember", mock.Anything, "C1", "L1").Run(func(mock.Arguments) { cancel() }).Return(context.Canceled)

	result, err := env.executor.Run(ctx, "wf-1", "C1", signupEvent("web"))

	require.NoError(t, err)

	execution, err := env.executions.GetByID(t.Context(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, models.ActionStatusFailed, execution.Context.Result[0].Status)
}

func TestExecutor_Run_ClockAndIDs(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tick := start
	env := newTestEnv(t,
		WithClock(func() time.Time {
			tick = tick.Add(time.Second)

			return tick
		}),
		WithIDGenerator(func() (string, error) { return "exec-fixed", nil }),
	)

	definition := signupWorkflow("wf-1", models.NewAction(models.ActionWait, models.WaitConfig{}))
	definition.Trigger = models.NewTrigger(models.ManualTrigger{})
	env.save(t, definition)

	env.contacts.On("GetContact", mock.Anything, "C1").Return(map[string]any{}, nil)

	result, err := env.executor.Run(t.Context(), "wf-1", "C1", nil)
	require.NoError(t, err)
	assert.Equal(t, "exec-fixed", result.ExecutionID)

	execution, err := env.executions.GetByID(t.Context(), "exec-fixed")
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Second), execution.StartedAt)
	assert.Equal(t, start.Add(2*time.Second), *execution.CompletedAt)

	_, err = env.executor.Run(t.Context(), "wf-1", "C1", nil)
	assert.ErrorIs(t, err, persistence.ErrExecutionAlreadyExists)
}

func TestExecutor_Run_ConcurrentRunsCreateSeparateExecutions(t *testing.T) {
	env := newTestEnv(t)
	env.save(t, signupWorkflow("wf-1", models.NewAction(models.ActionWait, models.WaitConfig{})))

	env.contacts.On("GetContact", mock.Anything, "C1").Return(map[string]any{}, nil)

	var wg sync.WaitGroup

	ids := make([]string, 4)
	for i := range ids {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			result, err := env.executor.Run(context.Background(), "wf-1", "C1", signupEvent("web"))
			if assert.NoError(t, err) {
				ids[i] = result.ExecutionID
			}
		}(i)
	}

	wg.Wait()

	executions, err := env.executions.ListByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Len(t, executions, len(ids))
}

func TestExecutor_Run_MetricsAndEvents(t *testing.T) {
	registry := prometheus.NewRegistry()
	env := newTestEnv(t, WithMetrics(metrics.New(registry)))

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	completed := make(chan *events.ExecutionCompleted, 1)
	require.NoError(t, bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, event any) error {
		completed <- event.(*events.ExecutionCompleted)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	env.executor.publisher = bus

	env.save(t, signupWorkflow("wf-1", models.NewAction(models.ActionWait, models.WaitConfig{})))
	env.contacts.On("GetContact", mock.Anything, "C1").Return(map[string]any{}, nil)

	result, err := env.executor.Run(t.Context(), "wf-1", "C1", signupEvent("web"))
	require.NoError(t, err)

	_, err = env.executor.Run(t.Context(), "wf-1", "C1", signupEvent("mobile"))
	require.NoError(t, err)

	select {
	case event := <-completed:
		assert.Equal(t, result.ExecutionID, event.ExecutionID)
		assert.Equal(t, "wf-1", event.WorkflowID)
	case <-time.After(5 * time.Second):
		t.Fatal("completion event was not published")
	}

	count, err := testutil.GatherAndCount(registry, "automation_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
