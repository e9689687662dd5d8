package services_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/BabaVossRS3/FlowForge/pkg/mocks"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence/file"
	"github.com/BabaVossRS3/FlowForge/pkg/services"
	"github.com/BabaVossRS3/FlowForge/pkg/testutil"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTriggers(t *testing.T, workflows ...*models.Workflow) (*services.Triggers, *mocks.MockRunner) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	for _, wf := range workflows {
		require.NoError(t, store.Workflows().Save(context.Background(), wf))
	}

	runner := &mocks.MockRunner{}
	t.Cleanup(func() { runner.AssertExpectations(t) })

	return services.NewTriggers(store.Workflows(), runner, slog.Default()), runner
}

func webhookWorkflow(url string, schema map[string]any) *models.Workflow {
	trigger := testutil.WebhookTrigger("hook", url, "POST")
	trigger.Config.Trigger.Webhook.Schema = schema

	return testutil.CreateTestWorkflow(testutil.WithActive(true), testutil.WithGraph([]*models.Node{trigger}, nil))
}

func TestTriggers_HandleWebhook(t *testing.T) {
	t.Parallel()

	wf := webhookWorkflow("https://flowforge.local/webhooks/order-created", nil)
	triggers, runner := newTriggers(t, wf)

	entry := &models.ExecutionLog{ID: "exec-1", Status: models.ExecutionStatusSuccess}
	runner.On("Run", mock.Anything, mock.MatchedBy(func(run workflow.Run) bool {
		return run.Workflow.ID == wf.ID &&
			run.Source == models.ExecutionSourceWebhook &&
			run.Context["webhookId"] == "order-created" &&
			run.TriggerData["method"] == "POST"
	})).Return(entry, nil).Once()

	got, err := triggers.HandleWebhook(context.Background(), "order-created", &models.WebhookRequest{
		Method: "POST",
		Body:   map[string]any{"orderId": "o-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestTriggers_HandleWebhookNoMatch(t *testing.T) {
	t.Parallel()

	inactive := webhookWorkflow("https://flowforge.local/webhooks/order-created", nil)
	inactive.IsActive = false

	triggers, runner := newTriggers(t, inactive)

	_, err := triggers.HandleWebhook(context.Background(), "order-created", &models.WebhookRequest{Method: "POST"})
	require.ErrorIs(t, err, services.ErrNoMatchingWorkflow)
	assert.True(t, services.IsNotFoundError(err))

	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestTriggers_HandleWebhookSchemaMismatch(t *testing.T) {
	t.Parallel()

	wf := webhookWorkflow("https://flowforge.local/webhooks/order-created", map[string]any{
		"type":     "object",
		"required": []any{"orderId"},
	})
	triggers, _ := newTriggers(t, wf)

	_, err := triggers.HandleWebhook(context.Background(), "order-created", &models.WebhookRequest{
		Method: "POST",
		Body:   map[string]any{"amount": 12.5},
	})
	require.ErrorIs(t, err, services.ErrSchemaMismatch)
	assert.True(t, services.IsValidationError(err))
}

func TestTriggers_HandleChatRunsEveryMatch(t *testing.T) {
	t.Parallel()

	chatWorkflow := func(keywords string) *models.Workflow {
		return testutil.CreateTestWorkflow(testutil.WithActive(true), testutil.WithGraph([]*models.Node{
			testutil.ChatTrigger("chat", &models.ChatMessageTrigger{Platform: "slack", Keywords: keywords}),
		}, nil))
	}

	hello := chatWorkflow("hello")
	anything := chatWorkflow("")
	other := chatWorkflow("invoice")

	triggers, runner := newTriggers(t, hello, anything, other)

	isChatRun := func(id string) any {
		return mock.MatchedBy(func(run workflow.Run) bool {
			return run.Workflow.ID == id && run.Source == models.ExecutionSourceChat && run.Context["platform"] == "slack"
		})
	}

	runner.On("Run", mock.Anything, isChatRun(hello.ID)).Return(&models.ExecutionLog{ID: "a"}, nil).Once()
	runner.On("Run", mock.Anything, isChatRun(anything.ID)).Return(nil, errors.New("disk full")).Once()

	entries, err := triggers.HandleChat(context.Background(), &models.ChatMessage{
		Platform: "slack",
		Channel:  "C42",
		User:     "U7",
		Text:     "Hello team",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].ID)
}
