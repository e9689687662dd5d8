package actions_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BabaVossRS3/FlowForge/pkg/actions"
	"github.com/BabaVossRS3/FlowForge/pkg/ai"
	"github.com/BabaVossRS3/FlowForge/pkg/messaging"
	"github.com/BabaVossRS3/FlowForge/pkg/mocks"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var smtpCredentials = map[string]string{
	"smtpHost":     "smtp.example.com",
	"smtpPort":     "587",
	"smtpUser":     "bot@example.com",
	"smtpPassword": "secret",
}

type fixture struct {
	credentials *mocks.MockCredentialSource
	provider    *mocks.MockAIProvider
	chat        *mocks.MockChatSender
	mailer      *mocks.MockMailer
	dispatcher  *actions.Dispatcher
}

func newFixture(t *testing.T, client *http.Client) *fixture {
	t.Helper()

	f := &fixture{
		credentials: &mocks.MockCredentialSource{},
		provider:    &mocks.MockAIProvider{},
		chat:        &mocks.MockChatSender{},
		mailer:      &mocks.MockMailer{},
	}

	if client == nil {
		client = http.DefaultClient
	}

	f.dispatcher = actions.NewDispatcher(actions.Dependencies{
		Credentials: f.credentials,
		AI:          f.provider,
		Chat:        f.chat,
		Mailer:      f.mailer,
		HTTPClient:  client,
	}, slog.Default())

	t.Cleanup(func() {
		f.credentials.AssertExpectations(t)
		f.provider.AssertExpectations(t)
		f.chat.AssertExpectations(t)
		f.mailer.AssertExpectations(t)
	})

	return f
}

func actionRequest(cfg *models.ActionConfig, triggerData map[string]any) *workflow.NodeRequest {
	return &workflow.NodeRequest{
		Node:        &models.Node{ID: "action-1", Kind: models.NodeKindAction, Config: models.NodeConfig{Action: cfg}},
		UserID:      "user-1",
		TriggerData: triggerData,
		Results:     models.NewResults(),
	}
}

func notificationRequest(cfg *models.NotificationConfig, triggerData map[string]any) *workflow.NodeRequest {
	return &workflow.NodeRequest{
		Node:        &models.Node{ID: "notify-1", Kind: models.NodeKindNotification, Config: models.NodeConfig{Notification: cfg}},
		UserID:      "user-1",
		TriggerData: triggerData,
		Results:     models.NewResults(),
	}
}

func chatTrigger() map[string]any {
	return map[string]any{
		"message":    "My order never arrived",
		"sender":     "15551234",
		"senderName": "Dana",
		"platform":   "whatsapp",
	}
}

func requireActionError(t *testing.T, err error, message string) *workflow.ActionExecutionError {
	t.Helper()

	var actionErr *workflow.ActionExecutionError

	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, message, actionErr.Message)

	return actionErr
}

func TestExecuteAction_Fallbacks(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	outcome, err := f.dispatcher.ExecuteAction(context.Background(), actionRequest(nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "Action executed", outcome.Data["message"])

	database := &models.DatabaseAction{DBType: "mongodb", Operation: "insert"}
	outcome, err = f.dispatcher.ExecuteAction(context.Background(), actionRequest(&models.ActionConfig{Database: database}, nil))
	require.NoError(t, err)
	assert.Equal(t, "Database action executed", outcome.Data["message"])
	assert.Equal(t, database, outcome.Data["config"])

	outcome, err = f.dispatcher.ExecuteNotification(context.Background(), notificationRequest(&models.NotificationConfig{}, nil))
	require.NoError(t, err)
	assert.Equal(t, "Notification sent", outcome.Data["message"])
}

func TestExecuteAction_Precedence(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	f.provider.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.HasPrefix(prompt, "Categorize this message and return as text:")
	}), ai.Options{MaxTokens: 1000, Temperature: 0.3}).Return("shipping", nil).Once()

	cfg := &models.ActionConfig{
		AITransform: &models.AITransformAction{TransformType: "categorize", OutputFormat: "text"},
		HTTP:        &models.HTTPAction{URL: "http://unused.invalid"},
	}

	outcome, err := f.dispatcher.ExecuteAction(context.Background(), actionRequest(cfg, chatTrigger()))
	require.NoError(t, err)
	assert.Equal(t, "AI data transformation completed", outcome.Data["message"])
	assert.Equal(t, "shipping", outcome.Data["transformedData"])
	assert.Empty(t, outcome.Variables)
}

func TestEmail_IntegrationNotConfigured(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.credentials.On("GetCredentials", mock.Anything, "user-1", models.IntegrationEmail).
		Return(nil, persistence.ErrIntegrationNotFound).Once()

	_, err := f.dispatcher.ExecuteAction(context.Background(), actionRequest(&models.ActionConfig{Email: &models.EmailAction{}}, nil))

	actionErr := requireActionError(t, err, "Email integration not configured")
	assert.EqualError(t, actionErr.Err, "No SMTP credentials found")
}

func TestEmail_Defaults(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.credentials.On("GetCredentials", mock.Anything, "user-1", models.IntegrationEmail).Return(smtpCredentials, nil).Once()
	f.mailer.On("Send", mock.Anything, mock.Anything, mock.MatchedBy(func(email *messaging.Email) bool {
		return email.From == "bot@example.com" &&
			assert.ObjectsAreEqual([]string{"bot@example.com"}, email.To) &&
			email.Subject == "Workflow notification" &&
			email.Body == "notification from FlowForge workflow" &&
			!email.HTML
	})).Return(nil).Once()

	outcome, err := f.dispatcher.ExecuteNotification(context.Background(),
		notificationRequest(&models.NotificationConfig{Email: &models.EmailAction{}}, nil))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"message": "notification email sent successfully",
		"to":      "bot@example.com",
		"subject": "Workflow notification",
	}, outcome.Data)
}

func TestEmail_TemplatesAndAttachments(t *testing.T) {
	t.Parallel()

	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("invoice-bytes"))
	}))
	defer files.Close()

	f := newFixture(t, files.Client())
	f.credentials.On("GetCredentials", mock.Anything, "user-1", models.IntegrationEmail).Return(smtpCredentials, nil).Once()

	var sent *messaging.Email

	f.mailer.On("Send", mock.Anything, messaging.SMTPConfig{
		Host: "smtp.example.com", Port: 587, Username: "bot@example.com", Password: "secret",
	}, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(2).(*messaging.Email)
	}).Return(nil).Once()

	cfg := &models.EmailAction{
		To:          "a@example.com, b@example.com",
		Cc:          "c@example.com",
		Subject:     "New message from {{ .trigger.senderName }}",
		Body:        "<p>{{ .trigger.message }}</p>",
		IsHTML:      true,
		Priority:    "high",
		Attachments: []models.Attachment{{URL: files.URL + "/invoice.pdf"}},
	}

	_, err := f.dispatcher.ExecuteAction(context.Background(), actionRequest(&models.ActionConfig{Email: cfg}, chatTrigger()))
	require.NoError(t, err)
	require.NotNil(t, sent)

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, sent.To)
	assert.Equal(t, []string{"c@example.com"}, sent.Cc)
	assert.Equal(t, "New message from Dana", sent.Subject)
	assert.Equal(t, "<p>My order never arrived</p>", sent.Body)
	assert.True(t, sent.HTML)
	assert.Equal(t, "high", sent.Priority)
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "invoice.pdf", sent.Attachments[0].Name)
	assert.Equal(t, []byte("invoice-bytes"), sent.Attachments[0].Content)
}

func TestEmail_SendFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.credentials.On("GetCredentials", mock.Anything, "user-1", models.IntegrationEmail).Return(smtpCredentials, nil).Once()
	f.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()

	_, err := f.dispatcher.ExecuteAction(context.Background(), actionRequest(&models.ActionConfig{Email: &models.EmailAction{}}, nil))

	actionErr := requireActionError(t, err, "action email sending failed")
	assert.EqualError(t, actionErr.Err, "connection refused")
}

func TestAIEmail_GeneratesAndSends(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.provider.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Write an empathetic response acknowledging their concern and offering a solution.") &&
			strings.Contains(prompt, `Customer Message: "My order never arrived"`) &&
			strings.Contains(prompt, "Customer Name: Dana") &&
			strings.Contains(prompt, "Include this call to action: Reply to track your parcel")
	}), ai.Options{MaxTokens: 1000, Temperature: 0.7}).
		Return("Sure!\n```json\n{\"subject\": \"About your order\", \"body\": \"We are on it.\", \"preview\": \"We are on it\"}\n```", nil).Once()
	f.credentials.On("GetCredentials", mock.Anything, "user-1", models.IntegrationEmail).Return(smtpCredentials, nil).Once()
	f.mailer.On("Send", mock.Anything, mock.Anything, mock.MatchedBy(func(email *messaging.Email) bool {
		return email.From == "support@example.com" &&
			assert.ObjectsAreEqual([]string{"dana@example.com"}, email.To) &&
			email.Subject == "About your order" &&
			email.Body == "We are on it."
	})).Return(nil).Once()

	cfg := &models.AIEmailAction{
		ContextType:         "complaint",
		Tone:                "empathetic",
		IncludeCallToAction: true,
		CallToActionText:    "Reply to track your parcel",
		RecipientEmail:      "dana@example.com",
		FromEmail:           "support@example.com",
	}

	outcome, err := f.dispatcher.ExecuteAction(context.Background(), actionRequest(&models.ActionConfig{AIEmail: cfg}, chatTrigger()))
	require.NoError(t, err)

	assert.Equal(t, "AI email generated and sent successfully", outcome.Data["message"])
	assert.Equal(t, "dana@example.com", outcome.Data["to"])
	assert.Equal(t, "We are on it", outcome.Data["preview"])
	assert.Equal(t, "complaint", outcome.Data["contextType"])
}

func TestAIEmail_RequiresTriggerData(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.dispatcher.ExecuteAction(context.Background(),
		actionRequest(&models.ActionConfig{AIEmail: &models.AIEmailAction{}}, nil))

	requireActionError(t, err, "AI email generation/sending failed")
	require.ErrorIs(t, err, actions.ErrNoTriggerData)
}

func TestParseGeneratedEmail_Fallback(t *testing.T) {
	t.Parallel()

	response := strings.Repeat("x", 150)
	email := actions.ParseGeneratedEmail(response)

	assert.Equal(t, "Response to your message", email.Subject)
	assert.Equal(t, response, email.Body)
	assert.Len(t, email.Preview, 100)
}

func TestAITransform_StoresJSONResult(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.provider.On("Complete", mock.Anything,
		"Extract structured data from this message and return as json:\n\"My order never arrived\"",
		ai.Options{MaxTokens: 1000, Temperature: 0.3}).
		Return(`Here you go: {"issue": "missing order"}`, nil).Once()

	cfg := &models.AITransformAction{TransformType: "extract", OutputFormat: "json", StoreResult: true, ResultVariableName: "order"}

	outcome, err := f.dispatcher.ExecuteAction(context.Background(), actionRequest(&models.ActionConfig{AITransform: cfg}, chatTrigger()))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"issue": "missing order"}, outcome.Data["transformedData"])
	assert.Equal(t, "order", outcome.Data["variableName"])
	assert.Equal(t, []workflow.Variable{{Name: "order", Value: map[string]any{"issue": "missing order"}}}, outcome.Variables)
}

func TestBuildAITransformPrompt(t *testing.T) {
	t.Parallel()

	prompt, ok := actions.BuildAITransformPrompt(&models.AITransformAction{
		TransformType: "custom",
		CustomPrompt:  "List the products mentioned",
		OutputFormat:  "json",
	}, "two apples")
	require.True(t, ok)
	assert.Equal(t, "List the products mentioned\n\nData: \"two apples\"\n\nReturn as json", prompt)

	_, ok = actions.BuildAITransformPrompt(&models.AITransformAction{TransformType: "rewrite"}, "x")
	assert.False(t, ok)
}

func TestParseTransformOutput(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain", actions.ParseTransformOutput("text", "plain"))
	assert.Equal(t, map[string]any{"result": "no json here"}, actions.ParseTransformOutput("json", "no json here"))
	assert.Equal(t, map[string]any{"result": "{broken"}, actions.ParseTransformOutput("json", "{broken"))
	assert.Equal(t, map[string]any{"a": 1.0}, actions.ParseTransformOutput("json", `{"a": 1}`))
}

func TestAISMS_TruncatesToLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.provider.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.HasPrefix(prompt, "Generate a reminder SMS message\n\nMessage context: \"My order never arrived\"\nCharacter limit: 20 characters\nDo not include links")
	}), ai.Options{MaxTokens: 200, Temperature: 0.7}).
		Return("  Your parcel ships tomorrow morning.  ", nil).Once()

	cfg := &models.NotificationConfig{AISMS: &models.AISMSNotification{ContextType: "reminder", CharacterLimit: 20}}

	outcome, err := f.dispatcher.ExecuteNotification(context.Background(), notificationRequest(cfg, chatTrigger()))
	require.NoError(t, err)

	assert.Equal(t, "Your parcel ships to", outcome.Data["smsMessage"])
	assert.Equal(t, 20, outcome.Data["characterCount"])
	assert.Equal(t, "15551234", outcome.Data["recipientPhone"])
}

func TestBuildAISMSPrompt_DefaultLimitAndLink(t *testing.T) {
	t.Parallel()

	prompt := actions.BuildAISMSPrompt(&models.AISMSNotification{
		CustomMessage: "Tell them about the sale",
		IncludeLink:   true,
		LinkURL:       "https://shop.example.com",
	}, "hi")

	assert.Contains(t, prompt, "Tell them about the sale")
	assert.Contains(t, prompt, "Character limit: 160 characters")
	assert.Contains(t, prompt, "Include this link: https://shop.example.com")
}

func TestAIChat_RepairsCutOffReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	credentials := map[string]string{"phoneNumberId": "123", "accessToken": "tok"}

	f.provider.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.HasPrefix(prompt, "Generate a chat message reply")
	}), ai.Options{MaxTokens: 500, Temperature: 0.7}).Return("Sorry to hear that, we will", nil).Once()
	f.provider.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, `Draft reply (cut off): "Sorry to hear that, we will"`)
	}), ai.Options{MaxTokens: 250, Temperature: 0.4}).Return("Sorry to hear that, we will refund you today!", nil).Once()
	f.credentials.On("GetCredentials", mock.Anything, "user-1", "whatsapp").Return(credentials, nil).Once()
	f.chat.On("Send", mock.Anything, "whatsapp", "15551234", "Sorry to hear that, we will refund you today!", credentials).Return(nil).Once()

	cfg := &models.AIChatAction{ContextType: "complaint", Tone: "empathetic", MessageLength: "short"}

	outcome, err := f.dispatcher.ExecuteAction(context.Background(), actionRequest(&models.ActionConfig{AIChat: cfg}, chatTrigger()))
	require.NoError(t, err)

	assert.Equal(t, "AI chat message generated and sent successfully", outcome.Data["message"])
	assert.Equal(t, "Dana", outcome.Data["recipientName"])
	assert.Equal(t, "Sorry to hear that, we will refund you today!", outcome.Data["chatMessage"])
}

func TestAIChat_SendFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	trigger := chatTrigger()
	trigger["platform"] = "sms"

	f.provider.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("Thanks for reaching out.", nil).Once()
	f.credentials.On("GetCredentials", mock.Anything, "user-1", "sms").Return(map[string]string{}, nil).Once()
	f.chat.On("Send", mock.Anything, "sms", "15551234", "Thanks for reaching out.", map[string]string{}).
		Return(messaging.ErrPlatformNotSupported).Once()

	_, err := f.dispatcher.ExecuteAction(context.Background(),
		actionRequest(&models.ActionConfig{AIChat: &models.AIChatAction{ContextType: "response"}}, trigger))

	requireActionError(t, err, "AI chat message generation/sending failed")
	require.ErrorIs(t, err, messaging.ErrPlatformNotSupported)
}

func TestAIChat_MissingIntegration(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	f.provider.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("On it.", nil).Once()
	f.credentials.On("GetCredentials", mock.Anything, "user-1", "whatsapp").Return(nil, persistence.ErrIntegrationNotFound).Once()

	_, err := f.dispatcher.ExecuteAction(context.Background(),
		actionRequest(&models.ActionConfig{AIChat: &models.AIChatAction{}}, chatTrigger()))

	require.ErrorIs(t, err, actions.ErrIntegrationNotConfigured)
}

func TestEndsWithSentence(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"Done.":              true,
		"Really?":            true,
		`He said "hi!"`:      true,
		"(see you soon.) ":   true,
		"and then we":        false,
		"Thanks for waiting": false,
	}

	for reply, want := range tests {
		assert.Equal(t, want, actions.EndsWithSentence(reply), reply)
	}
}

func TestHTTPAction(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "dana", r.URL.Query().Get("user"))

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	f := newFixture(t, server.Client())

	cfg := &models.HTTPAction{URL: server.URL + "/hook?user={{ .trigger.senderName | printf \"%s\" }}", Method: "post"}
	trigger := chatTrigger()
	trigger["senderName"] = "dana"

	outcome, err := f.dispatcher.ExecuteAction(context.Background(), actionRequest(&models.ActionConfig{HTTP: cfg}, trigger))
	require.NoError(t, err)

	assert.Equal(t, "HTTP request executed", outcome.Data["message"])
	assert.Equal(t, http.StatusAccepted, outcome.Data["statusCode"])
	assert.Equal(t, server.URL+"/hook?user=dana", outcome.Data["url"])
}

func TestHTTPAction_TransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	f := newFixture(t, nil)

	_, err := f.dispatcher.ExecuteAction(context.Background(),
		actionRequest(&models.ActionConfig{HTTP: &models.HTTPAction{URL: url}}, nil))

	requireActionError(t, err, "HTTP request failed")
}

func TestDispatcher_DrivesExecutor(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.provider.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("summary text", nil).Once()

	trigger := &models.Node{ID: "t", Kind: models.NodeKindTrigger, Config: models.NodeConfig{Trigger: &models.TriggerConfig{Type: models.TriggerTypeManual}}}
	transform := &models.Node{ID: "a", Kind: models.NodeKindAction, Config: models.NodeConfig{Action: &models.ActionConfig{
		AITransform: &models.AITransformAction{TransformType: "summarize", OutputFormat: "text", StoreResult: true},
	}}}

	executor := workflow.NewExecutor(f.dispatcher, nil, slog.Default())
	graph := models.NewGraph([]*models.Node{trigger, transform}, []*models.Edge{{Source: "t", Target: "a"}})

	results, err := executor.Execute(context.Background(), graph, "user-1", map[string]any{"message": "long text"})
	require.NoError(t, err)

	assert.Equal(t, []string{"t", "a", "transformedData"}, results.Keys())

	stored, ok := results.Get("transformedData")
	require.True(t, ok)
	assert.Equal(t, models.ResultKindVariable, stored.Kind)
	assert.Equal(t, "summary text", stored.Data)
}
