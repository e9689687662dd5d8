package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BabaVossRS3/FlowForge/pkg/config"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definitions = `
workflows:
  - id: daily-report
    userId: user-1
    name: Daily report
    isActive: true
    nodes:
      - id: trigger-1
        kind: trigger
        config:
          type: schedule
          schedule:
            scheduleType: cron
            cronExpression: "0 9 * * *"
      - id: notify
        kind: notification
        label: Tell the team
        config:
          type: email
          email:
            to: team@example.com
            subject: Report ready
    edges:
      - source: trigger-1
        target: notify
  - name: Draft
    nodes: []
`

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadWorkflows(t *testing.T) {
	t.Parallel()

	workflows, err := config.LoadWorkflows(writeFile(t, definitions))
	require.NoError(t, err)
	require.Len(t, workflows, 2)

	report := workflows[0]
	assert.Equal(t, "daily-report", report.ID)
	assert.Equal(t, "user-1", report.UserID)
	assert.True(t, report.IsActive)
	require.Len(t, report.Nodes, 2)
	require.Len(t, report.Edges, 1)
	assert.Equal(t, "Tell the team", report.Nodes[1].Label)
	require.NotNil(t, report.Nodes[1].Config.Notification)
	assert.Equal(t, "team@example.com", report.Nodes[1].Config.Notification.Email.To)

	schedule := report.ScheduleConfig()
	require.NotNil(t, schedule)
	assert.Equal(t, models.ScheduleTypeCron, schedule.ScheduleType)
	assert.Equal(t, "0 9 * * *", schedule.CronExpression)

	draft := workflows[1]
	assert.Empty(t, draft.ID)
	assert.False(t, draft.IsActive)
}

func TestLoadWorkflows_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadWorkflows(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read definition file")
}

func TestParseWorkflows_AcceptsJSON(t *testing.T) {
	t.Parallel()

	workflows, err := config.ParseWorkflows([]byte(`{"workflows": [{"name": "From JSON", "nodes": [{"id": "t", "kind": "trigger", "config": {"type": "manually"}}]}]}`))
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, models.TriggerTypeManual, workflows[0].TriggerConfig().Type)
}

func TestParseWorkflows_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
		errText string
	}{
		{
			name:    "invalid yaml",
			content: "workflows: [",
			errText: "failed to parse YAML definitions",
		},
		{
			name:    "no workflows key",
			content: "receivers: []",
			wantErr: config.ErrMissingWorkflows,
		},
		{
			name:    "empty list",
			content: "workflows: []",
			wantErr: config.ErrNoWorkflows,
		},
		{
			name:    "missing name",
			content: "workflows:\n  - id: a\n",
			errText: "Name",
		},
		{
			name: "duplicate id",
			content: `
workflows:
  - {id: a, name: One}
  - {id: a, name: Two}
`,
			wantErr: config.ErrDuplicateID,
		},
		{
			name: "duplicate node id",
			content: `
workflows:
  - name: One
    nodes:
      - {id: n, kind: action}
      - {id: n, kind: action}
`,
			wantErr: config.ErrDuplicateNodeID,
		},
		{
			name: "dangling edge",
			content: `
workflows:
  - name: One
    nodes:
      - {id: n, kind: action}
    edges:
      - {source: n, target: ghost}
`,
			wantErr: config.ErrUnknownEdgeNode,
		},
		{
			name: "active without trigger",
			content: `
workflows:
  - name: One
    isActive: true
    nodes:
      - {id: n, kind: action}
`,
			wantErr: config.ErrMissingTrigger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.ParseWorkflows([]byte(tt.content))
			require.Error(t, err)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			if tt.errText != "" {
				assert.Contains(t, err.Error(), tt.errText)
			}
		})
	}
}
