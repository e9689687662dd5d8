package postgresql

import "github.com/BabaVossRS3/FlowForge/pkg/persistence/sqlbase"

func migrations() []sqlbase.Migration {
	return []sqlbase.Migration{
		{
			Version: 1,
			Name:    "create workflows",
			SQL:     `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL DEFAULT '',
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				is_active BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_user_id ON workflows(user_id);
			CREATE INDEX idx_workflows_is_active ON workflows(is_active);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);
		`,
		},
		{
			Version: 2,
			Name:    "create execution logs",
			SQL:     `
			CREATE TABLE execution_logs (
				seq BIGSERIAL PRIMARY KEY,
				id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
				status VARCHAR(50) NOT NULL,
				message TEXT NOT NULL DEFAULT '',
				source VARCHAR(50) NOT NULL DEFAULT '',
				results JSONB,
				error TEXT NOT NULL DEFAULT '',
				context JSONB,
				UNIQUE (workflow_id, id)
			);

			CREATE INDEX idx_execution_logs_workflow_id ON execution_logs(workflow_id);
			CREATE INDEX idx_execution_logs_status ON execution_logs(status);
		`,
		},
		{
			Version: 3,
			Name:    "create integrations",
			SQL:     `
			CREATE TABLE integrations (
				user_id VARCHAR(255) NOT NULL,
				integration_id VARCHAR(255) NOT NULL,
				credentials JSONB NOT NULL DEFAULT '{}',
				is_active BOOLEAN NOT NULL DEFAULT true,
				last_updated TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (user_id, integration_id)
			);
		`,
		},
	}
}
