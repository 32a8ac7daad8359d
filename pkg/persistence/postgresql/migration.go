package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE rules (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(64) NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT true,
				priority INTEGER NOT NULL DEFAULT 0,
				definition JSONB NOT NULL,
				position BIGSERIAL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_rules_trigger_type ON rules(trigger_type);

			CREATE TABLE document_templates (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				definition JSONB NOT NULL,
				position BIGSERIAL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`,
		2: `
			CREATE TABLE workflow_executions (
				id VARCHAR(64) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(64) NOT NULL,
				trigger_data JSONB,
				status VARCHAR(32) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed', 'cancelled')),
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT NOT NULL DEFAULT '',
				execution_log JSONB NOT NULL DEFAULT '[]'
			);

			CREATE INDEX idx_workflow_executions_workflow_id ON workflow_executions(workflow_id);
			CREATE INDEX idx_workflow_executions_started_at ON workflow_executions(started_at);
		`,
	}
}
