package postgresql

const migrationsTable = "crm_schema_migrations"

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS contacts (
				id VARCHAR(255) PRIMARY KEY,
				attributes JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS contact_lists (
				id VARCHAR(255) PRIMARY KEY,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS contact_list_members (
				list_id VARCHAR(255) NOT NULL REFERENCES contact_lists(id) ON DELETE CASCADE,
				contact_id VARCHAR(255) NOT NULL,
				added_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT clock_timestamp(),
				PRIMARY KEY (list_id, contact_id)
			);

			CREATE INDEX IF NOT EXISTS idx_contact_list_members_contact_id ON contact_list_members(contact_id);
		`,
	}
}
