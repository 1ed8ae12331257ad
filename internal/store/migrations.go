package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create contacts, conversations, messages and facts",
		SQL: `
			CREATE TABLE contacts (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				created_at  TEXT NOT NULL
			);

			CREATE UNIQUE INDEX idx_contacts_name ON contacts (name);

			CREATE TABLE conversations (
				id          TEXT PRIMARY KEY,
				contact_id  TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
				start_time  TEXT NOT NULL,
				end_time    TEXT,
				summary     TEXT
			);

			CREATE INDEX idx_conversations_contact ON conversations (contact_id, start_time);
			CREATE UNIQUE INDEX idx_conversations_open ON conversations (contact_id) WHERE end_time IS NULL;

			CREATE TABLE messages (
				id               TEXT PRIMARY KEY,
				contact_id       TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
				conversation_id  TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
				role             TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
				content          TEXT NOT NULL,
				message_type     TEXT NOT NULL CHECK (message_type IN ('chat', 'tool_use')),
				tool_use_id      TEXT,
				tool_use_name    TEXT,
				tool_use_input   TEXT,
				timestamp        TEXT NOT NULL,
				CHECK ((message_type = 'chat') = (tool_use_id IS NULL))
			);

			CREATE INDEX idx_messages_contact ON messages (contact_id, timestamp);
			CREATE INDEX idx_messages_conversation ON messages (conversation_id, timestamp);

			CREATE TABLE facts (
				id          TEXT PRIMARY KEY,
				contact_id  TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
				content     TEXT NOT NULL,
				created_at  TEXT NOT NULL
			);

			CREATE INDEX idx_facts_contact ON facts (contact_id, created_at);
		`,
	},
	{
		Version: 2,
		Name:    "create fact search with FTS5",
		SQL: `
			CREATE VIRTUAL TABLE facts_fts USING fts5(
				content,
				content='facts',
				content_rowid='rowid'
			);

			CREATE TRIGGER facts_ai AFTER INSERT ON facts BEGIN
				INSERT INTO facts_fts(rowid, content) VALUES (new.rowid, new.content);
			END;

			CREATE TRIGGER facts_ad AFTER DELETE ON facts BEGIN
				INSERT INTO facts_fts(facts_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
			END;

			CREATE TRIGGER facts_au AFTER UPDATE ON facts BEGIN
				INSERT INTO facts_fts(facts_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
				INSERT INTO facts_fts(rowid, content) VALUES (new.rowid, new.content);
			END;
		`,
	},
}
