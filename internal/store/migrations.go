package store

// Migration is a single versioned schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_transcripts",
		SQL: `
			CREATE TABLE transcripts (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
			CREATE UNIQUE INDEX idx_transcripts_user_id ON transcripts(user_id);

			CREATE TABLE turns (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				transcript_id TEXT NOT NULL REFERENCES transcripts(id) ON DELETE CASCADE,
				role TEXT NOT NULL,
				content TEXT NOT NULL,
				timestamp TEXT NOT NULL
			);
			CREATE INDEX idx_turns_transcript_id ON turns(transcript_id);
		`,
	},
	{
		Version: 2,
		Name:    "create_documents",
		SQL: `
			CREATE TABLE documents (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				created_at TEXT NOT NULL
			);

			CREATE TABLE passages (
				id TEXT PRIMARY KEY,
				document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
				content TEXT NOT NULL,
				position INTEGER NOT NULL,
				embedding BLOB NOT NULL
			);
			CREATE INDEX idx_passages_document_id ON passages(document_id);
		`,
	},
}
