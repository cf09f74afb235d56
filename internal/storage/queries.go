package storage

// Database schema queries
const (
	queryCreateKVTable = `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`

	queryCreateMessagesTable = `CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		pending INTEGER NOT NULL DEFAULT 0,
		kind TEXT,
		model TEXT,
		cost_saved REAL,
		compliance_status TEXT,
		metrics_json TEXT,
		plagiarism_json TEXT,
		compliance_json TEXT
	)`

	queryCreateMessagesFTS = `CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
		content,
		content=messages,
		content_rowid=seq
	)`

	queryCreateIndexMessagesRole   = `CREATE INDEX IF NOT EXISTS idx_messages_role ON messages(role)`
	queryCreateIndexMessagesModel  = `CREATE INDEX IF NOT EXISTS idx_messages_model ON messages(model)`
	queryCreateIndexMessagesStatus = `CREATE INDEX IF NOT EXISTS idx_messages_status ON messages(compliance_status)`

	queryCreateMessagesInsertTrigger = `CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages
	BEGIN
		INSERT INTO messages_fts(rowid, content) VALUES (new.seq, new.content);
	END`

	queryCreateMessagesDeleteTrigger = `CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages
	BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.seq, old.content);
	END`

	queryCreateMessagesUpdateTrigger = `CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages
	BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.seq, old.content);
		INSERT INTO messages_fts(rowid, content) VALUES (new.seq, new.content);
	END`

	queryGetKV    = `SELECT value FROM kv WHERE key = ?`
	querySetKV    = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	queryDeleteKV = `DELETE FROM kv WHERE key = ?`

	queryUpsertMessage = `INSERT INTO messages (id, role, content, timestamp, pending, kind, model, cost_saved, compliance_status, metrics_json, plagiarism_json, compliance_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			role = excluded.role,
			content = excluded.content,
			timestamp = excluded.timestamp,
			pending = excluded.pending,
			kind = excluded.kind,
			model = excluded.model,
			cost_saved = excluded.cost_saved,
			compliance_status = excluded.compliance_status,
			metrics_json = excluded.metrics_json,
			plagiarism_json = excluded.plagiarism_json,
			compliance_json = excluded.compliance_json`

	messageColumns = `m.id, m.role, m.content, m.timestamp, m.pending, m.kind, m.model, m.metrics_json, m.plagiarism_json, m.compliance_json`

	querySelectMessage = `SELECT ` + messageColumns + ` FROM messages m WHERE m.id = ?`

	queryDeleteMessage   = `DELETE FROM messages WHERE id = ?`
	queryClearMessages   = `DELETE FROM messages`
	querySelectMessageID = `SELECT id FROM messages`

	querySearchMessages = `
		SELECT ` + messageColumns + `, snippet(messages_fts, 0, '[', ']', '...', 16), bm25(messages_fts) AS score
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.seq
		WHERE messages_fts MATCH ?`

	queryCountByRole    = `SELECT role, COUNT(*) FROM messages WHERE pending = 0 GROUP BY role`
	querySumCostSaved   = `SELECT COALESCE(SUM(cost_saved), 0) FROM messages WHERE pending = 0`
	queryGroupByModel   = `SELECT model, COUNT(*) FROM messages WHERE pending = 0 AND model IS NOT NULL AND model != '' GROUP BY model`
	queryGroupByStatus  = `SELECT compliance_status, COUNT(*) FROM messages WHERE pending = 0 AND compliance_status IS NOT NULL AND compliance_status != '' GROUP BY compliance_status`
	queryTimestampRange = `SELECT MIN(timestamp), MAX(timestamp) FROM messages WHERE pending = 0`
)
