package store

const Schema = `
CREATE TABLE IF NOT EXISTS history (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	platform TEXT,
	status TEXT NOT NULL,
	thumbnail_base64 TEXT,
	timestamp INTEGER NOT NULL,
	filename TEXT,
	file_path TEXT,
	file_size INTEGER DEFAULT 0,
	is_playlist BOOLEAN DEFAULT 0,
	playlist_name TEXT,
	items TEXT  -- JSON array of playlist items
);

-- url is intentionally NOT unique: a retried URL is re-recorded under a new id
CREATE INDEX IF NOT EXISTS idx_history_url ON history(url);
CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
