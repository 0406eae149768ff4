package store

// Schema is the complete onglet schema, applied idempotently on open.
const schema = `
-- Conversation log: append-only, cleared wholesale on user request.
CREATE TABLE IF NOT EXISTS messages (
    id             TEXT PRIMARY KEY,
    role           TEXT NOT NULL,
    content        TEXT NOT NULL,
    citations_json TEXT NOT NULL DEFAULT '[]',
    created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_time ON messages(created_at);

-- Single-row cache of the last published snapshot, rewritten wholesale on
-- every publish so a restart can serve tab data before the first refresh.
CREATE TABLE IF NOT EXISTS snapshot_cache (
    id            INTEGER PRIMARY KEY CHECK (id = 1),
    snapshot_json TEXT NOT NULL,
    updated_at    INTEGER NOT NULL
);
`
