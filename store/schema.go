package store

// baseSchemaSQL returns the DDL for a brand-new store: nodes, edges, the
// standalone (non-external-content) nodes_fts table, and its sync triggers.
// nodes_fts is standalone rather than an FTS5 "external content" table
// because nodes.id is a TEXT locus id, not an INTEGER rowid, so the usual
// content_rowid= wiring the teacher uses for chunks_fts does not apply here.
const baseSchemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
    id       TEXT PRIMARY KEY,
    type     TEXT NOT NULL,
    title    TEXT,
    content  TEXT,
    domain   TEXT NOT NULL,
    layer    TEXT NOT NULL,
    embedding BLOB,
    hash     TEXT,
    meta     TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS edges (
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    type   TEXT NOT NULL,
    PRIMARY KEY (source, target, type)
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);

CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
    id UNINDEXED,
    title,
    content,
    meta,
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS nodes_ai AFTER INSERT ON nodes BEGIN
    INSERT INTO nodes_fts(id, title, content, meta) VALUES (new.id, new.title, new.content, new.meta);
END;
CREATE TRIGGER IF NOT EXISTS nodes_ad AFTER DELETE ON nodes BEGIN
    DELETE FROM nodes_fts WHERE id = old.id;
END;
CREATE TRIGGER IF NOT EXISTS nodes_au AFTER UPDATE ON nodes BEGIN
    DELETE FROM nodes_fts WHERE id = old.id;
    INSERT INTO nodes_fts(id, title, content, meta) VALUES (new.id, new.title, new.content, new.meta);
END;
`
