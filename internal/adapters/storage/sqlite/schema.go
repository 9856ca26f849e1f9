package sqlite

// schemaSQL creates every table spec.md §4.2 describes. Foreign keys
// cascade from provenance/document down to every derived-entity table, so
// deleting a document's provenance sub-tree (the failure-model cleanup
// path) cascades automatically rather than requiring per-table delete
// statements at every call site.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS provenance (
	id                       TEXT PRIMARY KEY,
	type                     TEXT NOT NULL,
	source_type              TEXT NOT NULL,
	processor                TEXT NOT NULL,
	processor_version        TEXT NOT NULL,
	processing_params_json   TEXT NOT NULL DEFAULT '{}',
	content_hash             TEXT NOT NULL,
	input_hash               TEXT NOT NULL DEFAULT '',
	file_hash                TEXT NOT NULL DEFAULT '',
	parent_id                TEXT REFERENCES provenance(id) ON DELETE CASCADE,
	parent_ids_json          TEXT NOT NULL DEFAULT '[]',
	root_document_id         TEXT NOT NULL,
	chain_depth              INTEGER NOT NULL DEFAULT 0,
	chain_path_json          TEXT NOT NULL DEFAULT '[]',
	chain_hash               TEXT,
	location_json            TEXT,
	processing_duration_ms   INTEGER NOT NULL DEFAULT 0,
	processing_quality_score REAL,
	created_at               DATETIME NOT NULL,
	processed_at             DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_provenance_parent ON provenance(parent_id);
CREATE INDEX IF NOT EXISTS idx_provenance_root ON provenance(root_document_id);
CREATE INDEX IF NOT EXISTS idx_provenance_null_chain_hash ON provenance(chain_hash) WHERE chain_hash IS NULL;

CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	provenance_id  TEXT NOT NULL REFERENCES provenance(id) ON DELETE CASCADE,
	file_hash      TEXT NOT NULL,
	file_path      TEXT NOT NULL,
	status         TEXT NOT NULL,
	page_count     INTEGER NOT NULL DEFAULT 0,
	title          TEXT NOT NULL DEFAULT '',
	author         TEXT NOT NULL DEFAULT '',
	subject        TEXT NOT NULL DEFAULT '',
	ocr_completed_at DATETIME,
	error_message  TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL,
	modified_at    DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_path ON documents(file_path);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(file_hash);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status, created_at);

CREATE TABLE IF NOT EXISTS ocr_results (
	id                 TEXT PRIMARY KEY,
	provenance_id      TEXT NOT NULL REFERENCES provenance(id) ON DELETE CASCADE,
	document_id        TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	text               TEXT NOT NULL,
	page_offsets_json  TEXT NOT NULL DEFAULT '[]',
	block_tree_json    TEXT NOT NULL DEFAULT '[]',
	mode               TEXT NOT NULL,
	extras_json        TEXT NOT NULL DEFAULT '{}',
	step_durations_json TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_ocr_results_document ON ocr_results(document_id);

CREATE TABLE IF NOT EXISTS chunks (
	id                 TEXT PRIMARY KEY,
	provenance_id      TEXT NOT NULL REFERENCES provenance(id) ON DELETE CASCADE,
	document_id        TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	content            TEXT NOT NULL,
	chunk_index        INTEGER NOT NULL,
	char_start         INTEGER NOT NULL,
	char_end           INTEGER NOT NULL,
	page               INTEGER,
	page_range_start   INTEGER,
	page_range_end     INTEGER,
	heading_context_json TEXT NOT NULL DEFAULT '[]',
	section_path       TEXT NOT NULL DEFAULT '',
	content_type_tags_json TEXT NOT NULL DEFAULT '[]',
	atomic             INTEGER NOT NULL DEFAULT 0,
	overlap_previous   INTEGER NOT NULL DEFAULT 0,
	overlap_next       INTEGER NOT NULL DEFAULT 0,
	table_meta_json    TEXT,
	embedding_status   TEXT NOT NULL DEFAULT 'pending',
	system_tags_json   TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, chunk_index);

CREATE TABLE IF NOT EXISTS embeddings (
	id             TEXT PRIMARY KEY,
	provenance_id  TEXT NOT NULL REFERENCES provenance(id) ON DELETE CASCADE,
	chunk_id       TEXT REFERENCES chunks(id) ON DELETE CASCADE,
	image_id       TEXT,
	extraction_id  TEXT,
	original_text  TEXT NOT NULL,
	model_name     TEXT NOT NULL,
	model_version  TEXT NOT NULL,
	task_type      TEXT NOT NULL,
	inference_mode TEXT NOT NULL DEFAULT '',
	vector_id      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_embeddings_chunk ON embeddings(chunk_id);
CREATE INDEX IF NOT EXISTS idx_embeddings_image ON embeddings(image_id);

CREATE TABLE IF NOT EXISTS images (
	id             TEXT PRIMARY KEY,
	provenance_id  TEXT NOT NULL REFERENCES provenance(id) ON DELETE CASCADE,
	document_id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	file_path      TEXT NOT NULL,
	content_hash   TEXT NOT NULL,
	page           INTEGER NOT NULL DEFAULT 0,
	block_type     TEXT NOT NULL DEFAULT 'unknown',
	is_header      INTEGER NOT NULL DEFAULT 0,
	is_footer      INTEGER NOT NULL DEFAULT 0,
	context_text   TEXT NOT NULL DEFAULT '',
	width          INTEGER NOT NULL DEFAULT 0,
	height         INTEGER NOT NULL DEFAULT 0,
	vlm_status     TEXT NOT NULL DEFAULT 'pending'
);
CREATE INDEX IF NOT EXISTS idx_images_document ON images(document_id);
CREATE INDEX IF NOT EXISTS idx_images_vlm_status ON images(vlm_status);

CREATE TABLE IF NOT EXISTS vlm_descriptions (
	id             TEXT PRIMARY KEY,
	provenance_id  TEXT NOT NULL REFERENCES provenance(id) ON DELETE CASCADE,
	image_id       TEXT NOT NULL REFERENCES images(id) ON DELETE CASCADE,
	description    TEXT NOT NULL,
	analysis_json  TEXT NOT NULL DEFAULT '{}',
	image_type     TEXT NOT NULL DEFAULT '',
	confidence     REAL NOT NULL DEFAULT 0,
	model_name     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vlm_descriptions_image ON vlm_descriptions(image_id);

CREATE TABLE IF NOT EXISTS extractions (
	id             TEXT PRIMARY KEY,
	provenance_id  TEXT NOT NULL REFERENCES provenance(id) ON DELETE CASCADE,
	document_id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	schema_name    TEXT NOT NULL,
	payload_json   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extractions_document ON extractions(document_id);

CREATE TABLE IF NOT EXISTS clusters (
	id              TEXT PRIMARY KEY,
	provenance_id   TEXT NOT NULL REFERENCES provenance(id) ON DELETE CASCADE,
	run_id          TEXT NOT NULL,
	algorithm       TEXT NOT NULL,
	centroid_json   TEXT NOT NULL DEFAULT '[]',
	top_terms_json  TEXT NOT NULL DEFAULT '[]',
	coherence_score REAL NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clusters_run ON clusters(run_id);

CREATE TABLE IF NOT EXISTS cluster_members (
	cluster_id             TEXT NOT NULL REFERENCES clusters(id) ON DELETE CASCADE,
	document_id            TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	similarity_to_centroid REAL NOT NULL DEFAULT 0,
	noise                  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (cluster_id, document_id)
);

CREATE TABLE IF NOT EXISTS comparisons (
	id               TEXT PRIMARY KEY,
	provenance_id    TEXT NOT NULL REFERENCES provenance(id) ON DELETE CASCADE,
	document_a_id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	document_b_id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	text_diff_json   TEXT NOT NULL,
	structural_diff_json TEXT NOT NULL,
	content_hash     TEXT NOT NULL,
	created_at       DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_comparisons_pair ON comparisons(document_a_id, document_b_id);

CREATE TABLE IF NOT EXISTS config (
	id        INTEGER PRIMARY KEY CHECK (id = 1),
	json      TEXT NOT NULL
);
`
