// Package xrefstore persists the cross-reference records of every build in
// SQLite so later builds and tools can query uids, references and
// dependencies without reinterpreting documents.
package xrefstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/interpret"
	"git.home.luguber.info/inful/docschema/internal/util/sets"
	"git.home.luguber.info/inful/docschema/internal/xref"
)

const memoryPath = ":memory:"

// Build summarizes one recorded build.
type Build struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Documents  int
}

// DocumentRecord is everything a build learned about one document.
type DocumentRecord struct {
	Document          string
	OutputPath        string
	Uids              []xref.UidDefinition
	XRefSpecs         []*xref.XRefSpec
	ExternalXRefSpecs []*xref.XRefSpec
	FileLinkSources   xref.LinkSources
	UidLinkSources    xref.LinkSources
	Dependencies      []string
}

// RecordFromContext snapshots an interpretation context.
func RecordFromContext(c *interpret.Context) DocumentRecord {
	return DocumentRecord{
		Document:          c.Document,
		OutputPath:        c.OutputPath(),
		Uids:              c.Uids,
		XRefSpecs:         c.XRefSpecs,
		ExternalXRefSpecs: c.ExternalXRefSpecs,
		FileLinkSources:   c.FileLinkSources,
		UidLinkSources:    c.UidLinkSources,
		Dependencies:      sets.Sorted(c.Dependency),
	}
}

// SQLiteStore stores build records in SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens the database at dbPath, creating it and its parent
// directory if needed. Use ":memory:" for a throwaway database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != memoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, wrap(ErrDatabaseOpenFailed, err).WithContext("path", dbPath)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap(ErrDatabaseOpenFailed, err).WithContext("path", dbPath)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, wrap(ErrInitializeSchemaFailed, err).WithContext("path", dbPath)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		outcome TEXT NOT NULL DEFAULT '',
		documents INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS documents (
		build_id TEXT NOT NULL,
		document TEXT NOT NULL,
		output_path TEXT NOT NULL,
		PRIMARY KEY (build_id, document)
	);
	CREATE TABLE IF NOT EXISTS uids (
		build_id TEXT NOT NULL,
		uid TEXT NOT NULL,
		file TEXT NOT NULL,
		path TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS xref_specs (
		build_id TEXT NOT NULL,
		document TEXT NOT NULL,
		uid TEXT NOT NULL,
		internal INTEGER NOT NULL,
		properties TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS link_sources (
		build_id TEXT NOT NULL,
		document TEXT NOT NULL,
		kind TEXT NOT NULL,
		target TEXT NOT NULL,
		source_file TEXT NOT NULL,
		anchor TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS dependencies (
		build_id TEXT NOT NULL,
		document TEXT NOT NULL,
		dependency TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS diagnostics (
		build_id TEXT NOT NULL,
		code TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		uid TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL DEFAULT '',
		file TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_uids_build ON uids(build_id, uid);
	CREATE INDEX IF NOT EXISTS idx_xref_build ON xref_specs(build_id, uid);
	CREATE INDEX IF NOT EXISTS idx_links_build ON link_sources(build_id, kind, target);
	CREATE INDEX IF NOT EXISTS idx_deps_build ON dependencies(build_id, dependency);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginBuild records the start of a build.
func (s *SQLiteStore) BeginBuild(ctx context.Context, buildID string, started time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (id, started_at) VALUES (?, ?)",
		buildID, started.UnixMilli(),
	)
	if err != nil {
		return wrap(ErrWriteFailed, err).WithContext("build_id", buildID)
	}
	return nil
}

// FinishBuild records the outcome of a build started with BeginBuild.
func (s *SQLiteStore) FinishBuild(ctx context.Context, buildID, outcome string, documents int, finished time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE builds SET finished_at = ?, outcome = ?, documents = ? WHERE id = ?",
		finished.UnixMilli(), outcome, documents, buildID,
	)
	if err != nil {
		return wrap(ErrWriteFailed, err).WithContext("build_id", buildID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBuildNotFound.WithContext("build_id", buildID)
	}
	return nil
}

// SaveDocument writes every record of one document in a single transaction.
func (s *SQLiteStore) SaveDocument(ctx context.Context, buildID string, rec DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(ErrWriteFailed, err).WithContext("build_id", buildID)
	}
	if err := saveDocument(ctx, tx, buildID, rec); err != nil {
		_ = tx.Rollback()
		return wrap(ErrWriteFailed, err).
			WithContext("build_id", buildID).
			WithContext("document", rec.Document)
	}
	if err := tx.Commit(); err != nil {
		return wrap(ErrWriteFailed, err).WithContext("build_id", buildID)
	}
	return nil
}

func saveDocument(ctx context.Context, tx *sql.Tx, buildID string, rec DocumentRecord) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO documents (build_id, document, output_path) VALUES (?, ?, ?)",
		buildID, rec.Document, rec.OutputPath,
	); err != nil {
		return err
	}
	for _, def := range rec.Uids {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO uids (build_id, uid, file, path) VALUES (?, ?, ?, ?)",
			buildID, def.UID, def.File, def.Path,
		); err != nil {
			return err
		}
	}
	if err := saveSpecs(ctx, tx, buildID, rec.Document, rec.XRefSpecs, true); err != nil {
		return err
	}
	if err := saveSpecs(ctx, tx, buildID, rec.Document, rec.ExternalXRefSpecs, false); err != nil {
		return err
	}
	if err := saveLinks(ctx, tx, buildID, rec.Document, linkKindFile, rec.FileLinkSources); err != nil {
		return err
	}
	if err := saveLinks(ctx, tx, buildID, rec.Document, linkKindUID, rec.UidLinkSources); err != nil {
		return err
	}
	for _, dep := range rec.Dependencies {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO dependencies (build_id, document, dependency) VALUES (?, ?, ?)",
			buildID, rec.Document, dep,
		); err != nil {
			return err
		}
	}
	return nil
}

func saveSpecs(ctx context.Context, tx *sql.Tx, buildID, document string, specs []*xref.XRefSpec, internal bool) error {
	for _, spec := range specs {
		props, err := json.Marshal(spec.Properties)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO xref_specs (build_id, document, uid, internal, properties) VALUES (?, ?, ?, ?, ?)",
			buildID, document, spec.UID, internal, string(props),
		); err != nil {
			return err
		}
	}
	return nil
}

const (
	linkKindFile = "file"
	linkKindUID  = "uid"
)

func saveLinks(ctx context.Context, tx *sql.Tx, buildID, document, kind string, links xref.LinkSources) error {
	for _, target := range links.Targets() {
		for _, info := range links[target] {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO link_sources (build_id, document, kind, target, source_file, anchor) VALUES (?, ?, ?, ?, ?, ?)",
				buildID, document, kind, target, info.SourceFile, info.Anchor,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveDiagnostics records the diagnostics a build reported.
func (s *SQLiteStore) SaveDiagnostics(ctx context.Context, buildID string, items []diagnostics.Diagnostic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(ErrWriteFailed, err).WithContext("build_id", buildID)
	}
	for _, d := range items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO diagnostics (build_id, code, severity, message, uid, path, file) VALUES (?, ?, ?, ?, ?, ?, ?)",
			buildID, string(d.Code), string(d.Severity), d.Message, d.UID, d.Path, d.File,
		); err != nil {
			_ = tx.Rollback()
			return wrap(ErrWriteFailed, err).WithContext("build_id", buildID)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrap(ErrWriteFailed, err).WithContext("build_id", buildID)
	}
	return nil
}

// GetBuild returns the build with the given id.
func (s *SQLiteStore) GetBuild(ctx context.Context, buildID string) (Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, started_at, finished_at, outcome, documents FROM builds WHERE id = ?",
		buildID,
	)
	return scanBuild(row, buildID)
}

// LatestBuild returns the most recently started build.
func (s *SQLiteStore) LatestBuild(ctx context.Context) (Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, started_at, finished_at, outcome, documents FROM builds ORDER BY started_at DESC, rowid DESC LIMIT 1",
	)
	return scanBuild(row, "")
}

func scanBuild(row *sql.Row, buildID string) (Build, error) {
	var (
		b        Build
		started  int64
		finished sql.NullInt64
	)
	if err := row.Scan(&b.ID, &started, &finished, &b.Outcome, &b.Documents); err != nil {
		if err == sql.ErrNoRows {
			return Build{}, ErrBuildNotFound.WithContext("build_id", buildID)
		}
		return Build{}, wrap(ErrQueryFailed, err)
	}
	b.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		b.FinishedAt = time.UnixMilli(finished.Int64)
	}
	return b, nil
}

// XRefMap returns the internal xref specs of a build ordered by uid. When
// several documents export the same uid their properties are combined in
// document order.
func (s *SQLiteStore) XRefMap(ctx context.Context, buildID string) ([]*xref.XRefSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT uid, properties FROM xref_specs WHERE build_id = ? AND internal = 1 ORDER BY document, rowid",
		buildID,
	)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err).WithContext("build_id", buildID)
	}
	defer func() { _ = rows.Close() }()

	byUID := make(map[string]*xref.XRefSpec)
	for rows.Next() {
		var uid, raw string
		if err := rows.Scan(&uid, &raw); err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		var props map[string]string
		if err := json.Unmarshal([]byte(raw), &props); err != nil {
			return nil, wrap(ErrQueryFailed, err).WithContext("uid", uid)
		}
		spec, ok := byUID[uid]
		if !ok {
			spec = xref.NewXRefSpec(uid)
			byUID[uid] = spec
		}
		for k, v := range props {
			spec.Set(k, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}

	out := make([]*xref.XRefSpec, 0, len(byUID))
	for _, spec := range byUID {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// Referrers returns every recorded reference to uid.
func (s *SQLiteStore) Referrers(ctx context.Context, buildID, uid string) ([]xref.LinkSourceInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT target, source_file, anchor FROM link_sources WHERE build_id = ? AND kind = ? AND target = ? ORDER BY rowid",
		buildID, linkKindUID, uid,
	)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err).WithContext("build_id", buildID)
	}
	defer func() { _ = rows.Close() }()

	var out []xref.LinkSourceInfo
	for rows.Next() {
		var info xref.LinkSourceInfo
		if err := rows.Scan(&info.Target, &info.SourceFile, &info.Anchor); err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	return out, nil
}

// Dependents returns the documents of a build that depend on file, sorted.
func (s *SQLiteStore) Dependents(ctx context.Context, buildID, file string) ([]string, error) {
	return s.queryStrings(ctx,
		"SELECT DISTINCT document FROM dependencies WHERE build_id = ? AND dependency = ? ORDER BY document",
		buildID, file,
	)
}

// DefinedUids returns the distinct uids a build defined, sorted.
func (s *SQLiteStore) DefinedUids(ctx context.Context, buildID string) ([]string, error) {
	return s.queryStrings(ctx,
		"SELECT DISTINCT uid FROM uids WHERE build_id = ? ORDER BY uid",
		buildID,
	)
}

func (s *SQLiteStore) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	return out, nil
}

// Diagnostics returns the diagnostics recorded for a build in report order.
func (s *SQLiteStore) Diagnostics(ctx context.Context, buildID string) ([]diagnostics.Diagnostic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT code, severity, message, uid, path, file FROM diagnostics WHERE build_id = ? ORDER BY rowid",
		buildID,
	)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err).WithContext("build_id", buildID)
	}
	defer func() { _ = rows.Close() }()

	var out []diagnostics.Diagnostic
	for rows.Next() {
		var (
			d              diagnostics.Diagnostic
			code, severity string
		)
		if err := rows.Scan(&code, &severity, &d.Message, &d.UID, &d.Path, &d.File); err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		d.Code = diagnostics.Code(code)
		d.Severity = diagnostics.Severity(severity)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	return out, nil
}

// Prune deletes every build except the newest keep builds.
func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM builds ORDER BY started_at DESC, rowid DESC LIMIT -1 OFFSET ?",
		keep,
	)
	if err != nil {
		return 0, wrap(ErrQueryFailed, err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, wrap(ErrQueryFailed, err)
		}
		stale = append(stale, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, wrap(ErrQueryFailed, err)
	}

	tables := []string{"documents", "uids", "xref_specs", "link_sources", "dependencies", "diagnostics"}
	for _, id := range stale {
		for _, table := range tables {
			if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE build_id = ?", id); err != nil {
				return 0, wrap(ErrWriteFailed, err).WithContext("build_id", id)
			}
		}
		if _, err := s.db.ExecContext(ctx, "DELETE FROM builds WHERE id = ?", id); err != nil {
			return 0, wrap(ErrWriteFailed, err).WithContext("build_id", id)
		}
	}
	return len(stale), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
