package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"blackflag.space/internal/persistence/snapshot"
	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/tuning"
	"blackflag.space/internal/sim/world"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Index is a queryable read model of the tick stream. It never feeds back into the
// simulation; the JSONL tick logs remain the source of truth.
type Index struct {
	dialect Dialect
	db      *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropSnapshot atomic.Uint64
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropTickTotal     uint64 `json:"drop_tick_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	snapshot SnapshotRow
}

type SnapshotRow struct {
	Tick    uint64 `json:"tick"`
	Path    string `json:"path"`
	Seed    int64  `json:"seed"`
	Day     int    `json:"day"`
	Planets int    `json:"planets"`
	Bases   int    `json:"bases"`
	Ships   int    `json:"ships"`
	Raiders int    `json:"raiders"`
}

func OpenSQLite(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return open(DialectSQLite, "sqlite", path)
}

func OpenPostgres(dsn string) (*Index, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("empty postgres dsn")
	}
	return open(DialectPostgres, "pgx", dsn)
}

// OpenFromEnv picks the backend from BF_INDEX_DIALECT (sqlite, postgres or off).
// It returns nil without error when indexing is off.
func OpenFromEnv(worldDir string) (*Index, error) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv("BF_INDEX_DIALECT")))
	switch raw {
	case "", string(DialectSQLite):
		path := strings.TrimSpace(os.Getenv("BF_INDEX_SQLITE_PATH"))
		if path == "" {
			path = filepath.Join(worldDir, "index", "world.sqlite")
		}
		return OpenSQLite(path)
	case string(DialectPostgres):
		dsn := strings.TrimSpace(os.Getenv("BF_INDEX_POSTGRES_DSN"))
		if dsn == "" {
			dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
		}
		if dsn == "" {
			return nil, errors.New("BF_INDEX_DIALECT=postgres requires BF_INDEX_POSTGRES_DSN or DATABASE_URL")
		}
		return OpenPostgres(dsn)
	case "off", "none", "disabled":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported BF_INDEX_DIALECT %q", raw)
	}
}

func open(dialect Dialect, driver, dsn string) (*Index, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s index: %w", dialect, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s index: %w", dialect, err)
	}

	s := &Index{
		dialect: dialect,
		db:      db,
		ch:      make(chan req, 65536),
	}
	if dialect == DialectSQLite {
		if err := initPragmas(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Index) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick BIGINT PRIMARY KEY,
			t DOUBLE PRECISION NOT NULL,
			day INTEGER NOT NULL,
			digest TEXT NOT NULL,
			events INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			tick BIGINT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind_tick ON events(kind, tick)`,
		`CREATE TABLE IF NOT EXISTS raids (
			tick BIGINT NOT NULL,
			raider_id BIGINT NOT NULL,
			ship_id BIGINT NOT NULL,
			base TEXT NOT NULL,
			success INTEGER NOT NULL,
			value BIGINT NOT NULL,
			units INTEGER NOT NULL,
			planet TEXT NOT NULL,
			PRIMARY KEY (tick, raider_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_raids_base_tick ON raids(base, tick)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick BIGINT PRIMARY KEY,
			path TEXT NOT NULL,
			seed BIGINT NOT NULL,
			day INTEGER NOT NULL,
			planets INTEGER NOT NULL,
			bases INTEGER NOT NULL,
			ships INTEGER NOT NULL,
			raiders INTEGER NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("%s schema: %w", s.dialect, err)
		}
	}
	return nil
}

func (s *Index) Dialect() Dialect { return s.dialect }

func (s *Index) bind(pos int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

// upsertQuery inserts cols into table and, on a key conflict, overwrites the non-key
// columns. Both dialects accept ON CONFLICT ... DO UPDATE with excluded.
func (s *Index) upsertQuery(table string, keys, cols []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = s.bind(i + 1)
	}
	isKey := map[string]bool{}
	for _, k := range keys {
		isKey[k] = true
	}
	var sets []string
	for _, c := range cols {
		if !isKey[c] {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s)",
		table, strings.Join(cols, ", "), strings.Join(ph, ", "), strings.Join(keys, ", "))
	if len(sets) == 0 {
		return q + " DO NOTHING"
	}
	return q + " DO UPDATE SET " + strings.Join(sets, ", ")
}

func (s *Index) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Index) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTickTotal:     s.dropTick.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// WriteTick queues a tick for indexing. It never blocks the simulation.
func (s *Index) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *Index) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := SnapshotRow{
		Tick:    snap.Header.Tick,
		Path:    path,
		Seed:    snap.Seed,
		Day:     snap.Day,
		Planets: len(snap.Planets),
		Bases:   len(snap.Bases),
		Ships:   len(snap.Ships),
		Raiders: len(snap.Raiders),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertCatalogs stores the commodity catalog and the effective tuning, keyed by digest.
func (s *Index) UpsertCatalogs(ctx context.Context, cat *catalogs.Catalog, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type row struct {
		name   string
		digest string
		json   []byte
	}
	var rows []row
	if b, err := json.Marshal(cat.All()); err == nil {
		rows = append(rows, row{name: "commodities", digest: cat.Digest, json: b})
	}
	if b, err := json.Marshal(tune); err == nil {
		sum := sha256.Sum256(b)
		rows = append(rows, row{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.upsertQuery("meta", []string{"key"}, []string{"key", "value"}), "schema_version", "1"); err != nil {
		return err
	}
	q := s.upsertQuery("catalogs", []string{"name"}, []string{"name", "digest", "json", "updated_at"})
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, q, r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}
