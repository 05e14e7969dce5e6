package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"breedplan.ai/internal/breeding/catalogs"
	"breedplan.ai/internal/breeding/market"
	"breedplan.ai/internal/breeding/tuning"
	runlog "breedplan.ai/internal/persistence/log"
)

// SQLiteIndex stores the price table and a queryable history of planning
// runs. Prices are written synchronously; runs go through a background
// writer and may be dropped when it falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropRunTotal atomic.Uint64
}

type reqKind int

const (
	reqRun reqKind = iota + 1
)

type req struct {
	kind reqKind
	run  runRow
}

type runRow struct {
	RunID      string
	At         string
	Species    string
	IVs        string
	Nature     string
	Evaluated  int
	BestCost   sql.NullInt64
	BestPriced bool
	Plans      string
}

// RunSummary is one row of the run history.
type RunSummary struct {
	RunID      string
	At         time.Time
	Species    string
	IVs        []string
	Nature     string
	Evaluated  int
	BestCost   int64
	BestPriced bool
	HasPlan    bool
}

type Stats struct {
	DropRunTotal  uint64
	QueueDepth    int
	QueueCapacity int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
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
		"PRAGMA foreign_keys=ON;",
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

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS prices (
			key TEXT NOT NULL,
			source TEXT NOT NULL,
			gender TEXT NOT NULL,
			price INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (key, source, gender)
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			at TEXT NOT NULL,
			species TEXT NOT NULL,
			ivs_json TEXT NOT NULL,
			nature TEXT NOT NULL,
			evaluated INTEGER NOT NULL,
			best_cost INTEGER,
			best_priced INTEGER NOT NULL,
			plans_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_at ON runs(at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_species_at ON runs(species, at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropRunTotal:  s.dropRunTotal.Load(),
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
	}
}

// UpsertCatalogs records the species data and tuning in effect, keyed by
// digest, so stored runs can be traced back to their inputs.
func (s *SQLiteIndex) UpsertCatalogs(ctx context.Context, cat *catalogs.Catalog, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if cat != nil {
		if b, _ := json.Marshal(cat.Defs()); len(b) > 0 {
			rows = append(rows, kv{name: "species", digest: cat.Digest, json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CatalogDigest returns the stored digest for name.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, bool, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d, true, nil
}

// UpsertPrices writes every entry in one transaction, replacing existing
// prices for the same key, source and gender.
func (s *SQLiteIndex) UpsertPrices(ctx context.Context, entries []market.Entry) error {
	return s.writePrices(ctx, `INSERT OR REPLACE`, entries)
}

// SeedPrices adds the entries that have no stored price yet. Stored prices
// win, so a seed file can be applied on every start.
func (s *SQLiteIndex) SeedPrices(ctx context.Context, entries []market.Entry) error {
	return s.writePrices(ctx, `INSERT OR IGNORE`, entries)
}

func (s *SQLiteIndex) writePrices(ctx context.Context, verb string, entries []market.Entry) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, verb+` INTO prices(key,source,gender,price,updated_at) VALUES(?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if e.Price < 0 {
			return fmt.Errorf("price for %s %s %s: negative", e.Key, e.Source, e.Gender)
		}
		if _, err := stmt.ExecContext(ctx, e.Key, e.Source, e.Gender.String(), e.Price, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) DeletePrice(ctx context.Context, key string, src market.Source, g catalogs.Gender) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM prices WHERE key=? AND source=? AND gender=?`, key, src.String(), g.String())
	return err
}

// LoadPrices reads the whole price table.
func (s *SQLiteIndex) LoadPrices(ctx context.Context) (*market.Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key,source,gender,price FROM prices`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t := market.NewTable()
	for rows.Next() {
		var (
			e      market.Entry
			gender string
		)
		if err := rows.Scan(&e.Key, &e.Source, &gender, &e.Price); err != nil {
			return nil, err
		}
		g, err := catalogs.ParseGender(gender)
		if err != nil {
			return nil, fmt.Errorf("prices row %s/%s: %w", e.Key, e.Source, err)
		}
		e.Gender = g
		t.Add(e)
	}
	return t, rows.Err()
}

// RecordRun queues a run for the background writer. Drops are counted, not
// reported; the run log stays the source of truth.
func (s *SQLiteIndex) RecordRun(e runlog.RunEntry) {
	if s == nil || s.closed.Load() {
		return
	}
	ivs, _ := json.Marshal(e.IVs)
	plans, _ := json.Marshal(e.Plans)
	r := runRow{
		RunID:     e.RunID,
		At:        e.At.UTC().Format(time.RFC3339Nano),
		Species:   e.Species,
		IVs:       string(ivs),
		Nature:    e.Nature,
		Evaluated: e.Evaluated,
		Plans:     string(plans),
	}
	if len(e.Plans) > 0 {
		r.BestCost = sql.NullInt64{Int64: e.Plans[0].Cost, Valid: true}
		r.BestPriced = e.Plans[0].Priced
	}
	select {
	case s.ch <- req{kind: reqRun, run: r}:
	default:
		s.dropRunTotal.Add(1)
	}
}

// ListRuns returns the newest runs first.
func (s *SQLiteIndex) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id,at,species,ivs_json,nature,evaluated,best_cost,best_priced FROM runs ORDER BY at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r      RunSummary
			at     string
			ivs    string
			best   sql.NullInt64
			priced int
		)
		if err := rows.Scan(&r.RunID, &at, &r.Species, &ivs, &r.Nature, &r.Evaluated, &best, &priced); err != nil {
			return nil, err
		}
		r.At, _ = time.Parse(time.RFC3339Nano, at)
		_ = json.Unmarshal([]byte(ivs), &r.IVs)
		r.BestCost, r.HasPlan = best.Int64, best.Valid
		r.BestPriced = priced != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,at,species,ivs_json,nature,evaluated,best_cost,best_priced,plans_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertRun != nil {
			_ = insertRun.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 64
		commitMaxWait = 500 * time.Millisecond
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		// Commit as soon as the queue drains.
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRun:
			ru := r.run
			if insertRun == nil {
				continue
			}
			priced := 0
			if ru.BestPriced {
				priced = 1
			}
			if _, err := tx.Stmt(insertRun).Exec(
				ru.RunID,
				ru.At,
				ru.Species,
				ru.IVs,
				ru.Nature,
				ru.Evaluated,
				ru.BestCost,
				priced,
				ru.Plans,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		flushIfNeeded()
	}

	commit()
}
