package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"breedplan.ai/internal/breeding/catalogs"
	"breedplan.ai/internal/breeding/market"
	"breedplan.ai/internal/breeding/report"
	"breedplan.ai/internal/breeding/tuning"
	runlog "breedplan.ai/internal/persistence/log"
)

func TestSQLiteIndex_PricesRoundTrip(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	err = idx.UpsertPrices(ctx, []market.Entry{
		{Key: "HP", Source: "species", Gender: catalogs.Female, Price: 12000},
		{Key: "HP", Source: "donor", Gender: catalogs.Genderless, Price: 8000},
		{Key: "Atk", Source: "Field", Gender: catalogs.Male, Price: 3000},
	})
	if err != nil {
		t.Fatalf("UpsertPrices: %v", err)
	}
	// Overwrite one price.
	if err := idx.UpsertPrices(ctx, []market.Entry{{Key: "HP", Source: "species", Gender: catalogs.Female, Price: 11000}}); err != nil {
		t.Fatalf("UpsertPrices: %v", err)
	}

	tb, err := idx.LoadPrices(ctx)
	if err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if tb.Len() != 3 {
		t.Fatalf("len=%d want 3", tb.Len())
	}
	if p, ok := tb.Price("hp", market.Species(), catalogs.Female); !ok || p != 11000 {
		t.Fatalf("species price=%d ok=%v", p, ok)
	}
	if p, ok := tb.Price("Atk", market.Group("field"), catalogs.Male); !ok || p != 3000 {
		t.Fatalf("group price=%d ok=%v", p, ok)
	}

	if err := idx.DeletePrice(ctx, "HP", market.Donor(), catalogs.Genderless); err != nil {
		t.Fatalf("DeletePrice: %v", err)
	}
	tb, _ = idx.LoadPrices(ctx)
	if _, ok := tb.Price("HP", market.Donor(), catalogs.Genderless); ok {
		t.Fatalf("deleted price still present")
	}

	if err := idx.UpsertPrices(ctx, []market.Entry{{Key: "HP", Source: "species", Gender: catalogs.Male, Price: -1}}); err == nil {
		t.Fatalf("expected negative price rejected")
	}
}

func TestSQLiteIndex_SeedKeepsStoredPrices(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.UpsertPrices(ctx, []market.Entry{{Key: "HP", Source: "species", Gender: catalogs.Male, Price: 1234}}); err != nil {
		t.Fatalf("UpsertPrices: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Restart and apply the seed file again.
	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	seed := []market.Entry{
		{Key: "HP", Source: "species", Gender: catalogs.Male, Price: 9000},
		{Key: "Atk", Source: "species", Gender: catalogs.Male, Price: 9500},
	}
	if err := idx.SeedPrices(ctx, seed); err != nil {
		t.Fatalf("SeedPrices: %v", err)
	}
	tb, err := idx.LoadPrices(ctx)
	if err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if p, ok := tb.Price("HP", market.Species(), catalogs.Male); !ok || p != 1234 {
		t.Fatalf("stored HP price=%d ok=%v want 1234", p, ok)
	}
	if p, ok := tb.Price("Atk", market.Species(), catalogs.Male); !ok || p != 9500 {
		t.Fatalf("seeded Atk price=%d ok=%v want 9500", p, ok)
	}
	if err := idx.SeedPrices(ctx, []market.Entry{{Key: "Def", Source: "species", Gender: catalogs.Male, Price: -1}}); err == nil {
		t.Fatalf("negative seed price accepted")
	}
}

func TestSQLiteIndex_RecordRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	idx.RecordRun(runlog.RunEntry{
		RunID:     "r1",
		At:        at,
		Species:   "Eevee",
		IVs:       []string{"HP", "Atk"},
		Evaluated: 6,
		Plans:     []report.PlanView{{ID: 3, Cost: 250, Priced: true, Steps: []report.Step{}}},
	})
	idx.RecordRun(runlog.RunEntry{RunID: "r2", At: at.Add(time.Minute), Species: "Beldum", IVs: []string{"Def", "Spe"}})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	runs, err := idx.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "r2" || runs[1].RunID != "r1" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[0].HasPlan {
		t.Fatalf("run without plans reported a best cost")
	}
	r1 := runs[1]
	if !r1.HasPlan || r1.BestCost != 250 || !r1.BestPriced || r1.Evaluated != 6 || len(r1.IVs) != 2 {
		t.Fatalf("r1 mismatch: %+v", r1)
	}
	if !r1.At.Equal(at) {
		t.Fatalf("at=%v want %v", r1.At, at)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	cat, err := catalogs.New([]catalogs.SpeciesDef{{Name: "Eevee", EggGroups: []string{"Field"}}})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	cat.Digest = "d1"
	if err := idx.UpsertCatalogs(context.Background(), cat, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	d, ok, err := idx.CatalogDigest(context.Background(), "species")
	if err != nil || !ok || d != cat.Digest {
		t.Fatalf("digest=%q ok=%v err=%v", d, ok, err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&n); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 2 {
		t.Fatalf("catalog rows=%d want 2", n)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.RecordRun(runlog.RunEntry{RunID: "a"})
	s.RecordRun(runlog.RunEntry{RunID: "b"})

	st := s.Stats()
	if st.DropRunTotal != 1 {
		t.Fatalf("DropRunTotal=%d want=1", st.DropRunTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}
