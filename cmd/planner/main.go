package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"breedplan.ai/internal/breeding/catalogs"
	"breedplan.ai/internal/breeding/evaluate"
	"breedplan.ai/internal/breeding/inventory"
	"breedplan.ai/internal/breeding/market"
	"breedplan.ai/internal/breeding/plan"
	"breedplan.ai/internal/breeding/report"
	"breedplan.ai/internal/breeding/tuning"
	"breedplan.ai/internal/persistence/indexdb"
	runlog "breedplan.ai/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "plan":
			planCmd(os.Args[2:])
			return
		case "templates":
			templatesCmd(os.Args[2:])
			return
		case "prices":
			pricesCmd(os.Args[2:])
			return
		case "runs":
			runsCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: planner plan|templates|prices|runs [flags]")
	os.Exit(2)
}

func loadReference(configDir, tuningPath string) (*catalogs.Catalog, tuning.Tuning) {
	cat, err := catalogs.Load(configDir)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load species:", err)
			os.Exit(1)
		}
		cat, _ = catalogs.New(nil)
	}
	tp := strings.TrimSpace(tuningPath)
	if tp == "" {
		tp = filepath.Join(configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}
	return cat, tune
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func planCmd(args []string) {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	configDir := fs.String("configs", "./configs", "config directory")
	tuningPath := fs.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	species := fs.String("species", "", "target species (required)")
	ivs := fs.String("ivs", "", "comma separated traits, 2 to 5 (required)")
	nature := fs.String("nature", "", "target nature (optional)")
	invPath := fs.String("inventory", "", "owned creatures json (optional)")
	pricesPath := fs.String("prices", "", "price table json (optional)")
	dbPath := fs.String("db", "", "sqlite db with stored prices (optional)")
	top := fs.Int("top", 5, "plans to cost and print")
	workers := fs.Int("workers", 0, "evaluation workers (0 = GOMAXPROCS)")
	asJSON := fs.Bool("json", false, "print plan views as json")
	_ = fs.Parse(args)

	if strings.TrimSpace(*species) == "" || strings.TrimSpace(*ivs) == "" {
		fmt.Fprintln(os.Stderr, "missing -species or -ivs")
		os.Exit(2)
	}
	cat, tune := loadReference(*configDir, *tuningPath)

	target := strings.TrimSpace(*species)
	if canon, ok := cat.Canonical(target); ok {
		target = canon
	} else if sugg := cat.Suggest(target); len(sugg) > 0 {
		fmt.Fprintf(os.Stderr, "unknown species %q; did you mean %s?\n", target, strings.Join(sugg, ", "))
		os.Exit(2)
	}

	var inv []inventory.Creature
	if *invPath != "" {
		var err error
		if inv, err = inventory.Load(*invPath); err != nil {
			fmt.Fprintln(os.Stderr, "load inventory:", err)
			os.Exit(1)
		}
	}

	prices := market.NewTable()
	if *dbPath != "" {
		idx, err := indexdb.OpenSQLite(*dbPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open db:", err)
			os.Exit(1)
		}
		stored, err := idx.LoadPrices(context.Background())
		_ = idx.Close()
		if err != nil {
			fmt.Fprintln(os.Stderr, "load prices:", err)
			os.Exit(1)
		}
		prices.Merge(stored)
	}
	if *pricesPath != "" {
		t, err := market.Load(*pricesPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load prices:", err)
			os.Exit(1)
		}
		prices.Merge(t)
	}

	pl := &evaluate.Planner{
		Inputs: &evaluate.Inputs{
			Species:   target,
			Inventory: inv,
			Catalog:   cat,
			Prices:    prices,
			Tuning:    tune,
		},
		Workers: *workers,
		Top:     *top,
	}
	start := time.Now()
	evs, err := pl.Run(context.Background(), splitList(*ivs), strings.TrimSpace(*nature))
	if err != nil {
		fmt.Fprintln(os.Stderr, "plan:", err)
		os.Exit(1)
	}

	if *asJSON {
		views := make([]report.PlanView, 0, len(evs))
		for _, ev := range evs {
			views = append(views, report.View(ev))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(views)
		return
	}
	for i, ev := range evs {
		if err := report.Itinerary(os.Stdout, i+1, ev); err != nil {
			fmt.Fprintln(os.Stderr, "write:", err)
			os.Exit(1)
		}
		fmt.Println()
	}
	if missing := evaluate.MissingAcross(evs, 0); len(missing) > 0 {
		fmt.Printf("prices needed for: %s\n", strings.Join(missing, ", "))
	}
	fmt.Printf("%d plans for %s in %s\n", len(evs), target, time.Since(start).Round(time.Millisecond))
}

func templatesCmd(args []string) {
	fs := flag.NewFlagSet("templates", flag.ExitOnError)
	n := fs.Int("n", 3, "number of traits (2 to 5)")
	nature := fs.Bool("nature", false, "include a nature branch")
	_ = fs.Parse(args)

	if *n < plan.MinIVs || *n > plan.MaxIVs {
		fmt.Fprintf(os.Stderr, "-n must be between %d and %d\n", plan.MinIVs, plan.MaxIVs)
		os.Exit(2)
	}
	for i, t := range plan.Templates(*n, *nature) {
		fmt.Printf("template %d: %d generations, %d nodes\n", i+1, len(t.Generations), len(t.Nodes))
		for _, g := range t.Generations {
			parts := make([]string, 0, len(g.Pairings))
			for _, pr := range g.Pairings {
				parts = append(parts, fmt.Sprintf("%s x %s -> %s", t.Node(pr.Parent1), t.Node(pr.Parent2), t.Node(pr.Child)))
			}
			fmt.Printf("  gen %d: %s\n", g.Level, strings.Join(parts, "; "))
		}
	}
}

func pricesCmd(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: planner prices import|list|export [flags]")
		os.Exit(2)
	}
	sub := args[0]
	fs := flag.NewFlagSet("prices "+sub, flag.ExitOnError)
	dbPath := fs.String("db", "./data/index.sqlite", "sqlite db path")
	file := fs.String("file", "", "price table json (import: input, export: output)")
	_ = fs.Parse(args[1:])

	idx, err := indexdb.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	defer idx.Close()
	ctx := context.Background()

	switch sub {
	case "import":
		if *file == "" {
			fmt.Fprintln(os.Stderr, "missing -file")
			os.Exit(2)
		}
		t, err := market.Load(*file)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load:", err)
			os.Exit(1)
		}
		if err := idx.UpsertPrices(ctx, t.Entries()); err != nil {
			fmt.Fprintln(os.Stderr, "import:", err)
			os.Exit(1)
		}
		fmt.Printf("imported %d prices into %s\n", t.Len(), *dbPath)
	case "list":
		t, err := idx.LoadPrices(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load:", err)
			os.Exit(1)
		}
		for _, e := range t.Entries() {
			fmt.Printf("%-12s %-12s %s %d\n", e.Key, e.Source, e.Gender, e.Price)
		}
	case "export":
		if *file == "" {
			fmt.Fprintln(os.Stderr, "missing -file")
			os.Exit(2)
		}
		t, err := idx.LoadPrices(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load:", err)
			os.Exit(1)
		}
		if err := t.Save(*file); err != nil {
			fmt.Fprintln(os.Stderr, "export:", err)
			os.Exit(1)
		}
		fmt.Printf("exported %d prices to %s\n", t.Len(), *file)
	default:
		fmt.Fprintf(os.Stderr, "unknown prices subcommand %q\n", sub)
		os.Exit(2)
	}
}

func runsCmd(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", "./data/index.sqlite", "sqlite db path")
	logPath := fs.String("log", "", "read a run log file (.jsonl.zst) instead of the db")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	if *logPath != "" {
		entries, err := runlog.ReadRuns(*logPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read log:", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		for _, e := range entries {
			_ = enc.Encode(e)
		}
		return
	}

	idx, err := indexdb.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	defer idx.Close()
	runs, err := idx.ListRuns(context.Background(), *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, r := range runs {
		best := "-"
		if r.HasPlan {
			best = fmt.Sprintf("$%d", r.BestCost)
			if !r.BestPriced {
				best = "unpriced"
			}
		}
		fmt.Printf("%s %s %-12s %-24s evaluated=%d best=%s\n",
			r.At.Format(time.RFC3339), r.RunID, r.Species, strings.Join(r.IVs, "/"), r.Evaluated, best)
	}
}
