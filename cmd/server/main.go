package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"breedplan.ai/internal/breeding/catalogs"
	"breedplan.ai/internal/breeding/market"
	"breedplan.ai/internal/breeding/runner"
	"breedplan.ai/internal/breeding/tuning"
	"breedplan.ai/internal/persistence/indexdb"
	runlog "breedplan.ai/internal/persistence/log"
	"breedplan.ai/internal/transport/ws"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		configDir   = flag.String("configs", "./configs", "config directory")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		pricesPath  = flag.String("prices", "", "seed price table (default: <configs>/prices.json if present)")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite index (stored prices + run history)")
		workers     = flag.Int("workers", 0, "evaluation workers per request (0 = GOMAXPROCS)")
		top         = flag.Int("top", 10, "default number of plans returned")
		maxInflight = flag.Int("max_inflight", 4, "plans evaluated concurrently across connections")
		timeout     = flag.Duration("plan_timeout", 30*time.Second, "upper bound for one planning request")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cat, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load species: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	seed, err := loadSeedPrices(*configDir, *pricesPath)
	if err != nil {
		logger.Fatalf("load prices: %v", err)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB && envBool("BP_ENABLE_INDEX", true) {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "breedplan.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := idx.UpsertCatalogs(ctx, cat, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
		if seed != nil && seed.Len() > 0 {
			if err := idx.SeedPrices(ctx, seed.Entries()); err != nil {
				logger.Printf("index: seed prices: %v", err)
			}
		}
		cancel()
	} else {
		logger.Printf("index disabled; prices come from the seed table only")
	}

	runLog := runlog.NewRunLogger(*dataDir)
	defer runLog.Close()

	r := &runner.Runner{
		Catalog: cat,
		Tuning:  tune,
		Workers: *workers,
		Top:     *top,
		RunLog:  runLog,
		Log:     logger,
	}
	if idx != nil {
		r.Index = idx
		r.Prices = idx
	} else {
		if seed == nil {
			seed = market.NewTable()
		}
		r.Prices = runner.StaticPrices{Table: seed}
	}

	wsSrv := ws.NewServer(r, logger, *maxInflight)
	wsSrv.Timeout = *timeout

	ctx, cancel := signalContext()
	defer cancel()

	mux := newMux(serverDeps{
		ws:     wsSrv,
		index:  idx,
		cat:    cat,
		logger: logger,
		admin:  envBool("BP_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		pprof:  envBool("BP_ENABLE_PPROF_HTTP", false),
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (%d species)", *addr, len(cat.Names))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// loadSeedPrices reads the explicit price file, or <configs>/prices.json when
// it exists. No file is not an error.
func loadSeedPrices(configDir, path string) (*market.Table, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		p = filepath.Join(configDir, "prices.json")
		if _, err := os.Stat(p); err != nil {
			return nil, nil
		}
	}
	return market.Load(p)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
