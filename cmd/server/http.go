package main

import (
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"

	"breedplan.ai/internal/breeding/catalogs"
	"breedplan.ai/internal/persistence/indexdb"
	"breedplan.ai/internal/transport/admin"
	"breedplan.ai/internal/transport/ws"
)

type serverDeps struct {
	ws     *ws.Server
	index  *indexdb.SQLiteIndex
	cat    *catalogs.Catalog
	logger *log.Logger
	admin  bool
	pprof  bool
}

func newMux(d serverDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(d.ws, d.index))
	mux.HandleFunc("/v1/ws", d.ws.Handler())

	if d.admin {
		var store admin.Store
		if d.index != nil {
			store = d.index
		}
		admin.NewServer(store, d.cat, d.logger).Register(mux)
	} else if d.logger != nil {
		d.logger.Printf("admin endpoints disabled (BP_ENABLE_ADMIN_HTTP=false)")
	}
	if d.pprof {
		mux.HandleFunc("/debug/pprof/", admin.LocalOnly(pprof.Index))
		mux.HandleFunc("/debug/pprof/cmdline", admin.LocalOnly(pprof.Cmdline))
		mux.HandleFunc("/debug/pprof/profile", admin.LocalOnly(pprof.Profile))
		mux.HandleFunc("/debug/pprof/symbol", admin.LocalOnly(pprof.Symbol))
		mux.HandleFunc("/debug/pprof/trace", admin.LocalOnly(pprof.Trace))
	}
	return mux
}

func metricsHandler(s *ws.Server, idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		st := s.Stats()
		fmt.Fprintf(rw, "# HELP breedplan_plans_total Planning requests answered with a result.\n")
		fmt.Fprintf(rw, "# TYPE breedplan_plans_total counter\n")
		fmt.Fprintf(rw, "breedplan_plans_total %d\n", st.PlanTotal)

		fmt.Fprintf(rw, "# HELP breedplan_errors_total Requests answered with an error.\n")
		fmt.Fprintf(rw, "# TYPE breedplan_errors_total counter\n")
		fmt.Fprintf(rw, "breedplan_errors_total %d\n", st.ErrorTotal)

		fmt.Fprintf(rw, "# HELP breedplan_busy_total Requests rejected because every slot was taken.\n")
		fmt.Fprintf(rw, "# TYPE breedplan_busy_total counter\n")
		fmt.Fprintf(rw, "breedplan_busy_total %d\n", st.BusyTotal)

		fmt.Fprintf(rw, "# HELP breedplan_inflight Plans being evaluated now.\n")
		fmt.Fprintf(rw, "# TYPE breedplan_inflight gauge\n")
		fmt.Fprintf(rw, "breedplan_inflight{capacity=\"%d\"} %d\n", st.MaxInflight, st.Inflight)

		if idx == nil {
			return
		}
		is := idx.Stats()
		fmt.Fprintf(rw, "# HELP breedplan_index_queue_depth Runs waiting to be indexed.\n")
		fmt.Fprintf(rw, "# TYPE breedplan_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "breedplan_index_queue_depth %d\n", is.QueueDepth)

		fmt.Fprintf(rw, "# HELP breedplan_index_dropped_total Runs dropped because the index queue was full.\n")
		fmt.Fprintf(rw, "# TYPE breedplan_index_dropped_total counter\n")
		fmt.Fprintf(rw, "breedplan_index_dropped_total %d\n", is.DropRunTotal)
	}
}
