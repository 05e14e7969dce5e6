package admin

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"breedplan.ai/internal/breeding/catalogs"
	"breedplan.ai/internal/breeding/market"
	"breedplan.ai/internal/persistence/indexdb"
	"breedplan.ai/internal/protocol"
)

// Store is the persistence the admin endpoints read and write.
type Store interface {
	ListRuns(ctx context.Context, limit int) ([]indexdb.RunSummary, error)
	LoadPrices(ctx context.Context) (*market.Table, error)
	UpsertPrices(ctx context.Context, entries []market.Entry) error
}

// Server exposes loopback-only JSON endpoints for inspecting runs and
// maintaining the stored price table.
type Server struct {
	store   Store
	catalog *catalogs.Catalog
	log     *log.Logger
}

func NewServer(store Store, cat *catalogs.Catalog, logger *log.Logger) *Server {
	return &Server{store: store, catalog: cat, log: logger}
}

type BootstrapResponse struct {
	ProtocolVersion string   `json:"protocol_version"`
	SpeciesDigest   string   `json:"species_digest,omitempty"`
	Species         []string `json:"species"`
	Persistent      bool     `json:"persistent"`
}

type RunView struct {
	RunID      string    `json:"run_id"`
	At         time.Time `json:"at"`
	Species    string    `json:"species"`
	IVs        []string  `json:"ivs"`
	Nature     string    `json:"nature,omitempty"`
	Evaluated  int       `json:"evaluated"`
	BestCost   *int64    `json:"best_cost,omitempty"`
	BestPriced bool      `json:"best_priced"`
}

// Register mounts the endpoints under /admin/v1/.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/v1/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/admin/v1/runs", s.RunsHandler())
	mux.HandleFunc("/admin/v1/prices", s.PricesHandler())
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := BootstrapResponse{
			ProtocolVersion: protocol.Version,
			Species:         []string{},
			Persistent:      s.store != nil,
		}
		if s.catalog != nil {
			resp.SpeciesDigest = s.catalog.Digest
			resp.Species = s.catalog.Names
		}
		writeJSON(rw, http.StatusOK, resp)
	}
}

func (s *Server) RunsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		if s.store == nil {
			http.Error(rw, "no database configured", http.StatusServiceUnavailable)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit > 500 {
			limit = 500
		}
		runs, err := s.store.ListRuns(r.Context(), limit)
		if err != nil {
			s.fail(rw, "list runs", err)
			return
		}
		out := make([]RunView, 0, len(runs))
		for _, ru := range runs {
			v := RunView{
				RunID:      ru.RunID,
				At:         ru.At,
				Species:    ru.Species,
				IVs:        ru.IVs,
				Nature:     ru.Nature,
				Evaluated:  ru.Evaluated,
				BestPriced: ru.BestPriced,
			}
			if ru.HasPlan {
				cost := ru.BestCost
				v.BestCost = &cost
			}
			out = append(out, v)
		}
		writeJSON(rw, http.StatusOK, map[string]any{"runs": out})
	}
}

// PricesHandler lists the stored table on GET and merges a price document
// into it on POST.
func (s *Server) PricesHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		if s.store == nil {
			http.Error(rw, "no database configured", http.StatusServiceUnavailable)
			return
		}
		switch r.Method {
		case http.MethodGet:
			t, err := s.store.LoadPrices(r.Context())
			if err != nil {
				s.fail(rw, "load prices", err)
				return
			}
			writeJSON(rw, http.StatusOK, t)
		case http.MethodPost:
			raw, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
			if err != nil {
				http.Error(rw, err.Error(), http.StatusBadRequest)
				return
			}
			t, err := market.Parse(raw)
			if err != nil {
				writeJSON(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, err.Error()))
				return
			}
			entries := t.Entries()
			if err := s.store.UpsertPrices(r.Context(), entries); err != nil {
				s.fail(rw, "upsert prices", err)
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "count": len(entries)})
		default:
			rw.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) fail(rw http.ResponseWriter, what string, err error) {
	if s.log != nil {
		s.log.Printf("admin: %s: %v", what, err)
	}
	writeJSON(rw, http.StatusInternalServerError, protocol.NewError("", protocol.ErrInternal, what+": "+err.Error()))
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

// LocalOnly rejects requests that do not come from a loopback address.
func LocalOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
