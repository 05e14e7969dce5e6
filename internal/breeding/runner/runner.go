package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"breedplan.ai/internal/breeding/catalogs"
	"breedplan.ai/internal/breeding/evaluate"
	"breedplan.ai/internal/breeding/market"
	"breedplan.ai/internal/breeding/plan"
	"breedplan.ai/internal/breeding/report"
	"breedplan.ai/internal/breeding/tuning"
	"breedplan.ai/internal/persistence/indexdb"
	runlog "breedplan.ai/internal/persistence/log"
	"breedplan.ai/internal/protocol"
)

// PriceSource supplies the stored price table for a run.
type PriceSource interface {
	LoadPrices(ctx context.Context) (*market.Table, error)
}

// StaticPrices serves a fixed table.
type StaticPrices struct{ Table *market.Table }

func (s StaticPrices) LoadPrices(context.Context) (*market.Table, error) {
	if s.Table == nil {
		return market.NewTable(), nil
	}
	return s.Table, nil
}

// Runner answers PLAN requests. Index and RunLog are optional.
type Runner struct {
	Catalog *catalogs.Catalog
	Tuning  tuning.Tuning
	Prices  PriceSource
	Workers int
	// Top bounds how many plans are costed and returned when the request
	// does not ask for a number.
	Top int

	Index  *indexdb.SQLiteIndex
	RunLog *runlog.RunLogger
	Log    *log.Logger

	now func() time.Time
}

const defaultTop = 10

// Error is a request failure with a protocol error code.
type Error struct {
	Code        string
	Message     string
	Suggestions []string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func fail(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Handle evaluates one request. Failures come back as *Error.
func (r *Runner) Handle(ctx context.Context, m protocol.PlanMsg) (protocol.PlanResultMsg, error) {
	species := strings.TrimSpace(m.Species)
	if canon, ok := r.Catalog.Canonical(species); ok {
		species = canon
	} else if sugg := r.Catalog.Suggest(species); len(sugg) > 0 {
		e := fail(protocol.ErrUnknownSpecies, "unknown species %q", species)
		e.Suggestions = sugg
		return protocol.PlanResultMsg{}, e
	}

	prices := market.NewTable()
	if r.Prices != nil {
		stored, err := r.Prices.LoadPrices(ctx)
		if err != nil {
			return protocol.PlanResultMsg{}, fail(protocol.ErrInternal, "load prices: %v", err)
		}
		prices.Merge(stored)
	}
	for _, e := range m.Prices {
		prices.Add(e)
	}

	plans, err := plan.Generate(m.IVs, m.Nature)
	switch {
	case errors.Is(err, plan.ErrUnsupportedCount):
		return protocol.PlanResultMsg{}, fail(protocol.ErrTraitCount, "%v", err)
	case errors.Is(err, plan.ErrDuplicateIV):
		return protocol.PlanResultMsg{}, fail(protocol.ErrDuplicateTrait, "%v", err)
	case err != nil:
		return protocol.PlanResultMsg{}, fail(protocol.ErrBadRequest, "%v", err)
	}

	top := m.Top
	if top <= 0 {
		top = r.Top
	}
	if top <= 0 {
		top = defaultTop
	}
	pl := &evaluate.Planner{
		Inputs: &evaluate.Inputs{
			Species:   species,
			Inventory: m.Inventory,
			Catalog:   r.Catalog,
			Prices:    prices,
			Tuning:    r.Tuning,
		},
		Workers: r.Workers,
		Top:     top,
	}
	short, err := pl.Shortlist(ctx, plans)
	if err == nil {
		short, err = pl.Cost(ctx, short)
	}
	if err != nil {
		if ctx.Err() != nil {
			return protocol.PlanResultMsg{}, fail(protocol.ErrCanceled, "%v", err)
		}
		return protocol.PlanResultMsg{}, fail(protocol.ErrInternal, "%v", err)
	}

	res := protocol.PlanResultMsg{
		Type:            protocol.TypePlanResult,
		ProtocolVersion: protocol.Version,
		RequestID:       m.RequestID,
		RunID:           uuid.NewString(),
		Evaluated:       len(plans),
		MissingPrices:   evaluate.MissingAcross(short, 0),
		Plans:           make([]report.PlanView, 0, len(short)),
	}
	for _, ev := range short {
		res.Plans = append(res.Plans, report.View(ev))
	}
	r.record(species, m, res)
	return res, nil
}

func (r *Runner) record(species string, m protocol.PlanMsg, res protocol.PlanResultMsg) {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	entry := runlog.RunEntry{
		RunID:     res.RunID,
		At:        now().UTC(),
		Species:   species,
		IVs:       m.IVs,
		Nature:    m.Nature,
		Evaluated: res.Evaluated,
		Plans:     res.Plans,
	}
	if r.RunLog != nil {
		if err := r.RunLog.WriteRun(entry); err != nil && r.Log != nil {
			r.Log.Printf("run log: %v", err)
		}
	}
	r.Index.RecordRun(entry)
}
