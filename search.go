package hirezzie

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrInvalidQuery is returned for empty or too-short queries, before any
// provider is called. It is the only error Search reports besides cancellation.
var ErrInvalidQuery = errors.New("invalid query")

// minQueryRunes is the shortest accepted query.
const minQueryRunes = 2

// Engine runs the curation pipeline: fan-out, normalize, enrich, dedupe,
// filter, score, recover volume, assemble. It is safe for concurrent use;
// per-session state lives in a DedupContext owned by the caller.
type Engine struct {
	cfg   Config
	dedup Deduper
}

// New returns an Engine for cfg. cfg is copied; later changes have no effect.
func New(cfg Config) *Engine {
	cfg.defaults()
	priority := make(map[string]int, len(cfg.Providers))
	for i, p := range cfg.Providers {
		if _, ok := priority[p.Name()]; !ok {
			priority[p.Name()] = i
		}
	}
	return &Engine{cfg: cfg, dedup: Deduper{Priority: priority}}
}

// Search runs a fresh search. dc is reset and then filled with the returned
// candidates so that LoadMore can continue without repeats; pass nil when no
// continuation is needed. Provider failures and low volume are not errors:
// the ResultSet may be empty.
func (e *Engine) Search(ctx context.Context, dc *DedupContext, req SearchRequest) (*ResultSet, error) {
	req, err := e.prepare(req)
	if err != nil {
		return nil, err
	}
	req.Offset = 0

	if e.cfg.OnSearch != nil {
		e.cfg.OnSearch(req.Query)
	}

	var cacheKey string
	if e.cfg.Cache != nil {
		cacheKey = e.cfg.Cache.Key("search", searchCacheKey(req))
		var cached ResultSet
		if e.cfg.Cache.Get(ctx, cacheKey, &cached) {
			if dc != nil {
				dc.Reset()
				dc.Remember(cached.Candidates)
			}
			cached.Candidates = append([]Candidate(nil), cached.Candidates...)
			cached.RequestID = uuid.NewString()
			slog.Info("hirezzie: search finished",
				"request_id", cached.RequestID,
				"query", req.Query,
				"cached", true,
				"tier", cached.RecoveryTier.String(),
				"returned", len(cached.Candidates),
			)
			return &cached, nil
		}
	}

	rs, err := e.execute(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	if dc != nil {
		dc.Reset()
		dc.Remember(rs.Candidates)
	}
	if e.cfg.Cache != nil {
		stored := *rs
		stored.Candidates = append([]Candidate(nil), rs.Candidates...)
		e.cfg.Cache.Set(ctx, cacheKey, stored)
	}
	return rs, nil
}

// LoadMore continues a search from req.Offset (usually the previous
// ResultSet's NextOffset) and returns only images dc has not shown yet.
func (e *Engine) LoadMore(ctx context.Context, dc *DedupContext, req SearchRequest) ([]Candidate, error) {
	rs, err := e.More(ctx, dc, req)
	if err != nil {
		return nil, err
	}
	return rs.Candidates, nil
}

// More is LoadMore with the full envelope, so callers paging repeatedly
// can follow NextOffset.
func (e *Engine) More(ctx context.Context, dc *DedupContext, req SearchRequest) (*ResultSet, error) {
	req, err := e.prepare(req)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		dc = NewDedupContext()
	}
	rs, err := e.execute(ctx, req, dc)
	if err != nil {
		return nil, err
	}
	dc.Remember(rs.Candidates)
	return rs, nil
}

// prepare validates req and fills defaults.
func (e *Engine) prepare(req SearchRequest) (SearchRequest, error) {
	req.Query = strings.Join(strings.Fields(req.Query), " ")
	if utf8.RuneCountInString(req.Query) < minQueryRunes {
		return req, fmt.Errorf("%w: %q is shorter than %d characters", ErrInvalidQuery, req.Query, minQueryRunes)
	}
	if req.PageSize <= 0 {
		req.PageSize = DefaultPageSize
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.SortMode == "" {
		req.SortMode = SortRelevance
	}
	return req, nil
}

// execute runs the recovery machine and assembles the ResultSet.
func (e *Engine) execute(ctx context.Context, req SearchRequest, exclude *DedupContext) (*ResultSet, error) {
	requestID := uuid.NewString()
	logger := slog.With("request_id", requestID)
	start := time.Now()

	q := e.cfg.Analyzer.Analyze(req.Query)
	run := newRecoveryRun(&e.cfg, e.dedup, req, q, exclude)
	if err := run.run(ctx); err != nil {
		logger.Info("hirezzie: search abandoned", "query", req.Query, "error", err.Error())
		return nil, err
	}

	rs := assemble(run, req)
	rs.RequestID = requestID
	for _, rej := range run.rejections {
		if e.cfg.OnReject != nil {
			e.cfg.OnReject(rej)
		}
	}

	logger.Info("hirezzie: search finished",
		"query", req.Query,
		"entities", len(q.Entities),
		"tier", rs.RecoveryTier.String(),
		"considered", rs.TotalConsidered,
		"returned", len(rs.Candidates),
		"duration", time.Since(start),
	)
	return rs, nil
}

// assemble sorts the curated set, truncates it to the page size and
// attaches telemetry.
func assemble(run *recoveryRun, req SearchRequest) *ResultSet {
	curated := append([]Candidate(nil), run.curated...)
	SortCandidates(curated, req.SortMode)
	if len(curated) > req.PageSize {
		curated = curated[:req.PageSize]
	}

	rs := &ResultSet{
		Candidates:      curated,
		TotalConsidered: len(run.pool),
		RecoveryTier:    run.lastTier,
		NextOffset:      run.nextOffset,
		Providers:       statusList(run.statuses),
	}
	if len(run.rejections) > 0 {
		rs.Rejections = make(map[RejectReason]int)
		for _, rej := range run.rejections {
			rs.Rejections[rej.Reason]++
		}
	}
	return rs
}

// searchCacheKey covers every request field that reaches a provider or the
// final ordering. Blacklist and Extra are order-insensitive.
func searchCacheKey(req SearchRequest) string {
	blacklist := slices.Clone(req.Options.Blacklist)
	for i, d := range blacklist {
		blacklist[i] = strings.ToLower(d)
	}
	slices.Sort(blacklist)

	extra := make([]string, 0, len(req.Options.Extra))
	for k, v := range req.Options.Extra {
		extra = append(extra, k+"="+v)
	}
	slices.Sort(extra)

	return strings.Join([]string{
		strings.ToLower(req.Query),
		strconv.Itoa(req.PageSize),
		string(req.SortMode),
		string(req.Options.SortMode),
		strconv.Itoa(req.Options.MinSize),
		strings.Join(blacklist, ","),
		strings.Join(extra, "&"),
	}, "|")
}
