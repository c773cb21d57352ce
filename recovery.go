package hirezzie

import (
	"context"
	"log/slog"
	"strings"
)

// Tier is a state of the volume-recovery machine. Transitions only move
// forward: Strict -> RelaxedExpansion -> SupplementalFetch -> Done.
type Tier int

const (
	TierStrict Tier = iota + 1
	TierRelaxedExpansion
	TierSupplementalFetch
	TierDone
)

func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierRelaxedExpansion:
		return "relaxed_expansion"
	case TierSupplementalFetch:
		return "supplemental_fetch"
	case TierDone:
		return "done"
	default:
		return "unknown"
	}
}

func (t Tier) MarshalYAML() (any, error) {
	return t.String(), nil
}

// maxRecoverySteps bounds the machine regardless of configuration.
const maxRecoverySteps = 3

// recoveryRun is the state of one pipeline invocation.
type recoveryRun struct {
	cfg     *Config
	dedup   Deduper
	req     SearchRequest
	q       QueryEntities
	exclude *DedupContext // nil for fresh searches

	strictQuery  string
	relaxedQuery string

	pool       []Candidate // enriched and deduped, unfiltered
	curated    []Candidate // pool after the current tier's filter, scored
	rejections []Rejection // from the latest filter pass
	statuses   map[string]*ProviderStatus
	lastTier   Tier
	nextOffset int
	steps      int
}

func newRecoveryRun(cfg *Config, dedup Deduper, req SearchRequest, q QueryEntities, exclude *DedupContext) *recoveryRun {
	return &recoveryRun{
		cfg:          cfg,
		dedup:        dedup,
		req:          req,
		q:            q,
		exclude:      exclude,
		strictQuery:  RefineQuery(req.Query, q, cfg.QueryRewrites, true),
		relaxedQuery: RefineQuery(req.Query, q, cfg.QueryRewrites, false),
		statuses:     map[string]*ProviderStatus{},
		nextOffset:   req.Offset,
	}
}

// run drives the machine to TierDone. Only cancellation returns an error.
func (r *recoveryRun) run(ctx context.Context) error {
	state := TierStrict
	for state != TierDone && r.steps < maxRecoverySteps {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := r.step(ctx, state)
		if err != nil {
			return err
		}
		r.steps++
		slog.Debug("hirezzie: recovery tier finished", "tier", state.String(), "curated", len(r.curated), "floor", r.cfg.TargetFloor)
		state = next
	}
	return nil
}

// step runs one tier and returns the next state.
func (r *recoveryRun) step(ctx context.Context, state Tier) (Tier, error) {
	switch state {
	case TierStrict:
		if err := r.collect(ctx, r.plan(state), TermMatchAll); err != nil {
			return TierDone, err
		}
	case TierRelaxedExpansion:
		if err := r.collect(ctx, r.plan(state), TermMatchAny); err != nil {
			return TierDone, err
		}
	case TierSupplementalFetch:
		// Without paid calls the tier is a no-op and lastTier stays put.
		if calls := r.plan(state); len(calls) > 0 {
			if err := r.collect(ctx, calls, TermMatchAny); err != nil {
				return TierDone, err
			}
			r.lastTier = state
		}
		return TierDone, nil
	default:
		return TierDone, nil
	}
	r.lastTier = state
	if len(r.curated) >= r.cfg.TargetFloor || state >= r.cfg.MaxTier {
		return TierDone, nil
	}
	return state + 1, nil
}

// plan lists the provider calls of a tier. Strict and relaxed tiers use free
// providers; SupplementalFetch only uses paid ones, and only when allowed.
func (r *recoveryRun) plan(state Tier) []providerCall {
	stride := r.cfg.ProviderPageSize
	base := r.req.Offset
	var calls []providerCall
	for _, p := range r.cfg.Providers {
		if r.cfg.Disabled[p.Name()] {
			continue
		}
		paid := isPaid(p)
		switch state {
		case TierStrict:
			if paid {
				continue
			}
			for i := 0; i < r.cfg.PagesPerProvider; i++ {
				calls = append(calls, providerCall{provider: p, query: r.strictQuery, offset: base + i*stride, seq: i})
			}
		case TierRelaxedExpansion:
			if paid {
				continue
			}
			first := r.cfg.PagesPerProvider
			if !strings.EqualFold(r.relaxedQuery, r.strictQuery) {
				first = 0
			}
			for i := 0; i < r.cfg.RelaxedPages; i++ {
				calls = append(calls, providerCall{provider: p, query: r.relaxedQuery, offset: base + (first+i)*stride, seq: i})
			}
		case TierSupplementalFetch:
			if !paid || !r.cfg.AllowPaid {
				continue
			}
			for i := 0; i < r.cfg.SupplementalPages; i++ {
				calls = append(calls, providerCall{provider: p, query: r.strictQuery, offset: base + i*stride, seq: i})
			}
		}
	}
	for _, c := range calls {
		if !isPaid(c.provider) && c.offset+stride > r.nextOffset {
			r.nextOffset = c.offset + stride
		}
	}
	return calls
}

// collect fans out, enriches the new candidates, merges them into the pool
// and re-curates the whole pool under the given term gate.
func (r *recoveryRun) collect(ctx context.Context, calls []providerCall, match TermMatch) error {
	opts := r.providerOptions()
	results := r.cfg.fanOut(ctx, calls, opts)
	if err := ctx.Err(); err != nil {
		return err
	}
	summarizeResults(r.statuses, results)

	known := make(map[string]bool, len(r.pool))
	for _, c := range r.pool {
		known[poolKey(c)] = true
	}
	var fresh []Candidate
	for _, c := range normalizeResults(results, r.req.Query) {
		k := poolKey(c)
		if known[k] {
			continue
		}
		known[k] = true
		fresh = append(fresh, c)
	}

	enriched, err := r.cfg.enrichAll(ctx, fresh, r.q)
	if err != nil {
		return err
	}
	r.pool = r.dedup.Dedupe(append(r.pool, enriched...))

	policy := FilterPolicy{
		Thresholds:     r.cfg.Thresholds,
		Blocked:        r.cfg.blockList(),
		LanguageFilter: r.cfg.LanguageFilter,
		Language:       r.cfg.LanguageDetector,
		TermMatch:      match,
		Query:          r.q,
	}
	kept, rejected := policy.Filter(r.pool)
	if r.exclude != nil {
		kept = r.exclude.Exclude(kept)
	}
	ScoreAll(kept, r.q)
	r.curated = kept
	r.rejections = rejected
	return nil
}

func (r *recoveryRun) providerOptions() ProviderOptions {
	opts := r.req.Options
	if opts.SortMode == "" {
		opts.SortMode = r.req.SortMode
	}
	if opts.MinSize == 0 {
		opts.MinSize = r.cfg.Thresholds.MinDimension
	}
	if opts.Blacklist == nil {
		opts.Blacklist = r.cfg.blockList()
	}
	return opts
}

// poolKey identifies a raw hit before enrichment: its image URL, or its page
// when the image is not resolved yet.
func poolKey(c Candidate) string {
	if c.ImageURL != "" {
		return strings.ToLower(c.ImageURL)
	}
	return "page:" + strings.ToLower(c.PageURL)
}
