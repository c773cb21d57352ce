package hirezzie

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// AdapterError is the failure of one provider call. The fan-out records it
// and carries on; it never reaches the caller of Search.
type AdapterError struct {
	Provider string
	Offset   int
	TimedOut bool
	Err      error
}

func (e *AdapterError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("provider %s (offset %d) timed out: %v", e.Provider, e.Offset, e.Err)
	}
	return fmt.Sprintf("provider %s (offset %d): %v", e.Provider, e.Offset, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// AdapterResult is the settled outcome of one provider call: records on
// success, Err on failure, never both.
type AdapterResult struct {
	Provider string
	Offset   int
	Records  []RawRecord
	Err      *AdapterError
	Duration time.Duration
}

// providerCall is one planned adapter call.
type providerCall struct {
	provider Provider
	query    string
	offset   int
	seq      int // position among calls to the same provider
}

// errAdapterPanic marks a provider that panicked.
var errAdapterPanic = errors.New("provider panicked")

// fanOut runs every call concurrently (at most cfg.MaxConcurrentCall in
// flight) and settles all of them. Results come back in plan order, not
// completion order.
func (cfg *Config) fanOut(ctx context.Context, calls []providerCall, opts ProviderOptions) []AdapterResult {
	results := make([]AdapterResult, len(calls))
	sem := semaphore.NewWeighted(int64(cfg.MaxConcurrentCall))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = cfg.callProvider(ctx, sem, call, opts)
		}()
	}
	wg.Wait()

	if cfg.OnAdapterResult != nil {
		for _, r := range results {
			cfg.OnAdapterResult(r)
		}
	}
	return results
}

// callProvider performs one call with its own timeout. Every failure mode,
// panics included, becomes an AdapterError.
func (cfg *Config) callProvider(ctx context.Context, sem *semaphore.Weighted, call providerCall, opts ProviderOptions) (res AdapterResult) {
	name := call.provider.Name()
	res = AdapterResult{Provider: name, Offset: call.offset}
	fail := func(err error, timedOut bool) AdapterResult {
		res.Records = nil
		res.Err = &AdapterError{Provider: name, Offset: call.offset, TimedOut: timedOut, Err: err}
		slog.Warn("hirezzie: provider call failed", "provider", name, "offset", call.offset, "error", err.Error())
		return res
	}

	if call.seq > 0 && cfg.CallDelay > 0 {
		t := time.NewTimer(time.Duration(call.seq) * cfg.CallDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fail(ctx.Err(), false)
		case <-t.C:
		}
	}

	// Acquire semaphore before querying provider
	if err := sem.Acquire(ctx, 1); err != nil {
		return fail(err, false)
	}
	defer sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, cfg.AdapterTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			if cfg.OnPanic != nil {
				cfg.OnPanic("provider:"+name, r)
			}
			res = fail(fmt.Errorf("%w: %v", errAdapterPanic, r), false)
			res.Duration = time.Since(start)
		}
	}()

	records, err := call.provider.Search(callCtx, ProviderRequest{
		Query:   call.query,
		Offset:  call.offset,
		Limit:   cfg.ProviderPageSize,
		Options: opts,
	})
	if err != nil {
		return fail(err, errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil)
	}
	if callCtx.Err() != nil && ctx.Err() == nil {
		// Finished after its deadline: treat like any other timeout.
		return fail(callCtx.Err(), true)
	}
	res.Records = records
	return res
}

// normalizeResults flattens settled results into candidates tagged with
// their provider.
func normalizeResults(results []AdapterResult, originQuery string) []Candidate {
	var out []Candidate
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for _, rec := range r.Records {
			out = append(out, Normalize(rec, r.Provider, originQuery))
		}
	}
	return out
}

// summarizeResults folds adapter results into per-provider statuses, sorted by name.
func summarizeResults(into map[string]*ProviderStatus, results []AdapterResult) {
	for _, r := range results {
		st, ok := into[r.Provider]
		if !ok {
			st = &ProviderStatus{Name: r.Provider}
			into[r.Provider] = st
		}
		st.Calls++
		switch {
		case r.Err != nil && r.Err.TimedOut:
			st.Failures++
			st.TimedOut++
		case r.Err != nil:
			st.Failures++
		default:
			st.Count += len(r.Records)
		}
	}
}

func statusList(m map[string]*ProviderStatus) []ProviderStatus {
	out := make([]ProviderStatus, 0, len(m))
	for _, st := range m {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RefineQuery builds the text sent to providers. A rewrite-table hit wins.
// In strict mode the entities of a connector-split query are quoted so
// providers match each name exactly; in relaxed mode all quotes are dropped.
func RefineQuery(query string, q QueryEntities, rewrites map[string]string, strict bool) string {
	normalized := strings.Join(strings.Fields(query), " ")
	if rw, ok := rewrites[strings.ToLower(normalized)]; ok && rw != "" {
		if strict {
			return rw
		}
		return stripQuotes(rw)
	}
	if !strict {
		return stripQuotes(normalized)
	}
	if q.IsMultiEntity() && !q.Paired {
		parts := make([]string, 0, len(q.Entities))
		for _, e := range q.Entities {
			if strings.ContainsRune(e, ' ') {
				e = `"` + stripQuotes(e) + `"`
			}
			parts = append(parts, e)
		}
		return strings.Join(parts, " ")
	}
	return normalized
}

var quoteReplacer = strings.NewReplacer(`"`, "", "“", "", "”", "")

func stripQuotes(s string) string {
	return strings.Join(strings.Fields(quoteReplacer.Replace(s)), " ")
}
