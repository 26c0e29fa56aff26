package processor

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ambergate/sellerops/internal/domain"
	"github.com/ambergate/sellerops/internal/report"
)

// ErrUnknownProcessor is returned when a job names a processor key with no
// registered implementation. This is a configuration error: the job is
// failed with it as last_error rather than retried.
var ErrUnknownProcessor = errors.New("unknown processor")

// Result is what a processor hands back to the orchestrator after one
// document delivery.
type Result struct {
	RowsIngested int
	// Extra holds processor-specific counters (rows_missing_fc,
	// rows_stale, ...) surfaced in poll summaries.
	Extra map[string]int
	// Samples carries a few offending raw rows for the job's debug
	// payload when Extra reports problems.
	Samples []report.Row
}

// AddExtra increments a named counter, allocating the map lazily.
func (r *Result) AddExtra(key string, n int) {
	if r.Extra == nil {
		r.Extra = make(map[string]int)
	}
	r.Extra[key] += n
}

// Processor ingests parsed report rows into domain tables. Implementations
// own their target tables and upsert keys and must be idempotent under
// redelivery of the same rows: the orchestrator is an at-least-once loop.
type Processor interface {
	// Process ingests rows for one completed report job.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - job: the report job the rows belong to.
	//   - rows: parsed document rows.
	// Returns:
	//   - *Result: ingestion counters.
	//   - error: non-nil if ingestion failed; the job is marked failed.
	Process(ctx context.Context, job *domain.ReportJob, rows []report.Row) (*Result, error)
}

// Registry maps processor keys to implementations. The set is fixed at
// construction time; Lookup of an unregistered key is the caller's
// configuration error.
type Registry struct {
	processors map[string]Processor
}

// NewRegistry creates a registry over the given key-to-processor map.
// Parameters:
//   - processors: processor implementations keyed by job family name.
// Returns:
//   - *Registry: registry instance.
func NewRegistry(processors map[string]Processor) *Registry {
	m := make(map[string]Processor, len(processors))
	for k, v := range processors {
		m[k] = v
	}
	return &Registry{processors: m}
}

// Lookup resolves a processor key.
// Parameters:
//   - key: processor key from the report job.
// Returns:
//   - Processor: registered implementation.
//   - error: wraps ErrUnknownProcessor when the key is unregistered.
func (r *Registry) Lookup(key string) (Processor, error) {
	p, ok := r.processors[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProcessor, key)
	}
	return p, nil
}

// Keys returns the registered processor keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.processors))
	for k := range r.processors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
