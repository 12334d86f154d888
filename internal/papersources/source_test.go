package papersources

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// mockSource is a CitationSource driven by a func field.
type mockSource struct {
	name    string
	enabled bool

	// resolveFunc receives the 1-based call number.
	resolveFunc func(ctx context.Context, paper domain.PaperRef, call int) (*domain.Metrics, error)

	calls atomic.Int32
}

func newMockSource(name string, enabled bool) *mockSource {
	return &mockSource{name: name, enabled: enabled}
}

func (m *mockSource) Resolve(ctx context.Context, paper domain.PaperRef) (*domain.Metrics, error) {
	call := int(m.calls.Add(1))
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, paper, call)
	}
	return &domain.Metrics{PaperID: paper.ID, CitationCount: 1, Source: domain.MetricSourcePrimary}, nil
}

func (m *mockSource) Name() string    { return m.name }
func (m *mockSource) IsEnabled() bool { return m.enabled }
func (m *mockSource) CallCount() int  { return int(m.calls.Load()) }

func succeedWith(count int) func(context.Context, domain.PaperRef, int) (*domain.Metrics, error) {
	return func(_ context.Context, paper domain.PaperRef, _ int) (*domain.Metrics, error) {
		return &domain.Metrics{PaperID: paper.ID, CitationCount: count, Source: domain.MetricSourcePrimary}, nil
	}
}

func failWith(err error) func(context.Context, domain.PaperRef, int) (*domain.Metrics, error) {
	return func(context.Context, domain.PaperRef, int) (*domain.Metrics, error) {
		return nil, err
	}
}

var testPaper = domain.PaperRef{ID: "doi:10.1/test", Title: "A test paper"}

// recordedSleep collects backoff waits instead of sleeping.
type recordedSleep struct {
	waits []time.Duration
}

func (r *recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}
