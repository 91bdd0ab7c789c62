package ranking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

// blockingChain signals when a run reaches the chain fetch and holds it
// there until released.
type blockingChain struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *blockingChain) TrendingData(_ context.Context, projectIDs, _, _ []string) (map[string]models.ProjectSnapshot, error) {
	c.once.Do(func() { close(c.entered) })
	<-c.release

	out := make(map[string]models.ProjectSnapshot, len(projectIDs))
	for _, id := range projectIDs {
		out[id] = models.ProjectSnapshot{PaymentCurrency: "FLOW"}
	}
	return out, nil
}

func TestScheduler_SingleFlight(t *testing.T) {
	deps, _, _, sink := testDeps()
	deps.Registry = &fakeRegistry{projects: []models.Project{
		{ProjectID: "alpha", Owner: "0xaa"},
	}}
	chain := &blockingChain{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	deps.Chain = chain

	agg := NewAggregator(deps, nil)
	sched := NewScheduler(agg, nil, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		sched.tick(context.Background())
		close(done)
	}()

	select {
	case <-chain.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never reached the chain fetch")
	}

	// A tick while the first run is in flight must be a no-op.
	sched.tick(context.Background())

	close(chain.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never finished")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.upserts, 1, "overlapping tick should have been skipped")
}

func TestScheduler_TickRunsAggregator(t *testing.T) {
	deps, _, chain, sink := testDeps()
	deps.Registry = &fakeRegistry{projects: []models.Project{
		{ProjectID: "alpha", Owner: "0xaa"},
	}}
	chain.snapshots["alpha"] = models.ProjectSnapshot{PaymentCurrency: "FLOW"}

	agg := NewAggregator(deps, nil)
	sched := NewScheduler(agg, nil, time.Minute, nil)

	sched.tick(context.Background())

	require.Len(t, sink.upserts, 1)
	assert.Len(t, sink.upserts[0], 1)
}
