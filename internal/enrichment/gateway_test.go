package enrichment_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/enrichment"
)

func TestGateway_ResolveAll_DegradesPerReference(t *testing.T) {
	next := &mockResolver{resolve: func(_ context.Context, ref string) (domain.ActivityDetails, error) {
		if ref == "bad" {
			return domain.ActivityDetails{}, enrichment.ErrUnavailable
		}
		return domain.ActivityDetails{Name: "name-" + ref, Category: "museum"}, nil
	}}
	g := enrichment.NewGateway(next, 2, discardLogger())

	got := g.ResolveAll(context.Background(), []string{"A", "bad", "C"})

	require.Len(t, got, 3)
	assert.Equal(t, domain.Activity{Ref: "A", Resolved: true, ActivityDetails: domain.ActivityDetails{Name: "name-A", Category: "museum"}}, got[0])
	assert.Equal(t, domain.PlaceholderActivity("bad"), got[1])
	assert.False(t, got[1].Resolved)
	assert.Equal(t, "C", got[2].Ref)
	assert.True(t, got[2].Resolved)
}

func TestGateway_ResolveAll_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	next := &mockResolver{resolve: func(_ context.Context, ref string) (domain.ActivityDetails, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer inFlight.Add(-1)
		return domain.ActivityDetails{Name: ref}, nil
	}}
	g := enrichment.NewGateway(next, 2, discardLogger())

	refs := make([]string, 20)
	for i := range refs {
		refs[i] = string(rune('a' + i))
	}
	got := g.ResolveAll(context.Background(), refs)

	require.Len(t, got, 20)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestGateway_ResolveAll_Empty(t *testing.T) {
	g := enrichment.NewGateway(enrichment.Disabled{}, 4, discardLogger())

	got := g.ResolveAll(context.Background(), nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGateway_ResolveAll_Disabled(t *testing.T) {
	g := enrichment.NewGateway(enrichment.Disabled{}, 4, discardLogger())

	got := g.ResolveAll(context.Background(), []string{"A"})

	assert.Equal(t, []domain.Activity{domain.PlaceholderActivity("A")}, got)
}
