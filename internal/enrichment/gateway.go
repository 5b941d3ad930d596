package enrichment

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// Gateway resolves many references at once for listing paths.
type Gateway struct {
	resolver    Resolver
	concurrency int
	logger      *slog.Logger
}

// NewGateway returns a Gateway issuing at most concurrency lookups at a time.
func NewGateway(resolver Resolver, concurrency int, logger *slog.Logger) *Gateway {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Gateway{resolver: resolver, concurrency: concurrency, logger: logger}
}

// ResolveAll returns one Activity per ref, in the order given. A reference
// that cannot be resolved is returned as domain.PlaceholderActivity and does
// not affect the others.
func (g *Gateway) ResolveAll(ctx context.Context, refs []string) []domain.Activity {
	out := make([]domain.Activity, len(refs))

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for i, ref := range refs {
		eg.Go(func() error {
			d, err := g.resolver.Resolve(ctx, ref)
			if err != nil {
				g.logger.WarnContext(ctx, "activity enrichment degraded",
					"activity_ref", ref,
					"error", err,
				)
				out[i] = domain.PlaceholderActivity(ref)
				return nil
			}
			out[i] = domain.Activity{Ref: ref, Resolved: true, ActivityDetails: d}
			return nil
		})
	}
	_ = eg.Wait()

	return out
}
