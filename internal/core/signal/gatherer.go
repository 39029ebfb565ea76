package signal

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Gatherer fans out to providers in parallel and merges their results.
type Gatherer struct {
	providers map[Kind]Provider
	limit     int
	log       zerolog.Logger
}

// NewGatherer returns a gatherer that asks each provider for at most limit
// signals. A later provider for the same kind replaces an earlier one.
func NewGatherer(log zerolog.Logger, limit int, providers ...Provider) *Gatherer {
	m := make(map[Kind]Provider, len(providers))
	for _, p := range providers {
		m[p.Kind()] = p
	}
	return &Gatherer{providers: m, limit: limit, log: log}
}

// Gather reads the requested kinds for user. A provider that fails is logged
// and contributes nothing; gathering itself only fails when ctx is done.
func (g *Gatherer) Gather(ctx context.Context, user string, kinds []Kind) (Signals, error) {
	out := make(Signals, len(kinds))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		p, ok := g.providers[kind]
		if !ok {
			continue
		}

		eg.Go(func() error {
			items, err := p.Fetch(egCtx, user, g.limit)
			if err != nil {
				g.log.Warn().Ctx(ctx).Err(err).Str("kind", string(kind)).Msg("signal provider failed")
				return nil
			}

			items = normalize(kind, items, g.limit)
			mu.Lock()
			out[kind] = items
			mu.Unlock()
			return nil
		})
	}

	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalize stamps the kind, orders newest first and enforces the limit so a
// misbehaving provider cannot flood the classifier.
func normalize(kind Kind, items []Signal, limit int) []Signal {
	items = slices.Clone(items)
	for i := range items {
		items[i].Kind = kind
	}
	slices.SortStableFunc(items, func(a, b Signal) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
