package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/yearn/internal/core/classify"
	"github.com/colonyops/yearn/internal/core/config"
	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/logging"
	"github.com/colonyops/yearn/internal/core/signal"
	"github.com/colonyops/yearn/internal/data/memstore"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const testWait = time.Second

type fakeClassifier struct {
	mu sync.Mutex

	candidates []desire.Candidate
	genErr     error
	reinforce  func(req classify.ReinforceRequest) map[string]string
	reinfErr   error

	genReqs   []classify.GenerateRequest
	reinfReqs []classify.ReinforceRequest
	users     []string // users seen in the context, one per call
}

func (f *fakeClassifier) GenerateCandidates(ctx context.Context, req classify.GenerateRequest) ([]desire.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genReqs = append(f.genReqs, req)
	f.users = append(f.users, logging.GetUser(ctx))
	return f.candidates, f.genErr
}

func (f *fakeClassifier) ClassifyReinforcement(ctx context.Context, req classify.ReinforceRequest) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reinfReqs = append(f.reinfReqs, req)
	f.users = append(f.users, logging.GetUser(ctx))
	if f.reinfErr != nil {
		return nil, f.reinfErr
	}
	if f.reinforce == nil {
		return map[string]string{}, nil
	}
	return f.reinforce(req), nil
}

// reinforceAll reinforces every desire in the request.
func reinforceAll(req classify.ReinforceRequest) map[string]string {
	out := make(map[string]string, len(req.Desires))
	for _, d := range req.Desires {
		out[d.ID] = "mentioned in signals"
	}
	return out
}

// staticSignals returns the same signals for every user listed in it.
type staticSignals map[string]signal.Signals

func (s staticSignals) Gather(_ context.Context, user string, _ []signal.Kind) (signal.Signals, error) {
	if sigs, ok := s[user]; ok {
		return sigs, nil
	}
	return signal.Signals{}, nil
}

func someSignals() signal.Signals {
	return signal.Signals{
		signal.KindTasks: {{ID: "t1", Title: "notes folder is a mess", CreatedAt: t0}},
	}
}

func testScope(user string) Scope {
	return Scope{User: user, Config: config.DefaultEngine()}
}

func fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// seed stores a desire built from the defaults, then lets mutate adjust it.
func seed(t *testing.T, store desire.Store, user, title string, mutate func(d *desire.Desire)) desire.Desire {
	t.Helper()
	eng := config.DefaultEngine()
	d := desire.NewFromCandidate(desire.Candidate{
		Title:  title,
		Source: desire.SourceTask,
		Risk:   desire.RiskLow,
	}, eng.DesireParams(desire.SourceTask), t0)
	if mutate != nil {
		mutate(&d)
	}
	require.NoError(t, store.Save(context.Background(), user, d))
	return d
}

func get(t *testing.T, store desire.Store, user, id string) desire.Desire {
	t.Helper()
	d, err := store.Get(context.Background(), user, id)
	require.NoError(t, err)
	return d
}

func newStore() *memstore.Store {
	s := memstore.New()
	s.Now = fixed(t0)
	return s
}

func nop() zerolog.Logger { return zerolog.Nop() }
