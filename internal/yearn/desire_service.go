package yearn

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/eventbus"
	"github.com/colonyops/yearn/internal/core/kv"
	"github.com/colonyops/yearn/internal/core/logging"
	"github.com/colonyops/yearn/internal/core/plan"
	"github.com/colonyops/yearn/internal/engine"
)

var (
	// ErrNotActivated is returned when approving a pending desire that has not
	// crossed its activation threshold.
	ErrNotActivated = errors.New("desire has not been activated")
	// ErrInsufficientTrust is returned when the approver's trust level is
	// below what the desire requires.
	ErrInsufficientTrust = errors.New("insufficient trust level")
	// ErrAmbiguousID is returned when an ID prefix matches several desires.
	ErrAmbiguousID = errors.New("ambiguous desire id")
)

// DesireService wraps desire.Store with the human-facing lifecycle operations.
type DesireService struct {
	store desire.Store
	kv    kv.KV
	bus   *eventbus.EventBus
	users func(ctx context.Context) ([]string, error)
	log   zerolog.Logger
	now   func() time.Time
}

// NewDesireService creates a new DesireService.
func NewDesireService(store desire.Store, kvs kv.KV, bus *eventbus.EventBus, users func(ctx context.Context) ([]string, error)) *DesireService {
	return &DesireService{
		store: store,
		kv:    kvs,
		bus:   bus,
		users: users,
		log:   logging.Component("desires"),
		now:   time.Now,
	}
}

// Users returns the namespaces engine passes iterate.
func (s *DesireService) Users(ctx context.Context) ([]string, error) {
	return s.users(ctx)
}

// List returns the user's desires in the given statuses, or in every status
// when none are given.
func (s *DesireService) List(ctx context.Context, user string, statuses ...desire.Status) ([]desire.Desire, error) {
	if len(statuses) == 0 {
		statuses = desire.AllStatuses
	}
	return desire.ListByStatuses(ctx, s.store, user, statuses...)
}

// Get returns a single desire.
func (s *DesireService) Get(ctx context.Context, user, id string) (desire.Desire, error) {
	return s.store.Get(ctx, user, id)
}

// Resolve returns the desire whose ID is id or, failing that, the only
// desire whose ID starts with id.
func (s *DesireService) Resolve(ctx context.Context, user, id string) (desire.Desire, error) {
	d, err := s.store.Get(ctx, user, id)
	if err == nil || !errors.Is(err, desire.ErrNotFound) || id == "" {
		return d, err
	}

	all, err := s.List(ctx, user)
	if err != nil {
		return desire.Desire{}, err
	}

	var matches []desire.Desire
	for _, d := range all {
		if strings.HasPrefix(d.ID, id) {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return desire.Desire{}, fmt.Errorf("%w: %s", desire.ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return desire.Desire{}, fmt.Errorf("%w: %q matches %d desires", ErrAmbiguousID, id, len(matches))
	}
}

// Approve attaches p to an activated pending desire and moves it to approved.
// The approver's trust level must meet the desire's required trust level.
func (s *DesireService) Approve(ctx context.Context, user, id string, p desire.Plan, trust desire.TrustLevel) (desire.Desire, error) {
	d, err := s.store.Get(ctx, user, id)
	if err != nil {
		return desire.Desire{}, err
	}

	if d.Status != desire.StatusPending {
		return desire.Desire{}, &desire.TransitionError{From: d.Status, To: desire.StatusApproved}
	}
	if !d.IsActivated() {
		return desire.Desire{}, ErrNotActivated
	}
	if err := plan.Validate(&p); err != nil {
		return desire.Desire{}, fmt.Errorf("invalid plan: %w", err)
	}
	if !trust.Allows(d.RequiredTrustLevel) {
		return desire.Desire{}, fmt.Errorf("%w: %q requires %s, have %s", ErrInsufficientTrust, d.Title, d.RequiredTrustLevel, trust)
	}

	d.Plan = &p
	if err := s.move(ctx, user, &d, desire.StatusApproved); err != nil {
		return desire.Desire{}, err
	}

	s.metric(ctx, user, desire.MetricApproved)
	s.bus.PublishDesireApproved(eventbus.DesireApprovedPayload{
		Scope:    eventbus.Scope{User: user},
		DesireID: d.ID,
		Title:    d.Title,
	})
	return d, nil
}

// Reject moves a nascent, pending or approved desire to rejected. Rejected
// titles are not proposed again for a while.
func (s *DesireService) Reject(ctx context.Context, user, id, reason string) (desire.Desire, error) {
	d, err := s.store.Get(ctx, user, id)
	if err != nil {
		return desire.Desire{}, err
	}

	if reason != "" {
		d.SetMeta(desire.MetaRejectedReason, reason)
	}
	if err := s.move(ctx, user, &d, desire.StatusRejected); err != nil {
		return desire.Desire{}, err
	}

	s.metric(ctx, user, desire.MetricRejected)
	s.bus.PublishDesireRejected(eventbus.DesireRejectedPayload{
		Scope:    eventbus.Scope{User: user},
		DesireID: d.ID,
		Title:    d.Title,
		Reason:   reason,
	})
	return d, nil
}

// Metrics returns the user's counters.
func (s *DesireService) Metrics(ctx context.Context, user string) (map[string]int64, error) {
	return s.store.Metrics(ctx, user)
}

// RunRecords returns the latest run record of every agent for every user,
// ordered by agent then user.
func (s *DesireService) RunRecords(ctx context.Context) ([]engine.RunRecord, error) {
	var out []engine.RunRecord
	for _, agent := range engine.Agents {
		records, err := engine.RunRecords(s.kv, agent).All(ctx)
		if err != nil {
			return nil, fmt.Errorf("read %s run records: %w", agent, err)
		}
		for _, rec := range records {
			out = append(out, rec)
		}
	}

	slices.SortFunc(out, func(a, b engine.RunRecord) int {
		return cmp.Or(cmp.Compare(a.Agent, b.Agent), cmp.Compare(a.User, b.User))
	})
	return out, nil
}

func (s *DesireService) move(ctx context.Context, user string, d *desire.Desire, to desire.Status) error {
	from := d.Status
	if err := d.Transition(to, s.now()); err != nil {
		return err
	}
	if err := s.store.MoveStatus(ctx, user, *d, from, to); err != nil {
		return fmt.Errorf("move %s to %s: %w", d.ID, to, err)
	}
	return nil
}

func (s *DesireService) metric(ctx context.Context, user, name string) {
	if err := s.store.IncrementMetric(ctx, user, name); err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Str("metric", name).Msg("failed to increment metric")
	}
}
