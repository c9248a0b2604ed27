package toggle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/lumen-social/lumen/pkg/logging"
	"github.com/lumen-social/lumen/pkg/telemetry"
)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used for failed toggles and reloads.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithRequestTimeout bounds each gateway round trip. Zero means no bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Reconciler) { r.timeout = d }
}

// Reconciler holds the boolean state of one (actor, target) relationship,
// applies toggles optimistically and converges on unique-violation races.
//
// At most one toggle is outstanding per Reconciler; concurrent calls are
// rejected with ErrInFlight. A counted Reconciler also tracks the number of
// relationship records that point at the target.
type Reconciler struct {
	gw      Gateway
	schema  Schema
	counted bool
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	actor    string
	target   any
	active   bool
	count    int64
	inFlight bool
	// gen changes when the pair changes identity; version changes when a toggle lands.
	gen     uint64
	version uint64

	lastUsed atomic.Int64
}

// New creates a Reconciler for actor → target. The state starts inactive;
// call Reload to derive it from the gateway.
func New(gw Gateway, schema Schema, actor string, target any, opts ...Option) *Reconciler {
	r := &Reconciler{
		gw:     gw,
		schema: schema,
		actor:  actor,
		target: target,
		logger: logging.WithComponent("toggle"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.touch()
	return r
}

// NewCounted creates a Reconciler that also maintains the aggregate count of
// records for the target (e.g. likes on a post).
func NewCounted(gw Gateway, schema Schema, actor string, target any, opts ...Option) *Reconciler {
	r := New(gw, schema, actor, target, opts...)
	r.counted = true
	return r
}

// State reports whether the relationship is currently considered active.
func (r *Reconciler) State() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Count reports the aggregate count for the target. Always zero unless counted.
func (r *Reconciler) Count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Pending reports whether a toggle is outstanding.
func (r *Reconciler) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// Snapshot is a consistent view of a Reconciler.
type Snapshot struct {
	Active  bool  `json:"active"`
	Count   int64 `json:"count"`
	Pending bool  `json:"pending"`
}

// Snapshot returns state, count and in-flight flag read under one lock.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{Active: r.active, Count: r.count, Pending: r.inFlight}
}

// Transition describes what a single toggle did.
type Transition struct {
	// Was is the state the toggle started from.
	Was bool
	// Active is the resulting state.
	Active bool
	// Created is set when this toggle inserted the record itself. A converged
	// conflict leaves it unset: another request created the record.
	Created bool
}

// Toggle flips the relationship. It returns the resulting state.
func (r *Reconciler) Toggle(ctx context.Context) (bool, error) {
	t, err := r.Flip(ctx)
	return t.Active, err
}

// Flip flips the relationship and reports the transition it made, read under
// the same critical section that started the toggle.
//
// Local rejections (ErrNoActor, ErrInFlight, ErrSelfTarget) never reach the
// gateway and leave the state untouched. A unique-violation on insert means
// a concurrent request already created the record; it is reported as success.
// Any other gateway error leaves the state untouched and is returned.
func (r *Reconciler) Flip(ctx context.Context) (Transition, error) {
	r.mu.Lock()
	switch {
	case r.actor == "":
		active := r.active
		r.mu.Unlock()
		return Transition{Was: active, Active: active}, ErrNoActor
	case r.inFlight:
		active := r.active
		r.mu.Unlock()
		return Transition{Was: active, Active: active}, ErrInFlight
	case sameIdentity(r.actor, r.target):
		active := r.active
		r.mu.Unlock()
		return Transition{Was: active, Active: active}, ErrSelfTarget
	}
	r.inFlight = true
	key := r.schema.Key(r.actor, r.target)
	was, gen := r.active, r.gen
	r.mu.Unlock()
	r.touch()

	ctx, span := telemetry.StartSpan(ctx, "toggle."+r.schema.Table)
	defer span.End()
	span.SetAttributes(attribute.Bool("toggle.was_active", was))

	counters := telemetry.Toggles()
	counters.Attempt(ctx, r.schema.Table)

	res, err := r.mutate(ctx, key, was)
	if res == resultConverged {
		counters.Conflict(ctx, r.schema.Table)
	}

	var recount int64
	recounted := false
	if r.counted && res == resultConverged {
		n, cerr := r.countTarget(ctx, key)
		if cerr != nil {
			r.logger.Warn("recount after conflict failed", r.fields(key, cerr)...)
		} else {
			recount, recounted = n, true
		}
	}

	r.mu.Lock()
	r.inFlight = false
	if gen == r.gen && err == nil {
		r.applyLocked(res, recount, recounted)
	}
	active := r.active
	r.mu.Unlock()

	if err != nil {
		counters.Failure(ctx, r.schema.Table)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn("toggle failed", r.fields(key, err)...)
		if r.counted {
			// The optimistic count may have drifted; re-derive both values.
			if _, rerr := r.Reload(ctx); rerr != nil {
				r.logger.Warn("reload after failed toggle failed", r.fields(key, rerr)...)
			}
			active = r.State()
		}
		return Transition{Was: was, Active: active}, err
	}
	return Transition{Was: was, Active: active, Created: res == resultInserted}, nil
}

type result int

const (
	resultFailed result = iota
	resultInserted
	resultConverged
	resultDeleted
)

func (r *Reconciler) mutate(ctx context.Context, key Key, active bool) (result, error) {
	ctx, cancel := r.requestContext(ctx)
	defer cancel()

	if active {
		if err := r.gw.DeleteByKey(ctx, key); err != nil {
			return resultFailed, err
		}
		return resultDeleted, nil
	}

	record, err := r.schema.NewRecord(key.ActorValue, key.TargetValue)
	if err != nil {
		return resultFailed, fmt.Errorf("build %s record: %w", key.Table, err)
	}
	if err := r.gw.Insert(ctx, key.Table, record); err != nil {
		if IsConflict(err) {
			return resultConverged, nil
		}
		return resultFailed, err
	}
	return resultInserted, nil
}

func (r *Reconciler) applyLocked(res result, recount int64, recounted bool) {
	switch res {
	case resultDeleted:
		r.active = false
		if r.count > 0 {
			r.count--
		}
	case resultInserted:
		r.active = true
		r.count++
	case resultConverged:
		r.active = true
		if recounted {
			r.count = recount
		}
	}
	if !r.counted {
		r.count = 0
	}
	r.version++
}

// Reload re-derives the state (and the count, when counted) from the gateway.
// A toggle that lands while the reload is outstanding wins; the reload result
// is then discarded.
func (r *Reconciler) Reload(ctx context.Context) (bool, error) {
	r.mu.Lock()
	actor, target := r.actor, r.target
	gen, version := r.gen, r.version
	r.mu.Unlock()
	r.touch()

	key := r.schema.Key(actor, target)
	ctx, cancel := r.requestContext(ctx)
	defer cancel()

	var count int64
	if r.counted {
		n, err := r.countTarget(ctx, key)
		if err != nil {
			r.logger.Warn("reload count failed", r.fields(key, err)...)
			return r.State(), err
		}
		count = n
	}

	exists := false
	if actor != "" {
		ok, err := r.gw.ExistsByKey(ctx, key)
		if err != nil {
			r.logger.Warn("reload failed", r.fields(key, err)...)
			return r.State(), err
		}
		exists = ok
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen == r.gen && version == r.version {
		r.active = exists
		r.count = count
	}
	return r.active, nil
}

// Retarget switches the reconciler to a different (actor, target) pair and
// reloads. Toggles still outstanding for the previous pair no longer apply.
func (r *Reconciler) Retarget(ctx context.Context, actor string, target any) (bool, error) {
	r.mu.Lock()
	if r.actor == actor && r.target == target {
		r.mu.Unlock()
		return r.Reload(ctx)
	}
	r.actor = actor
	r.target = target
	r.active = false
	r.count = 0
	r.gen++
	r.mu.Unlock()
	return r.Reload(ctx)
}

// LastUsed returns the last time the reconciler was toggled or reloaded.
func (r *Reconciler) LastUsed() time.Time {
	return time.Unix(0, r.lastUsed.Load())
}

func (r *Reconciler) touch() {
	r.lastUsed.Store(time.Now().UnixNano())
}

func (r *Reconciler) countTarget(ctx context.Context, key Key) (int64, error) {
	return r.gw.CountByField(ctx, key.Table, key.TargetField, key.TargetValue)
}

// requestContext detaches gateway calls from caller cancellation so that a
// request, once sent, always completes; only the configured bound applies.
func (r *Reconciler) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return ctx, func() {}
}

func (r *Reconciler) fields(key Key, err error) []zap.Field {
	return []zap.Field{
		zap.String("table", key.Table),
		zap.String("actor", key.ActorValue),
		zap.Any("target", key.TargetValue),
		zap.Stringer("kind", KindOf(err)),
		zap.Error(err),
	}
}

// sameIdentity compares actor and target, as UUIDs when both parse as one so
// that case or brace variants of the same id still match.
func sameIdentity(actor string, target any) bool {
	s, ok := target.(string)
	if !ok {
		return false
	}
	if s == actor {
		return true
	}
	a, aerr := uuid.Parse(actor)
	b, berr := uuid.Parse(s)
	return aerr == nil && berr == nil && a == b
}
