package toggle

import (
	"context"
	"fmt"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Registry keeps one Reconciler per (table, actor, target) so repeated
// requests for the same pair share the in-flight guard and local state.
type Registry struct {
	gw    Gateway
	opts  []Option
	items cmap.ConcurrentMap[string, *Reconciler]
}

// NewRegistry creates a registry whose reconcilers use gw and opts.
func NewRegistry(gw Gateway, opts ...Option) *Registry {
	return &Registry{
		gw:    gw,
		opts:  opts,
		items: cmap.New[*Reconciler](),
	}
}

// Get returns the reconciler for actor → target in schema, creating and
// reloading it on first use.
func (r *Registry) Get(ctx context.Context, schema Schema, actor string, target any) (*Reconciler, error) {
	return r.get(ctx, schema, actor, target, false)
}

// GetCounted is Get for counted relationships.
func (r *Registry) GetCounted(ctx context.Context, schema Schema, actor string, target any) (*Reconciler, error) {
	return r.get(ctx, schema, actor, target, true)
}

// Load is Get followed by a reload when the reconciler already existed, so
// the returned state reflects the gateway as of this call.
func (r *Registry) Load(ctx context.Context, schema Schema, actor string, target any) (*Reconciler, error) {
	return r.load(ctx, schema, actor, target, false)
}

// LoadCounted is Load for counted relationships.
func (r *Registry) LoadCounted(ctx context.Context, schema Schema, actor string, target any) (*Reconciler, error) {
	return r.load(ctx, schema, actor, target, true)
}

func (r *Registry) load(ctx context.Context, schema Schema, actor string, target any, counted bool) (*Reconciler, error) {
	rec, created, err := r.lookup(ctx, schema, actor, target, counted)
	if err != nil {
		return nil, err
	}
	if !created {
		if _, err := rec.Reload(ctx); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (r *Registry) get(ctx context.Context, schema Schema, actor string, target any, counted bool) (*Reconciler, error) {
	rec, _, err := r.lookup(ctx, schema, actor, target, counted)
	return rec, err
}

func (r *Registry) lookup(ctx context.Context, schema Schema, actor string, target any, counted bool) (*Reconciler, bool, error) {
	k := registryKey(schema.Table, actor, target)
	if rec, ok := r.items.Get(k); ok {
		return rec, false, nil
	}

	var rec *Reconciler
	if counted {
		rec = NewCounted(r.gw, schema, actor, target, r.opts...)
	} else {
		rec = New(r.gw, schema, actor, target, r.opts...)
	}
	// Reload before publishing so no caller toggles from an underived state.
	if _, err := rec.Reload(ctx); err != nil {
		return nil, false, err
	}
	if !r.items.SetIfAbsent(k, rec) {
		existing, ok := r.items.Get(k)
		if ok {
			return existing, false, nil
		}
		r.items.Set(k, rec)
	}
	return rec, true, nil
}

// Forget drops every reconciler whose actor is actor, e.g. on sign-out.
func (r *Registry) Forget(actor string) int {
	removed := 0
	for item := range r.items.IterBuffered() {
		item.Val.mu.Lock()
		match := item.Val.actor == actor
		item.Val.mu.Unlock()
		if match && r.items.RemoveCb(item.Key, func(_ string, v *Reconciler, exists bool) bool {
			return exists && v == item.Val
		}) {
			removed++
		}
	}
	return removed
}

// Sweep drops reconcilers idle for longer than maxIdle. Pending ones are kept.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for item := range r.items.IterBuffered() {
		if item.Val.Pending() || item.Val.LastUsed().After(cutoff) {
			continue
		}
		if r.items.RemoveCb(item.Key, func(_ string, v *Reconciler, exists bool) bool {
			return exists && v == item.Val && !v.Pending()
		}) {
			removed++
		}
	}
	return removed
}

// Len returns the number of live reconcilers.
func (r *Registry) Len() int {
	return r.items.Count()
}

func registryKey(table, actor string, target any) string {
	return fmt.Sprintf("%s|%s|%v", table, actor, target)
}
