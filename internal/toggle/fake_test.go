package toggle

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type edge struct {
	table  string
	actor  string
	target string
}

var testFollows = Schema{
	Table:       "follows",
	ActorField:  "follower_id",
	TargetField: "following_id",
	NewRecord: func(actor string, target any) (any, error) {
		return edge{table: "follows", actor: actor, target: fmt.Sprint(target)}, nil
	},
}

var testLikes = Schema{
	Table:       "likes",
	ActorField:  "user_id",
	TargetField: "post_id",
	NewRecord: func(actor string, target any) (any, error) {
		id, ok := target.(int64)
		if !ok {
			return nil, fmt.Errorf("post id must be int64, got %T", target)
		}
		return edge{table: "likes", actor: actor, target: fmt.Sprint(id)}, nil
	},
}

// memGateway is an in-memory relationship store that enforces the
// (actor, target) uniqueness constraint per table.
type memGateway struct {
	mu    sync.Mutex
	rows  map[edge]struct{}
	calls map[string]int

	// failNext makes the next call of the named op return the error.
	failNext map[string]error
	// gate, when set, blocks Insert/DeleteByKey until a value is received.
	gate chan struct{}
	// entered is signalled when a gated call starts.
	entered chan struct{}
	// existsGate and existsEntered do the same for ExistsByKey.
	existsGate    chan struct{}
	existsEntered chan struct{}
}

func newMemGateway() *memGateway {
	return &memGateway{
		rows:     map[edge]struct{}{},
		calls:    map[string]int{},
		failNext: map[string]error{},
	}
}

func (g *memGateway) record(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[op]++
	if err, ok := g.failNext[op]; ok {
		delete(g.failNext, op)
		return err
	}
	return nil
}

func (g *memGateway) wait() {
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.gate != nil {
		<-g.gate
	}
}

func (g *memGateway) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func (g *memGateway) callCount(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *memGateway) put(table, actor, target string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rows[edge{table, actor, target}] = struct{}{}
}

func (g *memGateway) has(table, actor, target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.rows[edge{table, actor, target}]
	return ok
}

func (g *memGateway) rowCount(table string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for e := range g.rows {
		if e.table == table {
			n++
		}
	}
	return n
}

func (g *memGateway) ExistsByKey(ctx context.Context, key Key) (bool, error) {
	if err := g.record("exists"); err != nil {
		return false, err
	}
	if g.existsEntered != nil {
		g.existsEntered <- struct{}{}
	}
	if g.existsGate != nil {
		<-g.existsGate
	}
	return g.has(key.Table, key.ActorValue, fmt.Sprint(key.TargetValue)), nil
}

func (g *memGateway) Insert(ctx context.Context, table string, record any) error {
	if err := g.record("insert"); err != nil {
		return err
	}
	g.wait()
	e, ok := record.(edge)
	if !ok {
		return NewError(KindOther, "", "insert", errors.New("unexpected record type"))
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, dup := g.rows[e]; dup {
		return NewError(KindConflict, "23505", "insert", errors.New("duplicate key value violates unique constraint"))
	}
	g.rows[e] = struct{}{}
	return nil
}

func (g *memGateway) DeleteByKey(ctx context.Context, key Key) error {
	if err := g.record("delete"); err != nil {
		return err
	}
	g.wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rows, edge{key.Table, key.ActorValue, fmt.Sprint(key.TargetValue)})
	return nil
}

func (g *memGateway) CountByField(ctx context.Context, table, field string, value any) (int64, error) {
	if err := g.record("count"); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	var n int64
	for e := range g.rows {
		if e.table == table && e.target == fmt.Sprint(value) {
			n++
		}
	}
	return n, nil
}
