package toggle

import "context"

// Key addresses one relationship record by its composite identity.
type Key struct {
	Table       string
	ActorField  string
	ActorValue  string
	TargetField string
	TargetValue any
}

// Gateway is the row-oriented data API a reconciler reconciles against.
// Every call is a single round trip with no transactional context.
// Implementations return *Error values so callers can switch on Kind.
type Gateway interface {
	ExistsByKey(ctx context.Context, key Key) (bool, error)
	Insert(ctx context.Context, table string, record any) error
	DeleteByKey(ctx context.Context, key Key) error
	CountByField(ctx context.Context, table, field string, value any) (int64, error)
}

// Schema binds a relationship table to its key columns and record type.
type Schema struct {
	Table       string
	ActorField  string
	TargetField string
	// NewRecord builds the typed row inserted when the relationship is created.
	NewRecord func(actor string, target any) (any, error)
}

// Key returns the composite key of (actor, target) in this schema.
func (s Schema) Key(actor string, target any) Key {
	return Key{
		Table:       s.Table,
		ActorField:  s.ActorField,
		ActorValue:  actor,
		TargetField: s.TargetField,
		TargetValue: target,
	}
}
