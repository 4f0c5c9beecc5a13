package store

import (
	"context"
	"errors"
)

var (
	// ErrUniqueness is returned by Insert when the record violates a unique constraint.
	ErrUniqueness = errors.New("uniqueness violation")

	// ErrNotFound is returned by Update, Delete and Increment when no record matched.
	ErrNotFound = errors.New("record not found")

	// ErrClosed is returned by a store used after Close.
	ErrClosed = errors.New("store closed")
)

// Op is a filter comparison.
type Op string

const (
	OpEq     Op = "eq"
	OpIsNull Op = "is_null"
)

// Cond is a single column condition.
type Cond struct {
	Column string
	Op     Op
	Value  any
}

// Filter is a conjunction of conditions. An empty filter matches every record.
type Filter []Cond

// Eq matches records whose column equals value.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Op: OpEq, Value: value}
}

// IsNull matches records whose column is null or absent.
func IsNull(column string) Cond {
	return Cond{Column: column, Op: OpIsNull}
}

// Where builds a Filter.
func Where(conds ...Cond) Filter {
	return Filter(conds)
}

// Order sorts query results by one column.
type Order struct {
	Column string
	Desc   bool
}

// NewestFirst orders by created_at descending.
var NewestFirst = []Order{{Column: "created_at", Desc: true}}

// Query selects records from a collection.
type Query struct {
	Filter Filter
	Order  []Order
	Limit  int // 0 means unlimited
	Offset int
}

// Subscription is an active insert subscription.
type Subscription interface {
	// Unsubscribe stops delivery. No callback runs after it returns, so it
	// must not be called from inside the callback.
	Unsubscribe()
}

// Store is the engagement backend: a set of named collections of records.
type Store interface {
	Query(ctx context.Context, collection string, q Query) ([]Record, error)
	Count(ctx context.Context, collection string, f Filter) (int64, error)

	// Insert stores rec and returns it as persisted, including generated
	// id and created_at. A unique constraint violation yields ErrUniqueness.
	Insert(ctx context.Context, collection string, rec Record) (Record, error)

	Update(ctx context.Context, collection string, f Filter, patch Record) error
	Delete(ctx context.Context, collection string, f Filter) error

	// Increment adds delta to an integer column of every matching record.
	Increment(ctx context.Context, collection string, f Filter, column string, delta int64) error

	// SubscribeInserts calls fn asynchronously for records inserted into
	// collection that match f. Delivery is at-least-once and may arrive
	// before or after the inserting call returns.
	SubscribeInserts(ctx context.Context, collection string, f Filter, fn func(Record)) (Subscription, error)
}
