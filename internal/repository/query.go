package repository

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Op is a comparison operator in a query condition.
type Op string

const (
	OpEq               Op = "=="
	OpNe               Op = "!="
	OpLt               Op = "<"
	OpLte              Op = "<="
	OpGt               Op = ">"
	OpGte              Op = ">="
	OpArrayContains    Op = "array-contains"
	OpIn               Op = "in"
	OpArrayContainsAny Op = "array-contains-any"
	OpNotIn            Op = "not-in"
)

// Condition is one {field, operator, value} filter triple. A query is the
// conjunction of its conditions.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Sort names an order-by field and direction.
type Sort struct {
	Field string
	Desc  bool
}

// Filter translates conditions into a bson filter document.
func Filter(conds []Condition) (bson.M, error) {
	out := bson.M{}
	for _, c := range conds {
		var clause any
		switch c.Op {
		case OpEq:
			clause = c.Value
		case OpNe:
			clause = bson.M{"$ne": c.Value}
		case OpLt:
			clause = bson.M{"$lt": c.Value}
		case OpLte:
			clause = bson.M{"$lte": c.Value}
		case OpGt:
			clause = bson.M{"$gt": c.Value}
		case OpGte:
			clause = bson.M{"$gte": c.Value}
		case OpArrayContains:
			clause = bson.M{"$elemMatch": bson.M{"$eq": c.Value}}
		case OpIn, OpArrayContainsAny:
			clause = bson.M{"$in": c.Value}
		case OpNotIn:
			clause = bson.M{"$nin": c.Value}
		default:
			return nil, fmt.Errorf("unsupported operator %q", c.Op)
		}
		if prev, ok := out[c.Field]; ok {
			// two conditions on one field merge into a single clause document
			merged, okPrev := prev.(bson.M)
			next, okNext := clause.(bson.M)
			if !okPrev || !okNext {
				return nil, fmt.Errorf("conflicting conditions on field %q", c.Field)
			}
			for k, v := range next {
				merged[k] = v
			}
			out[c.Field] = merged
			continue
		}
		out[c.Field] = clause
	}
	return out, nil
}

// FindOptions builds mongo find options from sort and limit.
func FindOptions(sort *Sort, limit int64) *options.FindOptions {
	opts := options.Find()
	if sort != nil {
		dir := 1
		if sort.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: sort.Field, Value: dir}})
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}
