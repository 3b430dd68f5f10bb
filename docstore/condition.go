package docstore

import "fmt"

// SortOrder represents the sort direction.
type SortOrder int

const (
	// SortAsc sorts in ascending order.
	SortAsc SortOrder = 1
	// SortDesc sorts in descending order.
	SortDesc SortOrder = -1
)

// Operator is a comparison operator for query conditions.
type Operator string

// Supported operators.
const (
	OpEqual          Operator = "eq"
	OpGreaterOrEqual Operator = "gte"
	OpLessOrEqual    Operator = "lte"
)

var validOperators = map[Operator]bool{
	OpEqual:          true,
	OpGreaterOrEqual: true,
	OpLessOrEqual:    true,
}

// Condition is a single field comparison in a query. All conditions passed to
// FindWhere/FindWhereOrdered are combined with AND.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Eq builds an equality condition.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: OpEqual, Value: value}
}

// Gte builds a greater-than-or-equal condition.
func Gte(field string, value any) Condition {
	return Condition{Field: field, Op: OpGreaterOrEqual, Value: value}
}

// Lte builds a less-than-or-equal condition.
func Lte(field string, value any) Condition {
	return Condition{Field: field, Op: OpLessOrEqual, Value: value}
}

// Validate checks that the condition is well formed.
// Returns ErrInvalidCondition for an empty field or unsupported operator.
func (c Condition) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("%w: empty field", ErrInvalidCondition)
	}
	if !validOperators[c.Op] {
		return fmt.Errorf("%w: unsupported operator: %s", ErrInvalidCondition, c.Op)
	}
	return nil
}

// ValidateConditions validates every condition in the slice.
func ValidateConditions(conds []Condition) error {
	for _, c := range conds {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Matches reports whether the document satisfies the condition.
//
// Array-valued fields match an equality condition when any element equals
// the condition value (array-contains semantics). Range operators on
// mismatched or missing types never match.
func (c Condition) Matches(doc Document) bool {
	fieldValue, ok := doc.Fields[c.Field]
	if !ok {
		return false
	}

	switch fv := fieldValue.(type) {
	case []string:
		if c.Op != OpEqual {
			return false
		}
		for _, e := range fv {
			if e == c.Value {
				return true
			}
		}
		return false
	case []any:
		if c.Op != OpEqual {
			return false
		}
		for _, e := range fv {
			if e == c.Value {
				return true
			}
		}
		return false
	}

	cmp, ok := CompareValues(fieldValue, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEqual:
		return cmp == 0
	case OpGreaterOrEqual:
		return cmp >= 0
	case OpLessOrEqual:
		return cmp <= 0
	}
	return false
}

// MatchesAll reports whether the document satisfies every condition.
func MatchesAll(doc Document, conds []Condition) bool {
	for _, c := range conds {
		if !c.Matches(doc) {
			return false
		}
	}
	return true
}

// CompareValues compares two scalar field values.
// Returns (-1|0|1, true) for comparable pairs and (0, false) when the values
// are of incompatible types. Numeric values compare across int/int64/float64.
func CompareValues(a, b any) (int, bool) {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		}
		return 0, true
	}

	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ab == bb:
			return 0, true
		case !ab:
			return -1, true
		}
		return 1, true
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
