package filter

import "fmt"

// MaxConditions is the maximum number of conditions per filter.
const MaxConditions = 32

// Expression is a conjunction of metadata conditions applied as a pre-filter:
// the candidate pool is restricted before any top-k cut.
type Expression struct {
	conditions []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(conditions []Condition) (Expression, error) {
	if len(conditions) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Expression{conditions: conditions}, nil
}

// Conditions returns the filter conditions.
func (e Expression) Conditions() []Condition { return e.conditions }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }

// Condition is a single filter clause: an exact tag match, a set membership
// test, or a numeric equality.
type Condition struct {
	key    string
	match  string
	in     []string
	equals *float64
}

// NewMatch creates an exact tag match condition. For list fields the document
// matches when any element equals the value.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// NewIn creates a set membership condition. The document matches when its
// field value, or any list element, is one of the given values.
func NewIn(key string, values []string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	return Condition{key: key, in: values}, nil
}

// NewEquals creates a numeric equality condition.
func NewEquals(key string, value float64) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, equals: &value}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// In returns the membership set.
func (c Condition) In() []string { return c.in }

// Equals returns the numeric equality value.
func (c Condition) Equals() *float64 { return c.equals }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsIn reports whether this is a set membership condition.
func (c Condition) IsIn() bool { return len(c.in) > 0 }

// IsEquals reports whether this is a numeric equality condition.
func (c Condition) IsEquals() bool { return c.equals != nil }
