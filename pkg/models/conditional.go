package models

// Operator is a comparison applied between a record field and a literal.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
	OperatorIn          Operator = "in"
	OperatorNotIn       Operator = "not_in"
)

// Operators lists every supported operator in declaration order.
var Operators = []Operator{
	OperatorEquals,
	OperatorNotEquals,
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorContains,
	OperatorNotContains,
	OperatorIn,
	OperatorNotIn,
}

// IsKnown reports whether the operator is supported.
func (o Operator) IsKnown() bool {
	for _, known := range Operators {
		if o == known {
			return true
		}
	}

	return false
}

// RequiresList reports whether the operator compares against an array literal.
func (o Operator) RequiresList() bool {
	return o == OperatorIn || o == OperatorNotIn
}

// Condition is a single field/operator/value predicate. Conditions in a list are ANDed.
type Condition struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required"`
	Value    any      `json:"value"`
}
