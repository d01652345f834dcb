package engine

import "fmt"

// ExprKind identifies the node type of a condition expression.
type ExprKind string

const (
	ExprGreater      ExprKind = ">"
	ExprGreaterEqual ExprKind = ">="
	ExprLesser       ExprKind = "<"
	ExprLesserEqual  ExprKind = "<="
	ExprEqual        ExprKind = "=="
	ExprAnd          ExprKind = "&&"
	ExprOr           ExprKind = "||"
	ExprNot          ExprKind = "!"
	ExprNumber       ExprKind = "number"
	ExprNumberRef    ExprKind = "number-ref"
)

// IsComparison reports whether the kind compares two numeric operands.
func (k ExprKind) IsComparison() bool {
	switch k {
	case ExprGreater, ExprGreaterEqual, ExprLesser, ExprLesserEqual, ExprEqual:
		return true
	}
	return false
}

// Expression is a node of the boolean condition tree stored on aggregation
// configurations. Which fields are set depends on Kind:
//
//	comparisons, && and ||   Left, Right
//	!                        Left
//	number                   Value
//	number-ref               Ref
type Expression struct {
	Kind  ExprKind    `json:"expr" yaml:"expr"`
	Left  *Expression `json:"left,omitempty" yaml:"left,omitempty"`
	Right *Expression `json:"right,omitempty" yaml:"right,omitempty"`
	Value *float64    `json:"value,omitempty" yaml:"value,omitempty"`
	Ref   string      `json:"ref,omitempty" yaml:"ref,omitempty"`
}

// Number returns a numeric literal node.
func Number(v float64) *Expression {
	return &Expression{Kind: ExprNumber, Value: &v}
}

// NumberRef returns a node referencing the series with the given id.
func NumberRef(ref string) *Expression {
	return &Expression{Kind: ExprNumberRef, Ref: ref}
}

// Compare returns a comparison node. kind must be a comparison kind.
func Compare(kind ExprKind, left, right *Expression) *Expression {
	return &Expression{Kind: kind, Left: left, Right: right}
}

// And returns a logical conjunction node.
func And(left, right *Expression) *Expression {
	return &Expression{Kind: ExprAnd, Left: left, Right: right}
}

// Or returns a logical disjunction node.
func Or(left, right *Expression) *Expression {
	return &Expression{Kind: ExprOr, Left: left, Right: right}
}

// Not returns a negation node.
func Not(expr *Expression) *Expression {
	return &Expression{Kind: ExprNot, Left: expr}
}

// Validate checks the structural shape of the tree.
func (e *Expression) Validate() error {
	if e == nil {
		return fmt.Errorf("expression is nil")
	}

	switch e.Kind {
	case ExprGreater, ExprGreaterEqual, ExprLesser, ExprLesserEqual, ExprEqual, ExprAnd, ExprOr:
		if e.Left == nil || e.Right == nil {
			return fmt.Errorf("%q expression requires left and right operands", e.Kind)
		}
		if err := e.Left.Validate(); err != nil {
			return err
		}
		return e.Right.Validate()
	case ExprNot:
		if e.Left == nil {
			return fmt.Errorf("%q expression requires an operand", e.Kind)
		}
		return e.Left.Validate()
	case ExprNumber:
		if e.Value == nil {
			return fmt.Errorf("number expression requires a value")
		}
		return nil
	case ExprNumberRef:
		if e.Ref == "" {
			return fmt.Errorf("number-ref expression requires a ref")
		}
		return nil
	default:
		return fmt.Errorf("unknown expression kind: %q", e.Kind)
	}
}
