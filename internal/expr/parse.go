package expr

import (
	"errors"
	"fmt"
	"math"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

var ErrSyntax = errors.New("expr: unsupported syntax")

// Parse reads an infix law such as "sin(2 * t)" or "x > 1 ? -k * x : 0".
// Identifiers become symbols, pi is the constant.
func Parse(src string) (Expr, error) {
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("expr: parse %q: %w", src, err)
	}
	e, err := convert(tree.Node)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", src, err)
	}
	return Simplify(e), nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func convert(node ast.Node) (Expr, error) {
	switch n := node.(type) {
	case *ast.IntegerNode:
		return N(float64(n.Value)), nil
	case *ast.FloatNode:
		return N(n.Value), nil
	case *ast.IdentifierNode:
		if n.Value == "pi" {
			return N(math.Pi), nil
		}
		return S(n.Value), nil
	case *ast.UnaryNode:
		arg, err := convert(n.Node)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "-":
			return Neg(arg), nil
		case "+":
			return arg, nil
		}
		return nil, fmt.Errorf("%w: unary %s", ErrSyntax, n.Operator)
	case *ast.BinaryNode:
		return convertBinary(n)
	case *ast.ConditionalNode:
		cmp, ok := n.Cond.(*ast.BinaryNode)
		if !ok || !isComparison(cmp.Operator) {
			return nil, fmt.Errorf("%w: condition must be a comparison", ErrSyntax)
		}
		items, err := convertAll(cmp.Left, cmp.Right, n.Exp1, n.Exp2)
		if err != nil {
			return nil, err
		}
		return &Cond{Op: cmp.Operator, L: items[0], R: items[1], Then: items[2], Else: items[3]}, nil
	case *ast.CallNode:
		id, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return nil, fmt.Errorf("%w: call", ErrUnknownFunction)
		}
		return convertCall(id.Value, n.Arguments)
	case *ast.BuiltinNode:
		// abs and friends are builtins of the parser grammar.
		return convertCall(n.Name, n.Arguments)
	}
	return nil, fmt.Errorf("%w: %T", ErrSyntax, node)
}

func convertCall(name string, args []ast.Node) (Expr, error) {
	if !IsFunction(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: %s takes one argument", ErrSyntax, name)
	}
	arg, err := convert(args[0])
	if err != nil {
		return nil, err
	}
	return &Call{Fn: name, Arg: arg}, nil
}

func convertBinary(n *ast.BinaryNode) (Expr, error) {
	if isComparison(n.Operator) {
		return nil, fmt.Errorf("%w: bare comparison %s", ErrSyntax, n.Operator)
	}
	items, err := convertAll(n.Left, n.Right)
	if err != nil {
		return nil, err
	}
	l, r := items[0], items[1]
	switch n.Operator {
	case "+":
		return &Add{Terms: []Expr{l, r}}, nil
	case "-":
		return &Add{Terms: []Expr{l, &Mul{Factors: []Expr{N(-1), r}}}}, nil
	case "*":
		return &Mul{Factors: []Expr{l, r}}, nil
	case "/":
		return &Mul{Factors: []Expr{l, &Pow{Base: r, Exp: N(-1)}}}, nil
	case "**", "^":
		return &Pow{Base: l, Exp: r}, nil
	}
	return nil, fmt.Errorf("%w: operator %s", ErrSyntax, n.Operator)
}

func convertAll(nodes ...ast.Node) ([]Expr, error) {
	out := make([]Expr, len(nodes))
	for i, n := range nodes {
		e, err := convert(n)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func isComparison(op string) bool {
	switch op {
	case "<", "<=", ">", ">=", "==", "!=":
		return true
	}
	return false
}
