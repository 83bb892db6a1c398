// Package expr provides the symbolic expression trees used by the bond graph
// pipeline.
//
// An expression is a tagged variant:
//
//   - [Num]: numeric constant
//   - [Sym]: named reference (bond variable, state, parameter, input or t)
//   - [Add], [Mul]: n-ary sum and product
//   - [Pow]: power
//   - [Call]: unary function such as sin or exp
//   - [Cond]: comparison guarded select, used for piecewise source laws
//   - [Der]: time derivative of a state, produced by derivative causality
//
// Substitution during reduction is a structural rewrite:
//
//	e := expr.Sum(expr.S("e1"), expr.Neg(expr.S("e2")))
//	e = expr.Simplify(expr.Substitute(e, map[string]expr.Expr{"e2": expr.N(3)}))
//
// Trees are immutable. Every operation returns a new tree and may share
// unchanged subtrees with its input.
package expr
