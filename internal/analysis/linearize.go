package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/bondsim/internal/dynamo"
)

var ErrEigen = errors.New("analysis: eigendecomposition failed")

// Linearization is the Jacobian of dx/dt at one operating point.
type Linearization struct {
	Point       dynamo.State
	Time        float64
	Jacobian    *mat.Dense
	Eigenvalues []complex128
}

// Linearize builds the Jacobian by central differences and factorizes it.
// Eigenvalues are sorted by real part, then imaginary part.
func Linearize(sys dynamo.System, x dynamo.State, t float64) (*Linearization, error) {
	n := sys.StateDim()
	if len(x) != n {
		return nil, fmt.Errorf("%w: state has %d components, system expects %d",
			dynamo.ErrDimensionMismatch, len(x), n)
	}
	lin := &Linearization{Point: x.Clone(), Time: t}
	if n == 0 {
		return lin, nil
	}

	jac := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		h := 1e-6 * math.Max(1, math.Abs(x[j]))
		plus, minus := x.Clone(), x.Clone()
		plus[j] += h
		minus[j] -= h
		fp, fm := sys.Derive(plus, t), sys.Derive(minus, t)
		for i := 0; i < n; i++ {
			jac.Set(i, j, (fp[i]-fm[i])/(2*h))
		}
	}
	lin.Jacobian = jac

	var eig mat.Eigen
	if ok := eig.Factorize(jac, mat.EigenNone); !ok {
		return nil, ErrEigen
	}
	vals := eig.Values(nil)
	sort.Slice(vals, func(a, b int) bool {
		if real(vals[a]) != real(vals[b]) {
			return real(vals[a]) < real(vals[b])
		}
		return imag(vals[a]) < imag(vals[b])
	})
	lin.Eigenvalues = vals
	return lin, nil
}

// Stable reports whether every eigenvalue has a negative real part.
func (l *Linearization) Stable() bool {
	for _, v := range l.Eigenvalues {
		if real(v) >= 0 {
			return false
		}
	}
	return true
}

// TimeConstants returns 1/|Re(λ)| for each decaying mode, largest first.
func (l *Linearization) TimeConstants() []float64 {
	var out []float64
	for _, v := range l.Eigenvalues {
		if real(v) < 0 {
			out = append(out, -1/real(v))
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}

// stability holds the amplification polynomial R(z) of each explicit
// method applied to dx/dt = λx with z = hλ.
var stability = map[string]func(z complex128) complex128{
	"euler": func(z complex128) complex128 { return 1 + z },
	"heun":  func(z complex128) complex128 { return 1 + z + z*z/2 },
	"rk4": func(z complex128) complex128 {
		return 1 + z*(1+z*(1.0/2+z*(1.0/6+z/24)))
	},
	"rk45": func(z complex128) complex128 {
		return 1 + z*(1+z*(1.0/2+z*(1.0/6+z*(1.0/24+z*(1.0/120+z/600)))))
	},
}

// MaxStableStep is the largest step for which method keeps every decaying
// or oscillating mode bounded. It is +Inf when no mode constrains the step
// and 0 when some mode cannot be integrated stably at any step.
func (l *Linearization) MaxStableStep(method string) (float64, error) {
	r, ok := stability[method]
	if !ok {
		return 0, fmt.Errorf("analysis: no stability polynomial for %q", method)
	}
	limit := math.Inf(1)
	for _, v := range l.Eigenvalues {
		if cmplx.Abs(v) == 0 || real(v) > 1e-12*cmplx.Abs(v) {
			continue
		}
		limit = math.Min(limit, stepLimit(r, v))
	}
	return limit, nil
}

func stepLimit(r func(complex128) complex128, lambda complex128) float64 {
	stable := func(h float64) bool { return cmplx.Abs(r(complex(h, 0)*lambda)) <= 1+1e-12 }
	scale := 1 / cmplx.Abs(lambda)
	lo := 1e-2 * scale
	if !stable(lo) {
		return 0
	}
	hi := lo
	for stable(hi) {
		lo = hi
		hi *= 1.05
		if hi > 1e3*scale {
			return math.Inf(1)
		}
	}
	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		if stable(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}
