package integrators

import "github.com/san-kum/bondsim/internal/dynamo"

// advance sets dst = x + h*k and returns dst.
func advance(dst, x dynamo.State, h float64, k dynamo.State) dynamo.State {
	for i := range x {
		dst[i] = x[i] + h*k[i]
	}
	return dst
}

// resize returns s when it already holds n components, else a new vector.
func resize(s dynamo.State, n int) dynamo.State {
	if len(s) == n {
		return s
	}
	return make(dynamo.State, n)
}
