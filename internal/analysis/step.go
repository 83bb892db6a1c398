package analysis

import (
	"math"

	"github.com/san-kum/bondsim/internal/dynamo"
	"github.com/san-kum/bondsim/internal/integrators"
)

// SuggestStep iterates the Dormand-Prince error controller from x until the
// proposed step settles, starting at dt0 and never exceeding 100*dt0.
func SuggestStep(sys dynamo.System, x dynamo.State, t, dt0, tol float64) (float64, error) {
	if sys.StateDim() == 0 {
		return dt0, nil
	}
	rk := integrators.NewRK45()
	dt, limit := dt0, 100*dt0
	for i := 0; i < 50; i++ {
		_, next, err := rk.StepAdaptive(sys, x, t, dt, tol)
		if err != nil {
			return 0, err
		}
		next = math.Min(next, limit)
		if math.Abs(next-dt) <= 0.01*dt {
			return next, nil
		}
		dt = next
	}
	return dt, nil
}
