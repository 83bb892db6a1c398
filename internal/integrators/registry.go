package integrators

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/bondsim/internal/dynamo"
)

// Default is the integration method used when none is requested.
const Default = "rk4"

var ErrUnknownIntegrator = errors.New("integrators: unknown integrator")

var factories = map[string]func() dynamo.Integrator{
	"euler": func() dynamo.Integrator { return NewEuler() },
	"heun":  func() dynamo.Integrator { return NewHeun() },
	"rk4":   func() dynamo.Integrator { return NewRK4() },
	"rk45":  func() dynamo.Integrator { return NewRK45() },
}

// Factory returns a constructor for the named method. An empty name selects
// Default.
func Factory(name string) (func() dynamo.Integrator, error) {
	if name == "" {
		name = Default
	}
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntegrator, name)
	}
	return fn, nil
}

func New(name string) (dynamo.Integrator, error) {
	fn, err := Factory(name)
	if err != nil {
		return nil, err
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
