// Package dynamo provides the fixed-step simulation core.
//
//   - [State]: vector representing system state
//   - [System]: explicit ODE dx/dt = f(x, t)
//   - [Integrator]: one-step numerical method
//   - [Simulator]: runs a system from an initial state into a [Trajectory]
//
// # Example
//
//	sys, _ := space.Compile()
//	sim := dynamo.New(sys, integrators.NewRK4())
//	tr, err := sim.Run(ctx, space.InitialState(), dynamo.Config{StepNumber: 100, StepSize: 0.01})
//
// # Thread Safety
//
// A Simulator must not be shared between goroutines because integrators keep
// scratch buffers. [Sweep] builds one Simulator per run.
package dynamo
