package services

import "context"

// Checker is a dependency that can report its health
type Checker interface {
	// Name identifies the dependency in readiness output
	Name() string

	// HealthCheck checks if the dependency is available
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker
type CheckerFunc struct {
	name  string
	check func(ctx context.Context) error
}

// NewCheckerFunc names a health check function
func NewCheckerFunc(name string, check func(ctx context.Context) error) *CheckerFunc {
	return &CheckerFunc{name: name, check: check}
}

// Name returns the dependency name
func (c *CheckerFunc) Name() string {
	return c.name
}

// HealthCheck runs the wrapped function
func (c *CheckerFunc) HealthCheck(ctx context.Context) error {
	return c.check(ctx)
}
