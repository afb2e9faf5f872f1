package client

import (
	"context"

	"github.com/l3aro/go-calculadora/pkg/calculator"
)

// Executor performs direct execution when the daemon is unavailable
type Executor struct {
	calc calculator.Service
}

// NewExecutor creates a new fallback executor
func NewExecutor() *Executor {
	return &Executor{calc: calculator.New()}
}

// Add returns a + b
func (e *Executor) Add(ctx context.Context, a, b int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return e.calc.Add(a, b), nil
}

// Divide returns a / b truncated toward zero, or calculator.ErrDivisionByZero
func (e *Executor) Divide(ctx context.Context, a, b int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return e.calc.Divide(a, b)
}
