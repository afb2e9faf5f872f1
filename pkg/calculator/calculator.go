// Package calculator provides the integer arithmetic service.
// Both operations are pure and safe for concurrent use.
package calculator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDivisionByZero is returned by Divide when the divisor is zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrUnknownOp is returned when an operation name is not recognized.
	ErrUnknownOp = errors.New("unknown operation")
)

// Service is the arithmetic contract shared by local and remote implementations.
type Service interface {
	Add(a, b int) int
	Divide(a, b int) (int, error)
}

// Calculator is the local Service implementation.
type Calculator struct{}

// New returns a Calculator.
func New() Calculator {
	return Calculator{}
}

// Add returns the sum of a and b.
func (Calculator) Add(a, b int) int {
	return Add(a, b)
}

// Divide returns a / b truncated toward zero.
func (Calculator) Divide(a, b int) (int, error) {
	return Divide(a, b)
}

// Add returns the sum of a and b. Overflow wraps.
func Add(a, b int) int {
	return a + b
}

// Divide returns the quotient of a and b truncated toward zero.
// It returns ErrDivisionByZero when b is 0; the int result is then meaningless.
func Divide(a, b int) (int, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return a / b, nil
}

// Op names an arithmetic operation.
type Op string

const (
	// OpAdd is integer addition, see Add.
	OpAdd Op = "add"
	// OpDivide is integer division truncated toward zero, see Divide.
	OpDivide Op = "divide"
)

// ParseOp maps a user-facing name or symbol to an Op.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add", "+", "sum", "somar":
		return OpAdd, nil
	case "divide", "/", "div", "dividir":
		return OpDivide, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOp, s)
	}
}

// Symbol returns the infix symbol used when printing the operation.
func (o Op) Symbol() string {
	switch o {
	case OpAdd:
		return "+"
	case OpDivide:
		return "/"
	default:
		return "?"
	}
}

// Apply runs op against svc.
func Apply(svc Service, op Op, a, b int) (int, error) {
	switch op {
	case OpAdd:
		return svc.Add(a, b), nil
	case OpDivide:
		return svc.Divide(a, b)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOp, string(op))
	}
}
