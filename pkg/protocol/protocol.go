// Package protocol defines the command/response envelope exchanged between
// the calc CLI and the calcd daemon, and the codecs that frame it.
package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/l3aro/go-calculadora/pkg/calculator"
)

// Command types understood by the daemon
const (
	TypeStatus = "status"
	TypeAdd    = "add"
	TypeDivide = "divide"
	TypeStop   = "stop"
)

// ErrorKindDivisionByZero marks a response whose error is calculator.ErrDivisionByZero
const ErrorKindDivisionByZero = "division_by_zero"

// Operands are the two integer inputs of an arithmetic command
type Operands struct {
	A int `json:"a" msgpack:"a"`
	B int `json:"b" msgpack:"b"`
}

// Command is a single request sent to the daemon
type Command struct {
	Type   string    `json:"type" msgpack:"type"`
	ID     string    `json:"id,omitempty" msgpack:"id,omitempty"`
	Params *Operands `json:"params,omitempty" msgpack:"params,omitempty"`
}

// Result carries the value of a successful arithmetic command
type Result struct {
	Value int `json:"value" msgpack:"value"`
}

// StatusInfo describes a running daemon
type StatusInfo struct {
	Status        string    `json:"status" msgpack:"status"`
	Version       string    `json:"version,omitempty" msgpack:"version,omitempty"`
	Codec         string    `json:"codec,omitempty" msgpack:"codec,omitempty"`
	StartedAt     time.Time `json:"started_at,omitempty" msgpack:"started_at,omitempty"`
	Served        uint64    `json:"served" msgpack:"served"`
	DivisionZeros uint64    `json:"division_zeros" msgpack:"division_zeros"`
}

// Response is the daemon's answer to a Command
type Response struct {
	ID        string      `json:"id,omitempty" msgpack:"id,omitempty"`
	Type      string      `json:"type,omitempty" msgpack:"type,omitempty"`
	Result    *Result     `json:"result,omitempty" msgpack:"result,omitempty"`
	Status    *StatusInfo `json:"status,omitempty" msgpack:"status,omitempty"`
	Error     string      `json:"error,omitempty" msgpack:"error,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty" msgpack:"error_kind,omitempty"`
}

// ErrorResponse builds a Response for err, tagging domain errors with their kind
func ErrorResponse(id string, err error) Response {
	resp := Response{ID: id, Error: err.Error()}
	if errors.Is(err, calculator.ErrDivisionByZero) {
		resp.ErrorKind = ErrorKindDivisionByZero
	}
	return resp
}

// Err converts an error response back into a Go error.
// A division-by-zero response yields an error matching calculator.ErrDivisionByZero.
func (r Response) Err() error {
	if r.Error == "" {
		return nil
	}
	if r.ErrorKind == ErrorKindDivisionByZero {
		return calculator.ErrDivisionByZero
	}
	return fmt.Errorf("daemon error: %s", r.Error)
}
