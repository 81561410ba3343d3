package engine

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds         = errors.New("coordinates out of bounds")
	ErrCellOccupied        = errors.New("an object is already placed here")
	ErrHunterAlreadyPlaced = errors.New("the treasure hunter has already been placed")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidTransition   = errors.New("invalid mode transition")
	ErrInvalidMove         = errors.New("invalid move")
	ErrHunterNotFound      = errors.New("hunter not found")
)

// ErrWrongMode is the transition-class error for placements and moves
// attempted outside their mode.
var ErrWrongMode = fmt.Errorf("%w: operation not allowed in current mode", ErrInvalidTransition)

// ErrorCode is a machine-readable error code
type ErrorCode string

const (
	CodeUnknown             ErrorCode = "UNKNOWN"
	CodeOutOfBounds         ErrorCode = "OUT_OF_BOUNDS"
	CodeCellOccupied        ErrorCode = "CELL_OCCUPIED"
	CodeHunterAlreadyPlaced ErrorCode = "HUNTER_ALREADY_PLACED"
	CodeInvalidInput        ErrorCode = "INVALID_INPUT"
	CodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	CodeInvalidMove         ErrorCode = "INVALID_MOVE"
	CodeHunterNotFound      ErrorCode = "HUNTER_NOT_FOUND"
	CodeWrongMode           ErrorCode = "WRONG_MODE"
)

var errorCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrOutOfBounds, CodeOutOfBounds},
	{ErrCellOccupied, CodeCellOccupied},
	{ErrHunterAlreadyPlaced, CodeHunterAlreadyPlaced},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrWrongMode, CodeWrongMode},
	{ErrInvalidTransition, CodeInvalidTransition},
	{ErrInvalidMove, CodeInvalidMove},
	{ErrHunterNotFound, CodeHunterNotFound},
}

// Code maps an engine error to its code, most specific first. Errors
// outside the engine taxonomy map to CodeUnknown.
func Code(err error) ErrorCode {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeUnknown
}
