package main

import (
	"errors"
	"fmt"

	"github.com/godilite/service-audit/internal/client"
	"github.com/godilite/service-audit/internal/service"
)

// Exit codes.
const (
	exitFailure   = 1
	exitInvalid   = 2
	exitForbidden = 3
	exitNotFound  = 4
)

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func exitError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// classify picks the exit code for an API or validation error.
func classify(err error) error {
	var ee *exitErr
	switch {
	case errors.As(err, &ee):
		return ee
	case errors.Is(err, service.ErrInvalidInput):
		return &exitErr{code: exitInvalid, msg: err.Error()}
	case errors.Is(err, client.ErrUnauthenticated), errors.Is(err, service.ErrForbidden):
		return &exitErr{code: exitForbidden, msg: err.Error()}
	case errors.Is(err, service.ErrNotFound):
		return &exitErr{code: exitNotFound, msg: err.Error()}
	}
	return &exitErr{code: exitFailure, msg: err.Error()}
}
