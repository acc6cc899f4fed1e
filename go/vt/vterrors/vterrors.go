/*
Copyright 2019 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package vterrors provides simple error handling primitives for Vitess
//
// In all Vitess code, errors should be propagated using vterrors.Wrapf()
// and not fmt.Errorf(). This makes sure that error codes are kept and
// propagated correctly.
//
// # New errors should be created using vterrors.New or vterrors.Errorf
//
// Vitess uses canonical error codes for error reporting. This is based
// on years of industry experience with error reporting. This idea is
// that errors should be classified into a small set of errors (10 or so)
// with very specific meaning. Each error has a code, and a message. When
// errors are passed around (even through RPCs), the code is
// propagated. To handle errors, only the code should be looked at (and
// not string-matching on the error message).
//
// Error codes are the gRPC codes from google.golang.org/grpc/codes.
//
// # Wrapping errors
//
// Wrap and Wrapf annotate an error with a message while keeping its code
// and the original error reachable through errors.Is and errors.As.
package vterrors

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

type vtError struct {
	code  codes.Code
	state State
	msg   string
}

func (e *vtError) Error() string {
	return e.msg
}

// ErrorCode returns the gRPC code of the error.
func (e *vtError) ErrorCode() codes.Code {
	return e.code
}

// ErrorState returns the State of the error.
func (e *vtError) ErrorState() State {
	return e.state
}

// New returns an error with the supplied message.
func New(code codes.Code, message string) error {
	return &vtError{
		code: code,
		msg:  message,
	}
}

// Errorf formats according to a format specifier and returns the string
// as a value that satisfies error.
func Errorf(code codes.Code, format string, args ...any) error {
	return &vtError{
		code: code,
		msg:  fmt.Sprintf(format, args...),
	}
}

// NewErrorf formats according to a format specifier and returns the string
// as a value that satisfies error, tagged with a State.
func NewErrorf(code codes.Code, state State, format string, args ...any) error {
	return &vtError{
		code:  code,
		state: state,
		msg:   fmt.Sprintf(format, args...),
	}
}

type wrapping struct {
	cause error
	msg   string
}

func (w *wrapping) Error() string {
	return w.msg + ": " + w.cause.Error()
}

func (w *wrapping) Cause() error {
	return w.cause
}

func (w *wrapping) Unwrap() error {
	return w.cause
}

// Wrap returns an error annotating err with the supplied message.
// If err is nil, Wrap returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrapping{
		cause: err,
		msg:   message,
	}
}

// Wrapf returns an error annotating err with the format specifier.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrapping{
		cause: err,
		msg:   fmt.Sprintf(format, args...),
	}
}

// Unwrap attempts to return the Cause of the given error, if it is indeed the result of a vterrors.Wrapf()
// The function indicates whether the error was indeed wrapped. If the error was not wrapped, the function
// returns the original error.
func Unwrap(err error) (wasWrapped bool, unwrapped error) {
	var w *wrapping
	if errors.As(err, &w) {
		return true, w.Cause()
	}
	return false, err
}

// Code returns the error code if it's a vtError.
// If err is nil, it returns ok.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var withCode interface{ ErrorCode() codes.Code }
	if errors.As(err, &withCode) {
		return withCode.ErrorCode()
	}

	// Handle some special cases.
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return codes.Unknown
}

// ErrState returns the error state if it's a vtError.
// If err is nil, it returns Undefined.
func ErrState(err error) State {
	var withState ErrorWithState
	if errors.As(err, &withState) {
		return withState.ErrorState()
	}
	return Undefined
}

// RootCause returns the innermost error wrapped by Wrap and Wrapf.
func RootCause(err error) error {
	for {
		cause := Cause(err)
		if cause == nil {
			return err
		}
		err = cause
	}
}

// Cause will return the immediate cause, if possible.
// An error value has a cause if it implements the following
// interface:
//
//	type causer interface {
//	       Cause() error
//	}
//
// If the error does not implement Cause, nil will be returned
func Cause(err error) error {
	type causer interface {
		Cause() error
	}

	for err != nil {
		cause, ok := err.(causer)
		if !ok {
			break
		}
		return cause.Cause()
	}
	return nil
}
