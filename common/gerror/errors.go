package gerror

import (
	"errors"
)

const (
	ErrCodeInternal           Code = "Internal"
	ErrCodeValidationFailed   Code = "ValidationFailed"
	ErrCodeNotFound           Code = "NotFound"
	ErrCodeAlreadyExists      Code = "AlreadyExists"
	ErrCodeEnvironmentFailed  Code = "EnvironmentFailed"
	ErrCodeCommandFailed      Code = "CommandFailed"
	ErrCodeProvisionFailed    Code = "ProvisionFailed"
	ErrCodeTimeout            Code = "Timeout"
	ErrCodeHistoryUnavailable Code = "HistoryUnavailable"
)

// Process exit codes used when an error of the matching code terminates a command.
const (
	ExitCodeInternal = 2
	ExitCodeFailure  = 1
)

// ToError locates an Error in the provided error chain and returns it if it
// matches the provided code. Otherwise, returns nil.
func ToError(err error, code Code) *Error {
	if err == nil {
		return nil
	}
	var gErr Error
	if errors.As(err, &gErr) && gErr.Code() == code {
		return &gErr
	}
	return nil
}

func NewErrInternal() Error {
	return NewError(
		"An internal error occurred",
		AudienceExternal,
		ErrCodeInternal,
		ExitCodeInternal,
		nil,
	)
}

func ToInternal(err error) *Error {
	return ToError(err, ErrCodeInternal)
}

func IsInternal(err error) bool {
	return ToInternal(err) != nil
}

func NewErrValidationFailed(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeValidationFailed, ExitCodeFailure, nil)
}

func ToValidationFailed(err error) *Error {
	return ToError(err, ErrCodeValidationFailed)
}

func IsValidationFailed(err error) bool {
	return ToValidationFailed(err) != nil
}

func NewErrNotFound(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeNotFound, ExitCodeFailure, nil)
}

func ToNotFound(err error) *Error {
	return ToError(err, ErrCodeNotFound)
}

func IsNotFound(err error) bool {
	return ToNotFound(err) != nil
}

func NewErrAlreadyExists(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeAlreadyExists, ExitCodeFailure, nil)
}

func ToAlreadyExists(err error) *Error {
	return ToError(err, ErrCodeAlreadyExists)
}

func IsAlreadyExists(err error) bool {
	return ToAlreadyExists(err) != nil
}

func NewErrEnvironmentFailed(message string, err error) Error {
	return NewError(message, AudienceExternal, ErrCodeEnvironmentFailed, ExitCodeFailure, err)
}

func ToEnvironmentFailed(err error) *Error {
	return ToError(err, ErrCodeEnvironmentFailed)
}

func IsEnvironmentFailed(err error) bool {
	return ToEnvironmentFailed(err) != nil
}

func NewErrCommandFailed(message string, err error) Error {
	return NewError(message, AudienceExternal, ErrCodeCommandFailed, ExitCodeFailure, err)
}

func ToCommandFailed(err error) *Error {
	return ToError(err, ErrCodeCommandFailed)
}

func IsCommandFailed(err error) bool {
	return ToCommandFailed(err) != nil
}

func NewErrProvisionFailed(message string, err error) Error {
	return NewError(message, AudienceExternal, ErrCodeProvisionFailed, ExitCodeFailure, err)
}

func ToProvisionFailed(err error) *Error {
	return ToError(err, ErrCodeProvisionFailed)
}

func IsProvisionFailed(err error) bool {
	return ToProvisionFailed(err) != nil
}

func NewErrTimeout(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeTimeout, ExitCodeFailure, nil)
}

func ToTimeout(err error) *Error {
	return ToError(err, ErrCodeTimeout)
}

func IsTimeout(err error) bool {
	return ToTimeout(err) != nil
}

func NewErrHistoryUnavailable(message string, err error) Error {
	return NewError(message, AudienceInternal, ErrCodeHistoryUnavailable, ExitCodeFailure, err)
}

func ToHistoryUnavailable(err error) *Error {
	return ToError(err, ErrCodeHistoryUnavailable)
}

func IsHistoryUnavailable(err error) bool {
	return ToHistoryUnavailable(err) != nil
}
