// Package apperr holds the error taxonomy shared by the Auth Service, Room
// Registry, Message/Account Store and the HTTP API, following the same
// "sum type of named error cases" shape the teacher expresses through
// datamodel.go's Err*/NoErr* helper family.
package apperr

import "errors"

// Code is a stable discriminator for an apperr.Error, safe to serialize on
// the wire as the HTTP API's error_type field.
type Code string

const (
	InvalidEmail            Code = "InvalidEmail"
	InvalidPassword         Code = "InvalidPassword"
	EmailAlreadyExists      Code = "EmailAlreadyExists"
	AccountNotFound         Code = "AccountNotFound"
	InvalidCredentials      Code = "InvalidCredentials"
	AccountSuspended        Code = "AccountSuspended"
	AccountDeleted          Code = "AccountDeleted"
	InvalidVerificationCode Code = "InvalidVerificationCode"
	TokenExpired            Code = "TokenExpired"
	InvalidToken            Code = "InvalidToken"
	VerificationSendFailed  Code = "VerificationSendFailed"

	RoomNotFound     Code = "RoomNotFound"
	UserAlreadyInRoom Code = "UserAlreadyInRoom"
	UserNotInRoom    Code = "UserNotInRoom"
	RoomFull         Code = "RoomFull"
	PermissionDenied Code = "PermissionDenied"
	InvalidRoomName  Code = "InvalidRoomName"

	StorageError   Code = "StorageError"
	TransportError Code = "TransportError"
	DecodeError    Code = "DecodeError"
)

// Error pairs a stable Code with a human-readable message and an optional
// wrapped cause, the way tinode's ServerComMessage carries both a numeric
// status and a text string.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an *Error that also carries the underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Is reports whether err (or something it wraps) is an *Error of code c.
func Is(err error, c Code) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == c
	}
	return false
}

// CodeOf extracts the Code from err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
