package graph

import (
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Machine-readable error codes surfaced in the GraphQL extensions object.
// The closed set here is the whole taxonomy; the transport boundary never
// invents new ones.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeNotFound        = "NOT_FOUND"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeBadCredentials  = "BAD_CREDENTIALS"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// wrongCredentialsMessage is deliberately identical for unknown usernames
// and wrong passwords so a caller cannot probe which part failed.
const wrongCredentialsMessage = "wrong credentials"

// Error is a tagged resolver error. It implements gqlerrors.ExtendedError,
// so Code and Meta end up in the errors[].extensions entry of the response.
type Error struct {
	Code    string
	Message string
	Meta    map[string]interface{}
}

func (e *Error) Error() string { return e.Message }

// Extensions implements gqlerrors.ExtendedError.
func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": e.Code}
	for k, v := range e.Meta {
		ext[k] = v
	}
	return ext
}

func errUnauthenticated() *Error {
	return &Error{Code: CodeUnauthenticated, Message: "not authenticated"}
}

// errNotFound reports a missing referenced entity, carrying the offending
// argument name and value.
func errNotFound(message, argName string, argValue interface{}) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: message,
		Meta:    map[string]interface{}{"invalidArgs": map[string]interface{}{argName: argValue}},
	}
}

func errWrongCredentials() *Error {
	return &Error{Code: CodeBadCredentials, Message: wrongCredentialsMessage}
}

func errBadUserInput(message string, fields ...string) *Error {
	return &Error{
		Code:    CodeBadUserInput,
		Message: message,
		Meta:    map[string]interface{}{"invalidArgs": fields},
	}
}

func errInternal(err error) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf("internal error: %v", err)}
}

// fromValidationErrors folds the store layer's per-field validation errors
// into one BAD_USER_INPUT error. The message concatenates every field
// message and the extensions list every offending field, not just the first.
func fromValidationErrors(verrs validation.Errors) *Error {
	fields := make([]string, 0, len(verrs))
	for field := range verrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, fmt.Sprintf("%s: %v", field, verrs[field]))
	}

	return errBadUserInput(strings.Join(messages, "; "), fields...)
}
