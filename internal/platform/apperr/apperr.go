// Package apperr is the error model shared by every HTTP facing package.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	mysql "github.com/go-sql-driver/mysql"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeValidation      Code = "VALIDATION_FAILED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeDuplicateKey    Code = "DUPLICATE_KEY"
	CodeBusinessRule    Code = "BUSINESS_RULE_VIOLATION"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"
	CodeInternal        Code = "INTERNAL"
)

// MySQL server error numbers the stores translate.
const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	mysqlRowIsReferenced2 = 1217
)

type APIError struct {
	Code    Code
	Message string

	// Resource and Identifier are set for NOT_FOUND only.
	Resource   string
	Identifier string

	// Fields is the field -> message map of a VALIDATION_FAILED error.
	Fields map[string]string
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func NotFound(resource, id string) *APIError {
	return &APIError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found with id: %s", resource, id),
		Resource:   resource,
		Identifier: id,
	}
}

// NotFoundBy is NotFound for lookups by a natural key such as an ISBN.
func NotFoundBy(resource, attr, value string) *APIError {
	return &APIError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s with %s %s not found", resource, attr, value),
		Resource:   resource,
		Identifier: value,
	}
}

func Duplicate(format string, args ...any) *APIError {
	return &APIError{Code: CodeDuplicateKey, Message: fmt.Sprintf(format, args...)}
}

func BusinessRule(format string, args ...any) *APIError {
	return &APIError{Code: CodeBusinessRule, Message: fmt.Sprintf(format, args...)}
}

func Invalid(msg string) *APIError { return &APIError{Code: CodeInvalidArgument, Message: msg} }

func Validation(fields map[string]string) *APIError {
	return &APIError{Code: CodeValidation, Message: "Validation failed", Fields: fields}
}

func Unauthorized(msg string) *APIError { return &APIError{Code: CodeUnauthorized, Message: msg} }
func Forbidden(msg string) *APIError    { return &APIError{Code: CodeForbidden, Message: msg} }

func TooManyRequests(msg string) *APIError {
	return &APIError{Code: CodeTooManyRequests, Message: msg}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == code
}

func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument, CodeValidation, CodeDuplicateKey, CodeBusinessRule:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeUnauthorized:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		case CodeTooManyRequests:
			return http.StatusTooManyRequests
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// MySQLRules maps constraint failures of one statement to domain errors.
// A nil entry leaves that failure untranslated.
type MySQLRules struct {
	Duplicate  *APIError
	Referenced *APIError // 1451: row still referenced by a child
	NoParent   *APIError // 1452: referenced parent row missing
}

// FromMySQL translates a driver error according to rules. Other errors pass through.
func FromMySQL(err error, rules MySQLRules) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlDuplicateEntry:
		if rules.Duplicate != nil {
			return rules.Duplicate
		}
	case mysqlRowIsReferenced, mysqlRowIsReferenced2:
		if rules.Referenced != nil {
			return rules.Referenced
		}
	case mysqlNoReferencedRow:
		if rules.NoParent != nil {
			return rules.NoParent
		}
	}
	return err
}
