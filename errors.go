package genfix

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches one of these
// through errors.Is.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrGateway           = errors.New("gateway error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrSchema            = errors.New("schema error")
)

// UnknownCourseError is returned when a course code has no subject mapping
type UnknownCourseError struct {
	Course string
}

func (e *UnknownCourseError) Error() string {
	return fmt.Sprintf("unknown course: %s", e.Course)
}

func (e *UnknownCourseError) Is(target error) bool {
	return target == ErrConfiguration
}

// TemplateNotFoundError is returned for an unknown prompt template id
type TemplateNotFoundError struct {
	ID TemplateID
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("prompt template not found: %s", e.ID)
}

func (e *TemplateNotFoundError) Is(target error) bool {
	return target == ErrConfiguration
}

// MissingVariableError is returned when a template references a variable
// the caller did not supply
type MissingVariableError struct {
	Template TemplateID
	Name     string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("prompt template %s: missing variable %q", e.Template, e.Name)
}

func (e *MissingVariableError) Is(target error) bool {
	return target == ErrConfiguration
}

// MissingCredentialError is returned when a provider's API key is not set
type MissingCredentialError struct {
	Provider string
	EnvVar   string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s credential missing: set %s", e.Provider, e.EnvVar)
}

func (e *MissingCredentialError) Is(target error) bool {
	return target == ErrConfiguration
}

// GatewayError wraps a transport or endpoint failure of a completion call
type GatewayError struct {
	Provider string
	Wrapped  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Wrapped)
}

func (e *GatewayError) Is(target error) bool {
	return target == ErrGateway
}

func (e *GatewayError) Unwrap() error {
	return e.Wrapped
}

// MalformedResponseError is returned when a reply is not a single JSON object.
// Raw keeps the reply text for diagnosis.
type MalformedResponseError struct {
	Raw     string
	Wrapped error
}

func (e *MalformedResponseError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("reply is not a JSON object: %v", e.Wrapped)
	}
	return "reply is not a JSON object"
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Wrapped
}

// SchemaError is returned when a reply lacks a required key or a value has
// the wrong shape
type SchemaError struct {
	Key    string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("reply field %q: %s", e.Key, e.Reason)
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}
