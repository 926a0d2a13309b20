package container

import (
	"fmt"
	"strings"
)

// Error codes carried by ContainerError
const (
	CodeComponentNotFound          = "COMPONENT_NOT_FOUND"
	CodeComponentAlreadyRegistered = "COMPONENT_ALREADY_REGISTERED"
	CodeCircularDependency         = "CIRCULAR_DEPENDENCY"
	CodeComponentType              = "COMPONENT_TYPE_ERROR"
	CodeConfiguration              = "CONFIGURATION_ERROR"
	CodeRegistrationNotFound       = "REGISTRATION_NOT_FOUND"
	CodeChildContainerExists       = "CHILD_CONTAINER_EXISTS"
	CodeChildContainerNotFound     = "CHILD_CONTAINER_NOT_FOUND"
	CodeInvalidArgument            = "INVALID_ARGUMENT"
	CodeInvalidOperation           = "INVALID_OPERATION"
	CodeContainerClosed            = "CONTAINER_CLOSED"
)

// ContainerError represents an error that occurred in the container
type ContainerError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ContainerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the cause of the error
func (e *ContainerError) Unwrap() error {
	return e.Cause
}

// Is matches container errors by code, so errors.Is works against the sentinels below
func (e *ContainerError) Is(target error) bool {
	t, ok := target.(*ContainerError)
	return ok && t.Code == e.Code
}

var (
	ErrComponentNotFound          = &ContainerError{Code: CodeComponentNotFound, Message: "component not found"}
	ErrComponentAlreadyRegistered = &ContainerError{Code: CodeComponentAlreadyRegistered, Message: "component already registered"}
	ErrCircularDependency         = &ContainerError{Code: CodeCircularDependency, Message: "circular dependency"}
	ErrComponentType              = &ContainerError{Code: CodeComponentType, Message: "unexpected component type"}
	ErrConfiguration              = &ContainerError{Code: CodeConfiguration, Message: "invalid configuration"}
	ErrRegistrationNotFound       = &ContainerError{Code: CodeRegistrationNotFound, Message: "registration not found"}
	ErrChildContainerExists       = &ContainerError{Code: CodeChildContainerExists, Message: "child container already exists"}
	ErrChildContainerNotFound     = &ContainerError{Code: CodeChildContainerNotFound, Message: "child container not found"}
	ErrInvalidArgument            = &ContainerError{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrInvalidOperation           = &ContainerError{Code: CodeInvalidOperation, Message: "invalid operation"}
	ErrContainerClosed            = &ContainerError{Code: CodeContainerClosed, Message: "container closed"}
)

// ComponentNotFoundError returns an error for when no component serves a request
func ComponentNotFoundError(name string) *ContainerError {
	return &ContainerError{
		Code:    CodeComponentNotFound,
		Message: fmt.Sprintf("component '%s' not found", name),
	}
}

// ComponentAlreadyRegisteredError returns an error for when a component key is taken
func ComponentAlreadyRegisteredError(name string) *ContainerError {
	return &ContainerError{
		Code:    CodeComponentAlreadyRegistered,
		Message: fmt.Sprintf("component with name '%s' already registered", name),
	}
}

// CircularDependencyError returns an error for when a circular dependency is detected
func CircularDependencyError(cycle []string) *ContainerError {
	return &ContainerError{
		Code:    CodeCircularDependency,
		Message: fmt.Sprintf("circular dependency detected: %s", strings.Join(cycle, " -> ")),
	}
}

// ComponentTypeError returns an error for when a component has an unexpected type
func ComponentTypeError(name string, expected, actual string) *ContainerError {
	return &ContainerError{
		Code:    CodeComponentType,
		Message: fmt.Sprintf("component '%s' is not of expected type: expected %s, got %s", name, expected, actual),
	}
}

// ConfigurationError returns an error for when configuration is invalid
func ConfigurationError(msg string, cause error) *ContainerError {
	return &ContainerError{
		Code:    CodeConfiguration,
		Message: msg,
		Cause:   cause,
	}
}

// RegistrationNotFoundError returns an error for when no catalogued registration has the name
func RegistrationNotFoundError(name string) *ContainerError {
	return &ContainerError{
		Code:    CodeRegistrationNotFound,
		Message: fmt.Sprintf("registration '%s' not found", name),
	}
}

// ChildContainerExistsError returns an error for when a child container key is taken
func ChildContainerExistsError(key string) *ContainerError {
	return &ContainerError{
		Code:    CodeChildContainerExists,
		Message: fmt.Sprintf("child container '%s' already exists", key),
	}
}

// ChildContainerNotFoundError returns an error for when no child container has the key
func ChildContainerNotFoundError(key string) *ContainerError {
	return &ContainerError{
		Code:    CodeChildContainerNotFound,
		Message: fmt.Sprintf("child container '%s' not found", key),
	}
}

// InvalidArgumentError returns an error for a nil, empty or mistyped argument
func InvalidArgumentError(format string, args ...any) *ContainerError {
	return &ContainerError{
		Code:    CodeInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// InvalidOperationError wraps a failure raised while calling into the wrapped container
func InvalidOperationError(op string, cause error) *ContainerError {
	return &ContainerError{
		Code:    CodeInvalidOperation,
		Message: fmt.Sprintf("%s failed", op),
		Cause:   cause,
	}
}
