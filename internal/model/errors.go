package model

import (
	"errors"
	"fmt"
)

// NetworkError 传输层失败（连接、超时、读取响应）
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError is a remote rejection that is neither a conflict nor a missing entry
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error during %s (status: %d)", e.Op, e.Status)
	}
	return fmt.Sprintf("server error during %s (status: %d): %s", e.Op, e.Status, e.Message)
}

// ConflictError reports a name collision detected by the server
type ConflictError struct {
	Op      string
	Path    string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("conflict during %s: %s already exists", e.Op, e.Path)
	}
	return fmt.Sprintf("conflict during %s on %s: %s", e.Op, e.Path, e.Message)
}

// NotFoundError reports that the target vanished on the server
type NotFoundError struct {
	Op   string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found", e.Op, e.Path)
}

// IsConflict reports whether err carries a ConflictError
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err carries a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsNetwork reports whether err carries a NetworkError
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// StatusOf returns the HTTP status of a ServerError, or 0
func StatusOf(err error) int {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
