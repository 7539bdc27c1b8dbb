// Package persistence holds the backend-neutral execution layer: the
// executor contract shared by row- and document-oriented backends, the row
// mapper and graph reconstructor, the streaming cursor, and the optional
// cache and monitoring decorators around execution.
package persistence

import (
	"fmt"
)

// ConfigError is a deferred configuration error: metadata that was tolerable
// at registration (e.g. a missing primary key) but is required by the
// operation now running.
type ConfigError struct {
	Entity string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error on %s: %s", e.Entity, e.Detail)
}

// ExecutionError wraps a backend rejection of a rendered query, attaching
// the offending representation and a snapshot of its parameters while
// preserving the original cause.
type ExecutionError struct {
	Representation string
	Params         []any
	Err            error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed for %q with params %v: %v", e.Representation, e.Params, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// MappingError reports a result column that could not be mapped onto the
// target under the strict unmapped-column policy.
type MappingError struct {
	Column string
	Target string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("result column %q has no mapping on target %s", e.Column, e.Target)
}

// CapabilityError reports an operation the active backend cannot express.
// It is raised immediately and never silently downgraded.
type CapabilityError struct {
	Backend   string
	Operation string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("backend %s does not support %s", e.Backend, e.Operation)
}
