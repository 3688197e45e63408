package domain

import (
	"errors"
	"fmt"
)

// ErrMissingStartNode is returned when a flow has no start node id.
var ErrMissingStartNode = errors.New("missing start node")

// ErrEmptyNodeSet is returned when a flow defines no nodes.
var ErrEmptyNodeSet = errors.New("no nodes defined")

// ErrFlowNotFound is returned when a flow id does not resolve in the library.
var ErrFlowNotFound = errors.New("flow not found")

// ErrNodeNotFound is returned when a node id does not resolve inside its flow.
var ErrNodeNotFound = errors.New("node not found")

// ErrNoActiveFlow is returned by operator actions that need a running flow.
var ErrNoActiveFlow = errors.New("no active flow for conversation")

// ErrOptionNotFound is returned when an option index is out of range.
var ErrOptionNotFound = errors.New("option not found")

// ErrTemplateNotFound is returned when an option references a deleted template.
var ErrTemplateNotFound = errors.New("template not found")

// ErrMissingHostElement is returned by host adapters when the compose box cannot be reached.
var ErrMissingHostElement = errors.New("compose box not found")

// ErrNotFound is returned by key-value stores for absent keys.
var ErrNotFound = errors.New("key not found")

// ValidationError marks a flow as structurally invalid.
// It is raised at the editing boundary and such flows are never persisted.
type ValidationError struct {
	FlowID string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.FlowID == "" {
		return fmt.Sprintf("invalid flow: %v", e.Err)
	}
	return fmt.Sprintf("invalid flow %q: %v", e.FlowID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DanglingReferenceError reports a reachable node id that is absent from the flow.
type DanglingReferenceError struct {
	NodeID string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("node '%s' not found", e.NodeID)
}

// ExternalCallError wraps a translation/refine failure. The original text is left untouched.
type ExternalCallError struct {
	Service string
	Err     error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Service, e.Err)
}

func (e *ExternalCallError) Unwrap() error {
	return e.Err
}
