package engine

import (
	"fmt"
	"strings"
)

// CyclicDependencyError is returned when the task dependency graph contains
// a cycle. Structural: the optimization call fails outright and no partial
// result is produced.
type CyclicDependencyError struct {
	WorkflowID string
	Detail     string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("workflow %q has a cyclic dependency: %s", e.WorkflowID, e.Detail)
}

// UnknownDependencyError is returned when a task references a predecessor
// that does not exist in the workflow. Structural, fatal.
type UnknownDependencyError struct {
	TaskID    string
	DependsOn string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("task %q depends on non-existent task %q", e.TaskID, e.DependsOn)
}

// DuplicateTaskError is returned when two tasks share an identifier.
type DuplicateTaskError struct {
	TaskID string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task with ID %q already exists", e.TaskID)
}

// incompleteOrderError reports tasks lost by the topological sort, which
// indicates an inconsistency between the edge set and the task set.
func incompleteOrderError(missing []string) error {
	return fmt.Errorf("topological sort lost %d tasks: %s", len(missing), strings.Join(missing, ", "))
}
