package workflow

import (
	"errors"
	"fmt"
)

// RunError reports a run that could not finish its action list. The execution is recorded
// as FAILED before the error is returned; when that write fails, RecordErr holds the cause
// and the execution may still be RUNNING.
type RunError struct {
	WorkflowID  string
	ExecutionID string
	ActionIndex int
	Err         error
	RecordErr   error
}

func (e *RunError) Error() string {
	message := fmt.Sprintf("run of workflow %s failed at action %d (execution %s): %v", e.WorkflowID, e.ActionIndex, e.ExecutionID, e.Err)
	if e.RecordErr != nil {
		message += fmt.Sprintf("; %v", e.RecordErr)
	}

	return message
}

func (e *RunError) Unwrap() []error {
	if e.RecordErr == nil {
		return []error{e.Err}
	}

	return []error{e.Err, e.RecordErr}
}

// IsRunError checks if an error is a RunError.
func IsRunError(err error) bool {
	var runErr *RunError

	return errors.As(err, &runErr)
}
