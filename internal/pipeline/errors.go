package pipeline

import "fmt"

// Stage names a pipeline step.
type Stage string

const (
	StageLoad      Stage = "load"
	StageTransform Stage = "transform"
	StagePersist   Stage = "persist"
	StageQuery     Stage = "query"
	StageAggregate Stage = "aggregate"
	StageRender    Stage = "render"
)

// StageError reports which stage of a run failed.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface
func (e *StageError) Error() string {
	if e == nil {
		return "unknown pipeline error"
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
