package transactionAssembler

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ErrRetryBudgetExceeded is returned when MaxAttempts signatures all failed to recover
var ErrRetryBudgetExceeded = errors.New("retry budget exceeded")

// ValidationError reports user supplied fields that failed their format or range checks.
// It is returned before any cryptographic work is done.
type ValidationError struct {
	Errors field.ErrorList
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid transaction fields: %v", e.Errors.ToAggregate())
}

func (e *ValidationError) Unwrap() error {
	return e.Errors.ToAggregate()
}

// Fields returns the paths of the invalid fields
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		out = append(out, fe.Field)
	}
	return out
}

type Stage string

const (
	StageEncode     Stage = "encode"
	StageSynthesize Stage = "synthesize"
	StageRecover    Stage = "recover"
	StageSign       Stage = "sign"
)

// AssemblyError wraps an unexpected failure. Assembly is aborted, never retried.
type AssemblyError struct {
	Stage Stage
	Err   error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("failed to assemble transaction (%s): %v", e.Stage, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}
