package service

import (
	"errors"
	"fmt"
)

// Stage names a step of the grading pipeline.
type Stage string

const (
	StageIngesting    Stage = "ingesting"
	StageJudging      Stage = "judging"
	StageAuditing     Stage = "auditing"
	StageSynthesizing Stage = "synthesizing"
	StagePersisting   Stage = "persisting"
	StageResponding   Stage = "responding"
)

var (
	// ErrMissingInput indicates a required request field is absent.
	ErrMissingInput = errors.New("missing input")
	// ErrArtifactTooLarge indicates the artifact exceeded the configured limit.
	ErrArtifactTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUnsupportedArtifact indicates the artifact is neither an image nor a PDF.
	ErrUnsupportedArtifact = errors.New("unsupported file type")
	// ErrJudgeInvocation indicates the judge could not be reached or returned nothing usable.
	ErrJudgeInvocation = errors.New("judge invocation failed")
	// ErrJudgeOutputValidation indicates the judge answered with an invalid verdict.
	ErrJudgeOutputValidation = errors.New("judge output validation failed")
	// ErrAuditInvocation indicates the auditor could not be reached or returned nothing usable.
	ErrAuditInvocation = errors.New("audit invocation failed")
	// ErrAuditOutputValidation indicates the auditor answered with an invalid verdict.
	ErrAuditOutputValidation = errors.New("audit output validation failed")
	// ErrPersistence indicates the report could not be archived.
	ErrPersistence = errors.New("persistence failed")
)

// StageError ties a pipeline failure to the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// missingInput builds an ErrMissingInput carrying the message shown to the caller.
func missingInput(message string) error {
	return &inputError{kind: ErrMissingInput, message: message}
}

type inputError struct {
	kind    error
	message string
}

func (e *inputError) Error() string {
	return e.message
}

func (e *inputError) Unwrap() error {
	return e.kind
}

var publicErrors = []error{
	ErrMissingInput,
	ErrArtifactTooLarge,
	ErrUnsupportedArtifact,
	ErrJudgeInvocation,
	ErrJudgeOutputValidation,
	ErrPersistence,
}

// PublicMessage returns the message safe to show to callers for err.
// Provider and backend details stay in the logs.
func PublicMessage(err error) string {
	var input *inputError
	if errors.As(err, &input) {
		return input.message
	}

	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}

	return "internal server error"
}
