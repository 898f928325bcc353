package colanalysis

import "fmt"

const (
	CodeInvalidInput  = "invalid_input"
	CodeStageOrder    = "stage_order"
	CodeNotFound      = "not_found"
	CodeReferenceData = "reference_data"
	CodeLLMFailure    = "llm_failure"
	CodePersistence   = "persistence"
)

// Error is the taxonomy surfaced to the driver. Validation messages pass
// through verbatim; LLM and persistence messages stay provider-neutral.
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func statusForCode(code string) int {
	switch code {
	case CodeInvalidInput:
		return 400
	case CodeStageOrder:
		return 409
	case CodeNotFound:
		return 404
	case CodeReferenceData:
		return 500
	case CodeLLMFailure:
		return 502
	case CodePersistence:
		return 503
	default:
		return 500
	}
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusForCode(code)}
}

func invalidInput(format string, args ...any) *Error {
	return newError(CodeInvalidInput, fmt.Sprintf(format, args...))
}

func stageOrder(format string, args ...any) *Error {
	return newError(CodeStageOrder, fmt.Sprintf(format, args...))
}

func notFound(sessionID string) *Error {
	return newError(CodeNotFound, "session not found: "+sessionID)
}

func llmFailure(stage string, err error) *Error {
	e := newError(CodeLLMFailure, fmt.Sprintf("%s: model call failed", stage))
	e.Err = err
	return e
}

func persistenceFailure(err error) *Error {
	e := newError(CodePersistence, "final write failed")
	e.Err = err
	return e
}
