package castellan

import "errors"

// ErrorKind is the wire-level error taxonomy for rejected actions.
type ErrorKind string

const (
	ErrKindValidation         ErrorKind = "VALIDATION"
	ErrKindUnauthorized       ErrorKind = "UNAUTHORIZED"
	ErrKindIllegalPhase       ErrorKind = "ILLEGAL_PHASE"
	ErrKindNotYourTurn        ErrorKind = "NOT_YOUR_TURN"
	ErrKindIllegalPieces      ErrorKind = "ILLEGAL_PIECES"
	ErrKindWrongCount         ErrorKind = "WRONG_COUNT"
	ErrKindIllegalDeclaration ErrorKind = "ILLEGAL_DECLARATION"
	ErrKindIllegalAction      ErrorKind = "ILLEGAL_ACTION"
	ErrKindNotFound           ErrorKind = "NOT_FOUND"
	ErrKindConflict           ErrorKind = "CONFLICT"
	ErrKindOverload           ErrorKind = "OVERLOAD"
	ErrKindInternal           ErrorKind = "INTERNAL"
)

// RuleError is a typed validation failure. It never mutates room state.
type RuleError struct {
	Kind    ErrorKind
	Message string
}

func (e *RuleError) Error() string { return string(e.Kind) + ": " + e.Message }

func ruleErr(kind ErrorKind, msg string) error {
	return &RuleError{Kind: kind, Message: msg}
}

// KindOf extracts the ErrorKind from err, or ILLEGAL_ACTION for plain errors.
func KindOf(err error) ErrorKind {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ErrKindIllegalAction
}

var (
	ErrGameEnded = errors.New("game already ended")
	ErrSeatEmpty = errors.New("seat is empty")
)

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }
