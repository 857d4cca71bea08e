package chat

import "errors"

// Domain errors for session and message lifecycle
var (
	ErrInvalidSessionTransition = errors.New("invalid session state transition")
	ErrSessionExpired           = errors.New("session has expired")
	ErrInvalidMessageTransition = errors.New("invalid message state transition")
	ErrMessageImmutable         = errors.New("completed messages are immutable")
	ErrActionIndexOutOfRange    = errors.New("action index out of range")
)
