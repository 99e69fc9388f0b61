package bridge

import "errors"

var (
	ErrInvalidCommand  = errors.New("invalid command")
	ErrInvalidAddress  = errors.New("invalid bridge address")
	ErrHandlerPanicked = errors.New("handler panicked")
	ErrInvalidConfig   = errors.New("invalid config")
)
