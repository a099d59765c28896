package service

import (
	"errors"

	"github.com/Freeeeeet/mentorship_api/internal/lifecycle"
)

// Ошибки сервисного слоя, сопоставляются с HTTP-кодами в контроллере
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("session not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrAlreadyEvaluated  = errors.New("session already evaluated")
	ErrVersionConflict   = errors.New("session was modified concurrently")
	ErrInvalidTransition = lifecycle.ErrInvalidTransition
	ErrTerminal          = lifecycle.ErrTerminal
	ErrTooLateToCancel   = lifecycle.ErrTooLateToCancel
)
