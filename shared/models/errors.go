package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource Errors
	ErrNotFound          = errors.New("resource not found") // General not found
	ErrSessionNotFound   = errors.New("story session not found")
	ErrStoryTypeNotFound = errors.New("story type not found")
	ErrChildNotFound     = errors.New("child profile not found")
	ErrCharacterNotFound = errors.New("character not found")

	// Authentication Errors
	ErrUnauthorized = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden    = errors.New("forbidden")    // Authenticated, but lacks permission

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Session State Machine Errors
	ErrStoryTypeNotChosen    = errors.New("story type has not been chosen yet")
	ErrStoryTypeAlreadySet   = errors.New("story type has already been chosen")
	ErrEndingAlreadyChosen   = errors.New("ending has already been chosen for this session")
	ErrWrongPhase            = errors.New("operation is not valid in the current session phase")
	ErrNoOptionsMessage      = errors.New("session has no options message to act on")
	ErrOptionNotFound        = errors.New("selected option not found in the latest options message")
	ErrIntroductionPending   = errors.New("a character introduction is awaiting confirmation")
	ErrNoIntroductionPending = errors.New("no character introduction is awaiting confirmation")

	// Concurrency Errors
	// Только одна продвигающая историю операция может выполняться по сессии
	// одновременно (эквивалент клиентского busy-флага).
	ErrOperationInFlight = errors.New("another story operation is already in flight for this session")

	// Collaborator Errors
	ErrGenerationFailed = errors.New("story generation request failed")
	ErrCompileFailed    = errors.New("storybook compilation request failed")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
