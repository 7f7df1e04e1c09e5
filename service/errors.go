package service

import "errors"

var (
	// ErrPersistence is returned by Dispatch when the notification record could
	// not be written. Nothing is fanned out in that case.
	ErrPersistence = errors.New("notification persistence failed")

	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidInput         = errors.New("invalid input")

	// ErrNoRecipient is returned by a channel provider that has nowhere to
	// deliver to (no registered device, no email address). The dispatcher
	// reports it as skipped rather than failed.
	ErrNoRecipient = errors.New("no recipient for channel")

	ErrTokenInvalid = errors.New("token invalid or expired")
)
