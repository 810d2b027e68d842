package domain

import "errors"

var (
	ErrValidation           = errors.New("invalid input")
	ErrWeakPassword         = errors.New("password does not meet strength requirements")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountNotApproved   = errors.New("account pending approval")
	ErrForbidden            = errors.New("forbidden")
	ErrConfirmationRequired = errors.New("password reset requires mailbox confirmation")
	ErrTokenInvalid         = errors.New("token is invalid or expired")
	ErrEmailDelivery        = errors.New("email delivery failed")
	ErrPasswordChanged      = errors.New("password changed concurrently")
)
