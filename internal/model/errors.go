package model

import "errors"

// Store errors shared by every storage backend.
var (
	ErrNotFound      = errors.New("record not found")
	ErrSlugTaken     = errors.New("slug already taken")
	ErrEmailTaken    = errors.New("email already registered")
	ErrAccountLinked = errors.New("provider account already linked")
	ErrResetInvalid  = errors.New("reset token is invalid or expired")
)
