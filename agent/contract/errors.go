package contract

import "errors"

var (
	ErrValidation       = errors.New("validation failed")
	ErrAnonymousSession = errors.New("session id is empty")
	ErrLookupDegraded   = errors.New("channel metadata lookup degraded")
	ErrContactNotFound  = errors.New("contact not found")
	ErrDuplicateKey     = errors.New("contact phone already exists")
	ErrStorage          = errors.New("contact storage failed")
	ErrDispatch         = errors.New("handoff dispatch failed")
)
