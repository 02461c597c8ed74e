package models

import (
	"errors"
)

var (
	// ErrUnknownPlan is returned when a plan id or name is not in the catalogue
	ErrUnknownPlan = errors.New("unknown plan")

	// ErrInvalidCredentials is returned when credentials fail local validation
	ErrInvalidCredentials = errors.New("invalid credentials")
)
