package services

import "errors"

// Auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailTaken         = errors.New("user already registered")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrRateLimited        = errors.New("too many requests")
	ErrInvalidToken       = errors.New("invalid token")
	ErrWeakPassword       = errors.New("password too short")
)

// Donation errors.
var (
	ErrDonationNotFound     = errors.New("donation not found")
	ErrNotAvailable         = errors.New("donation is no longer available for acceptance")
	ErrNotAssignedVolunteer = errors.New("donation is assigned to another volunteer")
	ErrRoleNotAllowed       = errors.New("action not allowed for this role")
	ErrIllegalTransition    = errors.New("status transition not allowed")
	ErrInvalidPatch         = errors.New("invalid status patch")
	ErrManagerNotStarted    = errors.New("donation manager not started")
)

// ErrInvalidInput wraps request validation failures.
var ErrInvalidInput = errors.New("invalid input")

// ErrUploadsDisabled is returned when avatar storage is not configured.
var ErrUploadsDisabled = errors.New("avatar uploads are not configured")
