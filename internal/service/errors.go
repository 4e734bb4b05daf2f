package service

import "errors"

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when signing up with a registered email
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned when the email or password is wrong
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidRole is returned when an unknown signup role is provided
	ErrInvalidRole = errors.New("invalid role")

	ErrAlertNotFound = errors.New("alert not found")

	// ErrAlertAlreadyAccepted is returned when accepting an alert that is no longer pending
	ErrAlertAlreadyAccepted = errors.New("alert already accepted")

	ErrInvalidStatus = errors.New("invalid alert status")

	// ErrPhotoNotFound is returned when an alert has no stored photo
	ErrPhotoNotFound = errors.New("photo not found")

	// ErrInvalidPhoto is returned for photos that are not an image data URL or http(s) URL
	ErrInvalidPhoto = errors.New("invalid photo")

	ErrPhotoTooLarge = errors.New("photo exceeds maximum size")

	ErrInvalidFacilityType = errors.New("invalid facility type")
)
