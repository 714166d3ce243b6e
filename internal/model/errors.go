package model

import "errors"

// Errors shared by every layer. Match them with errors.Is.
var (
	// ErrUnauthenticated means the request carries no valid session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the actor is authenticated but does not own the item.
	ErrForbidden = errors.New("you do not have permission to modify this item")
	// ErrNotFound means the referenced item or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedAssetType means an upload's extension or content is not an allowed image type.
	ErrUnsupportedAssetType = errors.New("unsupported image type")
	// ErrPayloadTooLarge means an upload exceeded the configured size limit.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrDuplicateIdentity means the username or email is already registered.
	ErrDuplicateIdentity = errors.New("username or email already registered")
	// ErrInvalidCredentials is the uniform login failure.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidInput means a submitted form failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrVersionConflict means a conditional edit lost against a concurrent update.
	ErrVersionConflict = errors.New("item was modified concurrently")
)
