// Package common holds the metadata keys and sentinel errors shared by the
// client and server sides of the chat service. Match errors with errors.Is.
package common

import "errors"

// SessionTokenHeaderName is the gRPC metadata key carrying the session token.
const SessionTokenHeaderName = "session_token"

var (
	ErrorNotFound     = errors.New("not found")
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// upload-specific errors
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidFileName = errors.New("invalid file name")
	ErrFileNotPending  = errors.New("file is not awaiting upload")
)
