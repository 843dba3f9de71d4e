// Package handlers defines the HTTP-layer error codes used across all API
// endpoints. The constants below form a stable, machine-readable taxonomy
// that supplements the human-readable message in the error envelope.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes mirror common HTTP status semantics.
//   - Domain-specific codes cover business failures a status alone cannot
//     convey (e.g. declare_failed vs a generic 500).
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeSelfTarget       = "self_target"
	ErrCodeDeclareFailed    = "declare_failed"
	ErrCodeWithdrawFailed   = "withdraw_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeLoginFailed      = "login_failed"
	ErrCodeDisconnectFailed = "disconnect_failed"
	ErrCodeUpdateFailed     = "update_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
