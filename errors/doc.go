// Package errors provides the structured error taxonomy used across reverie.
// Every failure that leaves the memory store or the HTTP layer carries a
// code, a category and optional metadata so callers can branch on the kind
// of failure instead of matching message text.
//
// # Error Codes
//
// The store surfaces three codes of its own:
//
//   - NOT_FOUND: no entry exists under the requested storage key
//   - CORRUPTION: an entry exists but its encoded body does not decode
//   - STORAGE: the storage directory cannot be created, written or read
//
// The HTTP layer adds INVALID_INPUT, RATE_LIMITED and friends.
//
// # Usage
//
//	err := errors.NotFound("memory not found", errors.WithKey(key))
//
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // 404
//	}
//
//	status := errors.HTTPStatus(errors.Code(err))
//
// # JSON Serialization
//
// Errors marshal to a stable JSON object that the HTTP layer writes as the
// response body:
//
//	{"code":"NOT_FOUND","category":"permanent","message":"...","retryable":false}
package errors
