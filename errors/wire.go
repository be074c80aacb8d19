package errors

import "errors"

// WireCode maps an internal error onto the stable code carried by
// outbound error frames. Clients key their handling on these values,
// so new sentinels must be added here explicitly.
func WireCode(err error) string {
	switch {
	case errors.Is(err, ErrAuthorizationDenied):
		return "authorization_denied"
	case errors.Is(err, ErrVerificationRequired):
		return "verification_required"
	case errors.Is(err, ErrMalformedIntent):
		return "malformed_intent"
	case errors.Is(err, ErrMeetingNotFound):
		return "meeting_not_found"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrUnknownFlag):
		return "unknown_flag"
	default:
		return "internal"
	}
}
