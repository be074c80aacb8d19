package errors

import "fmt"

var (
	ErrAuthorizationDenied  = fmt.Errorf("user is neither host nor participant")
	ErrVerificationRequired = fmt.Errorf("lobby verification has not been passed")
	ErrMalformedIntent      = fmt.Errorf("malformed intent")
	ErrMeetingNotFound      = fmt.Errorf("meeting not found")
	ErrUserNotFound         = fmt.Errorf("user not found")
	ErrMessageNotFound      = fmt.Errorf("message not found")
	ErrStorageUnavailable   = fmt.Errorf("message store unavailable")
	ErrDeliveryDropped      = fmt.Errorf("subscriber channel full, event dropped")
	ErrUnknownFlag          = fmt.Errorf("unknown presence flag")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
)
