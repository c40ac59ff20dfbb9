package errors

import "fmt"

var (
	ErrMessageNotFound    = fmt.Errorf("message not found")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrEmptyMessage       = fmt.Errorf("message has neither text nor image")
	ErrInvalidImage       = fmt.Errorf("image payload is not a supported format")
	ErrMediaNotFound      = fmt.Errorf("media not found")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)
