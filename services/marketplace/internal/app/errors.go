package app

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrCourseNotFound      = errors.New("course not found")
	ErrVideoNotFound       = errors.New("video not found")
	ErrStudentNotFound     = errors.New("student not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrMethodDisabled      = errors.New("payment method disabled")
	ErrPaymentNotPending   = errors.New("payment is not pending")
	ErrTransactionMismatch = errors.New("transaction id does not match payment")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrThumbnailsDisabled  = errors.New("thumbnail storage not configured")
	ErrThumbnailNotFound   = errors.New("thumbnail not found")
)
