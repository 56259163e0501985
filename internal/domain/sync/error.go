package sync

import "errors"

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrForeignRow       = errors.New("record belongs to another user")
	ErrUnauthenticated  = errors.New("user not authenticated")
	ErrBatchTooLarge    = errors.New("batch too large")
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidRow       = errors.New("invalid row")
)
