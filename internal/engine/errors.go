package engine

import (
	"fmt"

	"github.com/pathakanu/remindbot/internal/window"
)

// StoreQueryError means the due-reminder query failed. The tick that hit it
// sent nothing.
type StoreQueryError struct {
	Window window.Window
	Err    error
}

func (e *StoreQueryError) Error() string {
	return fmt.Sprintf("query due reminders (%s): %v", e.Window, e.Err)
}

func (e *StoreQueryError) Unwrap() error { return e.Err }

// DeliveryError is a failed send to one recipient.
type DeliveryError struct {
	RecipientID int64
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %d: %v", e.RecipientID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
