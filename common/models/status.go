package models

import (
	"database/sql/driver"
	"fmt"
)

const (
	// StatusQueued indicates the item has been created and is waiting to be processed.
	StatusQueued Status = "queued"
	// StatusRunning indicates the item is being processed.
	StatusRunning Status = "running"
	// StatusFailed indicates the item has failed during processing.
	StatusFailed Status = "failed"
	// StatusSucceeded indicates the item has successfully finished being processed.
	StatusSucceeded Status = "succeeded"
	// StatusSkipped indicates the item was not processed because a dependency failed.
	StatusSkipped Status = "skipped"
	// StatusCanceled indicates the item was canceled before it finished processing.
	StatusCanceled Status = "canceled"
	// StatusUnknown indicates the item is in an unknown state.
	StatusUnknown Status = "unknown"
)

var statuses = map[string]Status{
	string(StatusQueued):    StatusQueued,
	string(StatusRunning):   StatusRunning,
	string(StatusFailed):    StatusFailed,
	string(StatusSucceeded): StatusSucceeded,
	string(StatusSkipped):   StatusSkipped,
	string(StatusCanceled):  StatusCanceled,
	string(StatusUnknown):   StatusUnknown,
}

// Status describes where an environment or run is in its lifecycle.
type Status string

func (s Status) Valid() bool {
	_, ok := statuses[string(s)]
	return ok
}

// HasFinished returns true if the item has finished either in a
// successful, failure, skipped or canceled state.
func (s Status) HasFinished() bool {
	return s == StatusFailed || s == StatusSucceeded || s == StatusSkipped || s == StatusCanceled
}

func (s Status) String() string {
	return string(s)
}

func (s *Status) Scan(src interface{}) error {
	if src == nil {
		*s = StatusUnknown
		return nil
	}
	t, ok := src.(string)
	if !ok {
		return fmt.Errorf("error expected string: %#v", src)
	}
	status, ok := statuses[t]
	if !ok {
		status = StatusUnknown
	}
	*s = status
	return nil
}

func (s Status) Value() (driver.Value, error) {
	return string(s), nil
}
