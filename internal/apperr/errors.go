// internal/apperr/errors.go

// Package apperr holds the small error taxonomy shared across the
// detection loop. Everything below the loop converts failures into one of
// these, or a logged warning; once the loop is running none of them is
// fatal to the process. At startup, a ConfigError, a failed database
// connection, or a StoreError while loading the reference tables ends the
// process with status 1.
package apperr

import "errors"

// ErrAuthUnavailable is returned when the geocoder's OAuth2 token could not
// be obtained. The current alert aborts with "Location undetermined" but
// the detection loop continues.
var ErrAuthUnavailable = errors.New("geocoder auth unavailable")

// ErrGeocodeUnmatched is returned when the geocoding service responded but
// could not match the input (Status=U or missing Country).
var ErrGeocodeUnmatched = errors.New("geocode unmatched")

// ErrGeocodeTransient is returned after a forward/reverse geocode call
// exhausts its retry budget on 5xx responses, timeouts, or network errors.
var ErrGeocodeTransient = errors.New("geocode transient failure")

// StoreError wraps a relational-store I/O failure. Within the detection
// loop, callers treat it as a fatal-to-this-attempt, non-fatal-to-the-process
// condition: the call
// surfaces an empty read and the next poll cycle retries.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// DispatchError wraps a mail-dispatcher subprocess failure or timeout. The
// alert file remains on disk regardless.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string { return "mail dispatch: " + e.Err.Error() }

func (e *DispatchError) Unwrap() error { return e.Err }

// ConfigError wraps a missing or malformed configuration key. It is always
// fatal to the process: startup prints it and exits with status 1, before
// the logger is initialized.
type ConfigError struct {
	Section string
	Key     string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return "config: [" + e.Section + "]: " + e.Reason
	}
	return "config: [" + e.Section + "] " + e.Key + ": " + e.Reason
}
