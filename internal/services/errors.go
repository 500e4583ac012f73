// Package services defines the business logic for availability, bookings,
// the admin workspace and admin authentication. This file centralizes the
// service-level error values so they can be returned consistently by service
// methods and checked by callers with errors.Is / errors.As.
//
// Translation into user-facing HTTP status codes happens in the handler
// layer.
package services

import (
	"errors"
	"sort"
	"strings"
)

// ErrorKind classifies failures surfaced to API clients.
type ErrorKind string

const (
	KindSlotNotAllowed ErrorKind = "slot_not_allowed"
	KindSlotTaken      ErrorKind = "slot_taken"
	KindSystem         ErrorKind = "system_error"
	KindNotFound       ErrorKind = "not_found"
	KindAuth           ErrorKind = "auth_error"
)

// Sentinels matching each ErrorKind.
var (
	// ErrSlotNotAllowed means the date/time is outside the weekly calendar.
	ErrSlotNotAllowed = errors.New("slot not allowed")
	// ErrSlotTaken means another active appointment holds the slot.
	ErrSlotTaken = errors.New("slot taken")
	// ErrSystem means the store could not be consulted.
	ErrSystem = errors.New("system error")
	// ErrNotFound means the appointment is not in the store or workspace.
	ErrNotFound = errors.New("appointment not found")
	// ErrAuth means the store or session rejected the caller.
	ErrAuth = errors.New("not authorized")
)

// Other service errors.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionExpired     = errors.New("session expired")
	ErrPersistence        = errors.New("could not save the appointment")
	ErrNotConfigured      = errors.New("not configured")
	ErrAdminExists        = errors.New("admin user already exists")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

var kindSentinels = map[ErrorKind]error{
	KindSlotNotAllowed: ErrSlotNotAllowed,
	KindSlotTaken:      ErrSlotTaken,
	KindSystem:         ErrSystem,
	KindNotFound:       ErrNotFound,
	KindAuth:           ErrAuth,
}

// AvailabilityError carries the user-facing reason an appointment cannot be
// booked. errors.Is matches the sentinel for its Kind; Unwrap exposes the
// underlying store error, if any.
type AvailabilityError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *AvailabilityError) Error() string { return e.Reason }

func (e *AvailabilityError) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *AvailabilityError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the ErrorKind of err, or "" when err is not classified.
func KindOf(err error) ErrorKind {
	var ae *AvailabilityError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	for k, s := range kindSentinels {
		if errors.Is(err, s) {
			return k
		}
	}
	return ""
}

// ValidationError lists per-field problems with a booking request. It
// matches ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }
