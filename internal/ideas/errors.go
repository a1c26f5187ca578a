package ideas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// DomainError is a business-rule rejection. It is never absorbed by the
// fallback path.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string { return e.Message }

var (
	ErrInvalidInviteCode = &DomainError{Code: "invalid_invite_code", Message: "invalid invite code"}
	ErrAlreadyMember     = &DomainError{Code: "already_member", Message: "already a member of this group"}
	ErrNotMember         = &DomainError{Code: "not_member", Message: "not a member of this group"}
	ErrDefaultCategory   = &DomainError{Code: "default_category", Message: "the default category cannot be deleted"}
	ErrEmptyText         = &DomainError{Code: "empty_text", Message: "idea text is required"}
	ErrEmptyName         = &DomainError{Code: "empty_name", Message: "name is required"}
	ErrInvalidDate       = &DomainError{Code: "invalid_date", Message: "date must be YYYY-MM-DD"}
	ErrInvalidRole       = &DomainError{Code: "invalid_role", Message: "role must be owner, admin or member"}
)

// ErrUnavailable marks a failure to reach the remote backend.
var ErrUnavailable = errors.New("remote backend unavailable")

// ErrorClass is the façade's view of a failed remote call.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassConnectivity
	ClassDomain
)

func (c ErrorClass) String() string {
	switch c {
	case ClassConnectivity:
		return "connectivity"
	case ClassDomain:
		return "domain"
	default:
		return "unknown"
	}
}

var connectivityMarkers = []string{
	"failed to fetch",
	"network error",
	"unavailable",
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"database is closed",
	"database is locked",
}

// Classify sorts a backend error into domain, connectivity or unknown.
func Classify(err error) ErrorClass {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return ClassDomain
	}

	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.As(err, &netErr),
		errors.As(err, &urlErr):
		return ClassConnectivity
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range connectivityMarkers {
		if strings.Contains(msg, marker) {
			return ClassConnectivity
		}
	}
	return ClassUnknown
}

// ParseInviteCode extracts the code from either a bare code or a
// ".../join/<code>" link.
func ParseInviteCode(s string) string {
	s = strings.TrimSpace(s)
	if _, code, ok := strings.Cut(s, "/join/"); ok {
		s = code
	}
	return strings.ToUpper(strings.Trim(s, "/ "))
}

// ValidateDate checks that date is a YYYY-MM-DD calendar date.
func ValidateDate(date string) error {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}
