package ideas_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"

	"ideas-go/internal/ideas"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ideas.ErrorClass
	}{
		{name: "domain sentinel", err: ideas.ErrAlreadyMember, want: ideas.ClassDomain},
		{name: "wrapped domain", err: fmt.Errorf("joining: %w", ideas.ErrInvalidInviteCode), want: ideas.ClassDomain},
		{name: "invalid date", err: ideas.ValidateDate("tomorrow"), want: ideas.ClassDomain},
		{name: "unavailable", err: fmt.Errorf("get: %w", ideas.ErrUnavailable), want: ideas.ClassConnectivity},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: ideas.ClassConnectivity},
		{name: "conn done", err: sql.ErrConnDone, want: ideas.ClassConnectivity},
		{name: "refused", err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, want: ideas.ClassConnectivity},
		{name: "reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), want: ideas.ClassConnectivity},
		{name: "url error", err: &url.Error{Op: "Get", URL: "https://s3.example.com", Err: errors.New("eof")}, want: ideas.ClassConnectivity},
		{name: "failed to fetch message", err: errors.New("TypeError: Failed to fetch"), want: ideas.ClassConnectivity},
		{name: "network error message", err: errors.New("Network Error"), want: ideas.ClassConnectivity},
		{name: "closed database", err: errors.New("sql: database is closed"), want: ideas.ClassConnectivity},
		{name: "no such host", err: errors.New("lookup s3.example.com: no such host"), want: ideas.ClassConnectivity},
		{name: "unknown", err: errors.New("permission denied"), want: ideas.ClassUnknown},
		{name: "cancelled", err: context.Canceled, want: ideas.ClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ideas.Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorClass_String(t *testing.T) {
	for class, want := range map[ideas.ErrorClass]string{
		ideas.ClassUnknown:      "unknown",
		ideas.ClassConnectivity: "connectivity",
		ideas.ClassDomain:       "domain",
	} {
		if got := class.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", class, got, want)
		}
	}
}

func TestParseInviteCode(t *testing.T) {
	tests := []struct {
		give string
		want string
	}{
		{give: "ABC123", want: "ABC123"},
		{give: "  abc123 ", want: "ABC123"},
		{give: "https://ideas.app/join/xyz789", want: "XYZ789"},
		{give: "https://ideas.app/join/XYZ789/", want: "XYZ789"},
		{give: "/join/demo123", want: "DEMO123"},
		{give: "", want: ""},
	}
	for _, tt := range tests {
		if got := ideas.ParseInviteCode(tt.give); got != tt.want {
			t.Errorf("ParseInviteCode(%q) = %q, want %q", tt.give, got, tt.want)
		}
	}
}

func TestValidateDate(t *testing.T) {
	valid := []string{"2024-01-15", "2024-02-29"}
	invalid := []string{"", "2024-1-5", "15/01/2024", "2023-02-29", "2024-13-01", "2024-01-15T10:00:00Z"}

	for _, d := range valid {
		if err := ideas.ValidateDate(d); err != nil {
			t.Errorf("ValidateDate(%q) = %v, want nil", d, err)
		}
	}
	for _, d := range invalid {
		err := ideas.ValidateDate(d)
		if !errors.Is(err, ideas.ErrInvalidDate) {
			t.Errorf("ValidateDate(%q) = %v, want ErrInvalidDate", d, err)
		}
	}
}
