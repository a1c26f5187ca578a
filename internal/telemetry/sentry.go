package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"ideas-go/internal/ideas"
)

// flushTimeout bounds how long Close waits for queued reports.
const flushTimeout = 2 * time.Second

// Reporter sends remote failures and failover activations to Sentry. It
// keeps its own hub so it never touches the global one.
type Reporter struct {
	hub *sentry.Hub
}

var _ ideas.Observer = (*Reporter)(nil)

// NewReporter creates a Reporter. An empty DSN in opts still builds a client
// that drops events, which is what tests rely on.
func NewReporter(opts sentry.ClientOptions) (*Reporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("creating sentry client: %w", err)
	}
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func (r *Reporter) RemoteFailure(op string, class ideas.ErrorClass, err error) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("op", op)
		scope.SetTag("class", class.String())
		r.hub.CaptureException(err)
	})
}

func (r *Reporter) FallbackServed(op string) {
	r.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "failover",
		Message:  "served from fallback: " + op,
		Level:    sentry.LevelInfo,
	}, nil)
}

func (r *Reporter) FailoverActivated(reason string) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("reason", reason)
		scope.SetLevel(sentry.LevelWarning)
		r.hub.CaptureMessage("failover activated: " + reason)
	})
}

func (r *Reporter) FailoverDeactivated() {
	r.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "failover",
		Message:  "failover deactivated",
		Level:    sentry.LevelInfo,
	}, nil)
}

// Close flushes queued events.
func (r *Reporter) Close() {
	r.hub.Flush(flushTimeout)
}
