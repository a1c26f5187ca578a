package ideas

// Observer receives failover events for metrics and error reporting.
// Implementations must not block.
type Observer interface {
	RemoteFailure(op string, class ErrorClass, err error)
	FallbackServed(op string)
	FailoverActivated(reason string)
	FailoverDeactivated()
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) RemoteFailure(string, ErrorClass, error) {}
func (NopObserver) FallbackServed(string)                   {}
func (NopObserver) FailoverActivated(string)                {}
func (NopObserver) FailoverDeactivated()                    {}

// MultiObserver fans events out to several observers.
type MultiObserver []Observer

func (m MultiObserver) RemoteFailure(op string, class ErrorClass, err error) {
	for _, o := range m {
		o.RemoteFailure(op, class, err)
	}
}

func (m MultiObserver) FallbackServed(op string) {
	for _, o := range m {
		o.FallbackServed(op)
	}
}

func (m MultiObserver) FailoverActivated(reason string) {
	for _, o := range m {
		o.FailoverActivated(reason)
	}
}

func (m MultiObserver) FailoverDeactivated() {
	for _, o := range m {
		o.FailoverDeactivated()
	}
}
