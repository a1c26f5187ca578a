package ideas

import "context"

// ConnectivityProbe reports whether this device currently has a network path
// to the remote backend.
type ConnectivityProbe interface {
	Online(ctx context.Context) bool
}

// AlwaysOnline is a probe that never reports offline.
type AlwaysOnline struct{}

func (AlwaysOnline) Online(context.Context) bool { return true }
