package ideas

// KeyValueStore is a small synchronous string store. The application keeps
// two of them: one scoped to the session and one to the device.
type KeyValueStore interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}
