package ideas

// Encryptor seals documents before they leave the device. Sealing needs only
// the public key; opening needs the private key, unlocked with a passphrase.
type Encryptor interface {
	// Setup generates the key pair. Called once by `ideas config keys`.
	Setup(passphrase string) error

	Seal(doc []byte) ([]byte, error)

	// Unlock decrypts the private key for the rest of the process.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether the key pair exists.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory only.
type DecryptionContext interface {
	Open(sealed []byte) ([]byte, error)
}
