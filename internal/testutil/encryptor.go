package testutil

import (
	"ideas-go/internal/encryption"
	"ideas-go/internal/ideas"
)

// NewTestEncryptor returns a reversible, keyless encryptor for tests.
func NewTestEncryptor() ideas.Encryptor {
	return encryption.NewTestEncryptor()
}
