package encryption

import (
	"bytes"
	"errors"

	"ideas-go/internal/ideas"
)

var testHeader = []byte("IDEASENC")

// TestEncryptor backs the "test" encryption type: a keyless, deterministic
// stand-in that prefixes a fixed header. Sealed documents stop being valid
// JSON but open back to the exact input.
type TestEncryptor struct {
	setupCalled bool
}

var _ ideas.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(string) error {
	e.setupCalled = true
	return nil
}

func (e *TestEncryptor) Seal(doc []byte) ([]byte, error) {
	out := make([]byte, 0, len(testHeader)+len(doc))
	out = append(out, testHeader...)
	return append(out, doc...), nil
}

func (e *TestEncryptor) Unlock(string) (ideas.DecryptionContext, error) {
	return TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

// TestDecryptionContext strips the TestEncryptor header.
type TestDecryptionContext struct{}

var _ ideas.DecryptionContext = TestDecryptionContext{}

func (TestDecryptionContext) Open(sealed []byte) ([]byte, error) {
	doc, ok := bytes.CutPrefix(sealed, testHeader)
	if !ok {
		return nil, errors.New("missing test encryption header")
	}
	return bytes.Clone(doc), nil
}
