package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"
	"filippo.io/age/armor"

	"ideas-go/internal/config"
	"ideas-go/internal/ideas"
)

// AgeEncryptor seals documents to an X25519 recipient. The recipient is kept
// in plaintext; the identity is kept armored and wrapped with a scrypt
// passphrase, so the key file can be copied between devices as text.
type AgeEncryptor struct {
	publicKeyPath  string
	privateKeyPath string

	once      sync.Once
	recipient age.Recipient
	loadErr   error
}

var _ ideas.Encryptor = (*AgeEncryptor)(nil)

func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

// Setup writes a fresh key pair. It refuses to replace an existing one:
// documents already sealed to the old recipient would become unreadable.
func (e *AgeEncryptor) Setup(passphrase string) error {
	if e.IsConfigured() {
		return fmt.Errorf("keys already exist at %s", e.publicKeyPath)
	}
	if passphrase == "" {
		return errors.New("passphrase is required")
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}
	wrap, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	err = writeKeyFile(e.privateKeyPath, 0600, func(w io.Writer) error {
		aw := armor.NewWriter(w)
		ew, err := age.Encrypt(aw, wrap)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(ew, identity.String()+"\n"); err != nil {
			return err
		}
		if err := ew.Close(); err != nil {
			return err
		}
		return aw.Close()
	})
	if err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}

	err = writeKeyFile(e.publicKeyPath, 0644, func(w io.Writer) error {
		_, err := io.WriteString(w, identity.Recipient().String()+"\n")
		return err
	})
	if err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	return nil
}

// writeKeyFile creates path (and its directory) and fills it with fill.
func writeKeyFile(path string, perm os.FileMode, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Seal encrypts doc to the public key, which is read from disk once.
func (e *AgeEncryptor) Seal(doc []byte) ([]byte, error) {
	e.once.Do(func() { e.recipient, e.loadErr = readRecipient(e.publicKeyPath) })
	if e.loadErr != nil {
		return nil, fmt.Errorf("loading public key: %w", e.loadErr)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, e.recipient)
	if err != nil {
		return nil, fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := w.Write(doc); err != nil {
		return nil, fmt.Errorf("encrypting: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finishing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

func readRecipient(path string) (age.Recipient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	recipients, err := age.ParseRecipients(f)
	if err != nil {
		return nil, err
	}
	return recipients[0], nil
}

// Unlock unwraps the private key with passphrase.
func (e *AgeEncryptor) Unlock(passphrase string) (ideas.DecryptionContext, error) {
	f, err := os.Open(e.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("opening private key: %w", err)
	}
	defer f.Close()

	unwrap, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	r, err := age.Decrypt(armor.NewReader(f), unwrap)
	if err != nil {
		return nil, fmt.Errorf("unwrapping private key (wrong passphrase?): %w", err)
	}
	identities, err := age.ParseIdentities(r)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return &AgeDecryptionContext{identity: identities[0]}, nil
}

func (e *AgeEncryptor) IsConfigured() bool {
	for _, p := range []string{e.publicKeyPath, e.privateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// AgeDecryptionContext opens documents sealed by AgeEncryptor.
type AgeDecryptionContext struct {
	identity age.Identity
}

var _ ideas.DecryptionContext = (*AgeDecryptionContext)(nil)

func (c *AgeDecryptionContext) Open(sealed []byte) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(sealed), c.identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	doc, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading plaintext: %w", err)
	}
	return doc, nil
}
