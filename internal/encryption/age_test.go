package encryption

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ideas-go/internal/config"
)

func newKeyedEncryptor(t *testing.T, passphrase string) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	e := NewAgeEncryptor(config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "keys", "ideas.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "ideas.key"),
	})
	if passphrase != "" {
		if err := e.Setup(passphrase); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
	}
	return e
}

func TestAgeEncryptor_Setup(t *testing.T) {
	t.Parallel()
	e := newKeyedEncryptor(t, "")
	if e.IsConfigured() {
		t.Fatal("IsConfigured() = true before Setup")
	}
	if err := e.Setup("correct horse"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.IsConfigured() {
		t.Fatal("IsConfigured() = false after Setup")
	}

	pub, err := os.ReadFile(e.publicKeyPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(pub), "age1") {
		t.Errorf("public key = %q, want an age1 recipient", pub)
	}

	priv, err := os.ReadFile(e.privateKeyPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(priv), "-----BEGIN AGE ENCRYPTED FILE-----") {
		t.Errorf("private key file is not armored: %q", priv[:min(len(priv), 40)])
	}
	if strings.Contains(string(priv), "AGE-SECRET-KEY") {
		t.Error("private key stored unwrapped")
	}
	if info, err := os.Stat(e.privateKeyPath); err == nil && info.Mode().Perm() != 0600 {
		t.Errorf("private key mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestAgeEncryptor_SealOpen(t *testing.T) {
	t.Parallel()
	e := newKeyedEncryptor(t, "correct horse")
	dc, err := e.Unlock("correct horse")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	tests := []struct {
		name string
		doc  []byte
	}{
		{name: "idea document", doc: []byte(`{"id":"i-1","text":"Leer un libro nuevo","priority":true}`)},
		{name: "empty", doc: []byte{}},
		{name: "large", doc: bytes.Repeat([]byte(`{"k":"v"},`), 20000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := e.Seal(tt.doc)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			if len(tt.doc) > 0 && bytes.Contains(sealed, tt.doc) {
				t.Error("sealed output contains the plaintext")
			}
			got, err := dc.Open(sealed)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if !bytes.Equal(got, tt.doc) {
				t.Errorf("Open() = %q, want %q", got, tt.doc)
			}
		})
	}
}

func TestAgeEncryptor_SealIsRandomized(t *testing.T) {
	t.Parallel()
	e := newKeyedEncryptor(t, "pw")
	doc := []byte(`{"id":"c-1"}`)
	a, err := e.Seal(doc)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Seal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Error("sealing the same document twice produced identical ciphertext")
	}
}

func TestAgeEncryptor_Errors(t *testing.T) {
	t.Parallel()

	t.Run("wrong passphrase", func(t *testing.T) {
		e := newKeyedEncryptor(t, "right")
		if _, err := e.Unlock("wrong"); err == nil {
			t.Error("Unlock() with wrong passphrase error = nil")
		}
	})

	t.Run("seal before setup", func(t *testing.T) {
		e := newKeyedEncryptor(t, "")
		if _, err := e.Seal([]byte("x")); err == nil {
			t.Error("Seal() before Setup error = nil")
		}
	})

	t.Run("unlock before setup", func(t *testing.T) {
		e := newKeyedEncryptor(t, "")
		if _, err := e.Unlock("pw"); err == nil {
			t.Error("Unlock() before Setup error = nil")
		}
	})

	t.Run("setup twice", func(t *testing.T) {
		e := newKeyedEncryptor(t, "pw")
		if err := e.Setup("pw"); err == nil {
			t.Error("second Setup() error = nil")
		}
	})

	t.Run("empty passphrase", func(t *testing.T) {
		e := newKeyedEncryptor(t, "")
		if err := e.Setup(""); err == nil {
			t.Error("Setup(\"\") error = nil")
		}
		if e.IsConfigured() {
			t.Error("failed Setup left key files behind")
		}
	})

	t.Run("open foreign document", func(t *testing.T) {
		a := newKeyedEncryptor(t, "pw")
		b := newKeyedEncryptor(t, "pw")
		sealed, err := a.Seal([]byte("secret"))
		if err != nil {
			t.Fatal(err)
		}
		dc, err := b.Unlock("pw")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := dc.Open(sealed); err == nil {
			t.Error("Open() with another key pair error = nil")
		}
	})
}
