package encryption

import (
	"errors"
	"fmt"

	"ideas-go/internal/config"
	"ideas-go/internal/ideas"
)

// NewEncryptorFromConfig picks the Encryptor named by cfg.Type. An empty type
// means age, which needs both key paths set.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (ideas.Encryptor, error) {
	switch cfg.Type {
	case "test":
		return NewTestEncryptor(), nil
	case "", "age":
		if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
			return nil, errors.New("age encryption needs public_key_path and private_key_path")
		}
		return NewAgeEncryptor(cfg), nil
	}
	return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
}
