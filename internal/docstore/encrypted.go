package docstore

import (
	"context"
	"fmt"

	"ideas-go/internal/ideas"
)

// EncryptedStore seals every document before it reaches the wrapped store.
// Keys stay in the clear so listing still works.
type EncryptedStore struct {
	Store
	enc ideas.Encryptor
	dc  ideas.DecryptionContext
}

var _ Store = (*EncryptedStore)(nil)

// NewEncryptedStore wraps inner. dc must come from enc.Unlock.
func NewEncryptedStore(inner Store, enc ideas.Encryptor, dc ideas.DecryptionContext) *EncryptedStore {
	return &EncryptedStore{Store: inner, enc: enc, dc: dc}
}

func (e *EncryptedStore) Put(ctx context.Context, key string, data []byte) error {
	sealed, err := e.enc.Seal(data)
	if err != nil {
		return fmt.Errorf("encrypting %s: %w", key, err)
	}
	return e.Store.Put(ctx, key, sealed)
}

func (e *EncryptedStore) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := e.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := e.dc.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", key, err)
	}
	return data, nil
}
