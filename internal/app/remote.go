package app

import (
	"context"
	"fmt"
	"os"

	"ideas-go/internal/config"
	"ideas-go/internal/database"
	"ideas-go/internal/docstore"
	"ideas-go/internal/encryption"
	"ideas-go/internal/ideas"
)

// remote is the backend the façade calls before failover, plus the
// handles the app needs beyond ideas.Backend.
type remote struct {
	ideas.Backend
	ping   func(context.Context) error
	sqlite *database.SQLiteBackend // nil unless remote.type is sqlite or memory
}

func (r *remote) Close() error {
	if r.sqlite == nil {
		return nil
	}
	return r.sqlite.Close()
}

// newRemote builds the remote backend named by cfg.Remote.Type.
func newRemote(ctx context.Context, cfg *config.Config, passphrase func() (string, error), clock ideas.Clock, ids ideas.IDGenerator) (*remote, error) {
	switch cfg.Remote.Type {
	case "sqlite", "memory":
		db, err := database.NewBackendFromConfig(cfg.Remote, clock, ids)
		if err != nil {
			return nil, fmt.Errorf("creating database: %w", err)
		}
		if err := db.CheckMigrations(); err != nil {
			db.Close()
			return nil, fmt.Errorf("database schema out of date: %w", err)
		}
		return &remote{Backend: db, ping: db.Ping, sqlite: db}, nil

	case "s3":
		creds := docstore.Credentials{
			AccessKey: os.Getenv("IDEAS_S3_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("IDEAS_S3_SECRET_ACCESS_KEY"),
			Session:   os.Getenv("IDEAS_S3_SESSION_TOKEN"),
		}
		s3store, err := docstore.NewS3StoreFromConfig(ctx, cfg.Remote, creds)
		if err != nil {
			return nil, fmt.Errorf("creating s3 store: %w", err)
		}

		var store docstore.Store = s3store
		if cfg.Remote.Encrypted {
			if store, err = encryptStore(store, cfg.Encryption, passphrase); err != nil {
				return nil, err
			}
		}
		b := docstore.NewBackend(store, clock, ids)
		return &remote{Backend: b, ping: b.Ping}, nil

	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Remote.Type)
	}
}

func encryptStore(store docstore.Store, cfg config.EncryptionConfig, passphrase func() (string, error)) (docstore.Store, error) {
	enc, err := encryption.NewEncryptorFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if !enc.IsConfigured() {
		return nil, fmt.Errorf("remote.encrypted is set but no key pair exists: run `ideas config keys`")
	}

	p, err := passphrase()
	if err != nil {
		return nil, err
	}
	dc, err := enc.Unlock(p)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}
	return docstore.NewEncryptedStore(store, enc, dc), nil
}
