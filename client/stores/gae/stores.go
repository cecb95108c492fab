//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"

	"github.com/panyam/tigerstats/client"
)

// KindCredential is the Datastore kind for credential records
const KindCredential = "Credential"

// NewClient opens a Datastore client. An empty credentialsFile uses
// application default credentials, or the emulator when
// DATASTORE_EMULATOR_HOST is set.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*datastore.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return datastore.NewClient(ctx, projectID, opts...)
}

// CredentialStore implements client.CredentialStore using Google Cloud Datastore
type CredentialStore struct {
	client    *datastore.Client
	namespace string
	name      string
}

func NewCredentialStore(dsClient *datastore.Client, namespace, name string) *CredentialStore {
	if name == "" {
		name = "default"
	}
	return &CredentialStore{client: dsClient, namespace: namespace, name: name}
}

func (s *CredentialStore) key() *datastore.Key {
	key := datastore.NameKey(KindCredential, s.name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *CredentialStore) source() string {
	return "datastore:" + s.name
}

func (s *CredentialStore) Load(ctx context.Context) (*client.Record, error) {
	var entity CredentialEntity
	if err := s.client.Get(ctx, s.key(), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, &client.ConfigError{Source: s.source(), Err: fmt.Errorf("credential record not found: %s", s.name)}
		}
		return nil, &client.ConfigError{Source: s.source(), Err: err}
	}
	return entity.ToRecord(), nil
}

// SaveTokens reads and rewrites the entity in one transaction
func (s *CredentialStore) SaveTokens(ctx context.Context, update client.TokenUpdate) error {
	key := s.key()
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity CredentialEntity
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return &client.ConfigError{Source: s.source(), Err: fmt.Errorf("credential record not found: %s", s.name)}
			}
			return err
		}
		entity.AccessToken = update.AccessToken
		if update.RefreshToken != "" {
			entity.RefreshToken = update.RefreshToken
		}
		entity.UpdatedAt = time.Now()
		entity.Version++
		_, err := tx.Put(key, &entity)
		return err
	})
	return err
}

// Put creates or replaces the whole record
func (s *CredentialStore) Put(ctx context.Context, rec *client.Record) error {
	key := s.key()
	entity := RecordToEntity(rec, key)
	entity.UpdatedAt = time.Now()
	_, err := s.client.Put(ctx, key, entity)
	return err
}

var _ client.CredentialStore = (*CredentialStore)(nil)
