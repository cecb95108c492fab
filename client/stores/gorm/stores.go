//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/panyam/tigerstats/client"
)

// AutoMigrate runs database migrations for the credentials table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CredentialModel{})
}

// CredentialStore implements client.CredentialStore using GORM
type CredentialStore struct {
	db   *gorm.DB
	name string
}

func NewCredentialStore(db *gorm.DB, name string) *CredentialStore {
	if name == "" {
		name = "default"
	}
	return &CredentialStore{db: db, name: name}
}

func (s *CredentialStore) source() string {
	return "gorm:" + s.name
}

func (s *CredentialStore) Load(ctx context.Context) (*client.Record, error) {
	var model CredentialModel
	if err := s.db.WithContext(ctx).First(&model, "name = ?", s.name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &client.ConfigError{Source: s.source(), Err: fmt.Errorf("credential record not found: %s", s.name)}
		}
		return nil, &client.ConfigError{Source: s.source(), Err: err}
	}
	return model.ToRecord(), nil
}

// SaveTokens updates both token columns in one statement
func (s *CredentialStore) SaveTokens(ctx context.Context, update client.TokenUpdate) error {
	updates := map[string]any{"access_token": update.AccessToken}
	if update.RefreshToken != "" {
		updates["refresh_token"] = update.RefreshToken
	}

	result := s.db.WithContext(ctx).Model(&CredentialModel{}).Where("name = ?", s.name).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &client.ConfigError{Source: s.source(), Err: fmt.Errorf("credential record not found: %s", s.name)}
	}
	return nil
}

// Put creates or replaces the whole record
func (s *CredentialStore) Put(ctx context.Context, rec *client.Record) error {
	return s.db.WithContext(ctx).Save(RecordToModel(s.name, rec)).Error
}

var _ client.CredentialStore = (*CredentialStore)(nil)
