//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/panyam/tigerstats/client"
)

// openTestDB connects to the database named by TIGERSTATS_TEST_POSTGRES_DSN
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TIGERSTATS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TIGERSTATS_TEST_POSTGRES_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestRecordModelConversion(t *testing.T) {
	rec := &client.Record{
		API:  client.APIConfig{BaseURL: "https://api.example.com", AuthURL: "a", RefreshURL: "r", Timeout: 5},
		Auth: client.Credentials{Username: "u", Password: "p", AccessToken: "T0", RefreshToken: "R0"},
	}
	model := RecordToModel("main", rec)
	assert.Equal(t, "main", model.Name)
	assert.Equal(t, rec, model.ToRecord())
}

func TestCredentialStore_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	name := "test-" + uuid.NewString()
	store := NewCredentialStore(db, name)
	t.Cleanup(func() { db.Delete(&CredentialModel{}, "name = ?", name) })

	_, err := store.Load(ctx)
	var cfgErr *client.ConfigError
	require.True(t, errors.As(err, &cfgErr))

	rec := &client.Record{
		API:  client.APIConfig{BaseURL: "https://api.example.com", AuthURL: "https://api.example.com/auth/login"},
		Auth: client.Credentials{Username: "u", Password: "p", AccessToken: "T0", RefreshToken: "R0"},
	}
	require.NoError(t, store.Put(ctx, rec))

	require.NoError(t, store.SaveTokens(ctx, client.TokenUpdate{AccessToken: "T1", RefreshToken: "R1"}))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T1", got.Auth.AccessToken)
	assert.Equal(t, "R1", got.Auth.RefreshToken)
	assert.Equal(t, rec.API, got.API)
	assert.Equal(t, "u", got.Auth.Username)

	require.NoError(t, store.SaveTokens(ctx, client.TokenUpdate{AccessToken: "T2"}))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "R1", got.Auth.RefreshToken)
}

func TestCredentialStore_SaveTokensMissingRecord(t *testing.T) {
	db := openTestDB(t)
	store := NewCredentialStore(db, "missing-"+uuid.NewString())

	err := store.SaveTokens(context.Background(), client.TokenUpdate{AccessToken: "T1"})
	var cfgErr *client.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}
