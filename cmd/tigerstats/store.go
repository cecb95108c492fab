package main

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	gormdb "gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/panyam/tigerstats/client"
	"github.com/panyam/tigerstats/client/stores/fs"
	"github.com/panyam/tigerstats/client/stores/gae"
	"github.com/panyam/tigerstats/client/stores/gorm"
)

// Store backends selectable with --store
const (
	StoreFile      = "file"
	StorePostgres  = "postgres"
	StoreDatastore = "datastore"
)

// recordStore is a CredentialStore that can also write a whole record
type recordStore interface {
	client.CredentialStore
	Put(ctx context.Context, rec *client.Record) error
}

// openStore builds the configured credential store. The returned func
// releases any connection the store holds.
func (o *rootOptions) openStore(ctx context.Context) (recordStore, func(), error) {
	switch o.storeKind() {
	case StoreFile:
		return fs.NewFSCredentialStore(o.configPath()), func() {}, nil

	case StorePostgres:
		dsn := o.postgresDSN()
		if dsn == "" {
			return nil, nil, &client.ConfigError{Source: StorePostgres, Err: fmt.Errorf("no DSN: set --dsn or TIGERSTATS_POSTGRES_DSN")}
		}
		db, err := gormdb.Open(postgres.Open(dsn), &gormdb.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
		if err != nil {
			return nil, nil, &client.ConfigError{Source: StorePostgres, Err: err}
		}
		if err := gorm.AutoMigrate(db); err != nil {
			return nil, nil, &client.ConfigError{Source: StorePostgres, Err: err}
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return gorm.NewCredentialStore(db, o.recordName()), closeDB, nil

	case StoreDatastore:
		project := o.datastoreProject()
		if project == "" {
			return nil, nil, &client.ConfigError{Source: StoreDatastore, Err: fmt.Errorf("no project: set --datastore-project or TIGERSTATS_DATASTORE_PROJECT")}
		}
		dsClient, err := gae.NewClient(ctx, project, o.datastoreCredentials)
		if err != nil {
			return nil, nil, &client.ConfigError{Source: StoreDatastore, Err: err}
		}
		return gae.NewCredentialStore(dsClient, o.datastoreNamespace, o.recordName()), func() { dsClient.Close() }, nil
	}
	return nil, nil, &client.ConfigError{Err: fmt.Errorf("unknown store %q (want file, postgres or datastore)", o.storeKind())}
}
