//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-backed credential store for the tigerstats client.
// It supports any database that GORM supports and lets several machines share
// one token pair, keyed by a record name.
//
// # Database Schema
//
// The package auto-migrates one table:
//   - credentials: one row per named credential record
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	_ = gormstore.AutoMigrate(db)
//	store := gormstore.NewCredentialStore(db, "default")
//	c, _ := client.New(ctx, store, api.UsersProfile())
package gorm
