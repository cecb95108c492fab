//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore credential store for the
// tigerstats client. Records are keyed by name and support multi-tenancy
// through Datastore namespaces.
//
// # Datastore Kinds
//
//   - Credential: one entity per named credential record
//
// # Usage
//
//	dsClient, _ := gae.NewClient(ctx, projectID, "")
//	store := gae.NewCredentialStore(dsClient, "tenant-123", "default")
package gae
