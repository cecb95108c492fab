//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"

	"github.com/panyam/tigerstats/client"
)

// CredentialEntity is the Datastore entity for a credential record
type CredentialEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	BaseURL      string         `datastore:"base_url,noindex"`
	AuthURL      string         `datastore:"auth_url,noindex"`
	RefreshURL   string         `datastore:"refresh_url,noindex"`
	Timeout      float64        `datastore:"timeout,noindex"`
	Username     string         `datastore:"username"`
	Password     string         `datastore:"password,noindex"`
	AccessToken  string         `datastore:"access_token,noindex"`
	RefreshToken string         `datastore:"refresh_token,noindex"`
	UpdatedAt    time.Time      `datastore:"updated_at"`
	Version      int            `datastore:"version"`
}

func (e *CredentialEntity) ToRecord() *client.Record {
	return &client.Record{
		API: client.APIConfig{
			BaseURL:    e.BaseURL,
			AuthURL:    e.AuthURL,
			RefreshURL: e.RefreshURL,
			Timeout:    e.Timeout,
		},
		Auth: client.Credentials{
			Username:     e.Username,
			Password:     e.Password,
			AccessToken:  e.AccessToken,
			RefreshToken: e.RefreshToken,
		},
	}
}

func RecordToEntity(r *client.Record, key *datastore.Key) *CredentialEntity {
	return &CredentialEntity{
		Key:          key,
		BaseURL:      r.API.BaseURL,
		AuthURL:      r.API.AuthURL,
		RefreshURL:   r.API.RefreshURL,
		Timeout:      r.API.Timeout,
		Username:     r.Auth.Username,
		Password:     r.Auth.Password,
		AccessToken:  r.Auth.AccessToken,
		RefreshToken: r.Auth.RefreshToken,
	}
}
