//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	"github.com/panyam/tigerstats/client"
)

// CredentialModel is the GORM model for a credential record
type CredentialModel struct {
	Name         string    `gorm:"primaryKey;size:64"`
	BaseURL      string    `gorm:"size:512"`
	AuthURL      string    `gorm:"size:512"`
	RefreshURL   string    `gorm:"size:512"`
	Timeout      float64   `gorm:"default:0"`
	Username     string    `gorm:"size:255"`
	Password     string    `gorm:"size:255"`
	AccessToken  string    `gorm:"type:text"`
	RefreshToken string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (CredentialModel) TableName() string {
	return "credentials"
}

func (m *CredentialModel) ToRecord() *client.Record {
	return &client.Record{
		API: client.APIConfig{
			BaseURL:    m.BaseURL,
			AuthURL:    m.AuthURL,
			RefreshURL: m.RefreshURL,
			Timeout:    m.Timeout,
		},
		Auth: client.Credentials{
			Username:     m.Username,
			Password:     m.Password,
			AccessToken:  m.AccessToken,
			RefreshToken: m.RefreshToken,
		},
	}
}

func RecordToModel(name string, r *client.Record) *CredentialModel {
	return &CredentialModel{
		Name:         name,
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
