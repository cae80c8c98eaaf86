package models

import (
	"time"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// MerchantTokenModel is the persistence model for the MerchantToken
// domain entity. One row per merchant; the row is also the refresh lock.
type MerchantTokenModel struct {
	MerchantID      string    `gorm:"type:varchar(64);primaryKey"`
	AccessToken     string    `gorm:"type:text;not null"`
	RefreshToken    string    `gorm:"type:text;not null"`
	ExpiresAt       time.Time `gorm:"not null;index"`
	Scope           string    `gorm:"type:varchar(255)"`
	LastRefreshedAt time.Time `gorm:"not null;index"`
	IsRefreshing    bool      `gorm:"not null;default:false"`
	RefreshAttempts int       `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MerchantTokenModel) TableName() string {
	return "merchant_tokens"
}

// ToDomain converts the persistence model to a domain MerchantToken
func (m *MerchantTokenModel) ToDomain() *credential.MerchantToken {
	return &credential.MerchantToken{
		MerchantID:      m.MerchantID,
		AccessToken:     m.AccessToken,
		RefreshToken:    m.RefreshToken,
		ExpiresAt:       m.ExpiresAt,
		Scope:           m.Scope,
		LastRefreshedAt: m.LastRefreshedAt,
		IsRefreshing:    m.IsRefreshing,
		RefreshAttempts: m.RefreshAttempts,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain MerchantToken
func (m *MerchantTokenModel) FromDomain(t *credential.MerchantToken) {
	m.MerchantID = t.MerchantID
	m.AccessToken = t.AccessToken
	m.RefreshToken = t.RefreshToken
	m.ExpiresAt = t.ExpiresAt
	m.Scope = t.Scope
	m.LastRefreshedAt = t.LastRefreshedAt
	m.IsRefreshing = t.IsRefreshing
	m.RefreshAttempts = t.RefreshAttempts
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
}

// MerchantTokenModelFromDomain creates a persistence model from a domain MerchantToken
func MerchantTokenModelFromDomain(t *credential.MerchantToken) *MerchantTokenModel {
	m := &MerchantTokenModel{}
	m.FromDomain(t)
	return m
}
