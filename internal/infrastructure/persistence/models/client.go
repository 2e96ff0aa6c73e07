package models

import (
	"github.com/tecnipro/cobranzas/internal/domain/client"
)

// ClientModel is the persistence model for registry clients.
// SearchKey carries the unique normalized identity.
type ClientModel struct {
	BaseModel
	DisplayName string `gorm:"type:varchar(200);not null"`
	SearchKey   string `gorm:"type:varchar(200);not null;uniqueIndex:idx_clients_search_key"`
	TaxID       string `gorm:"type:varchar(20)"`
	ContactName string `gorm:"type:varchar(200)"`
	Email       string `gorm:"type:varchar(200)"`
	Phone       string `gorm:"type:varchar(50)"`
	CreatedBy   string `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client
func (m *ClientModel) ToDomain() *client.Client {
	return &client.Client{
		BaseEntity:  m.BaseModel.ToDomain(),
		DisplayName: m.DisplayName,
		SearchKey:   m.SearchKey,
		TaxID:       m.TaxID,
		ContactName: m.ContactName,
		Email:       m.Email,
		Phone:       m.Phone,
		CreatedBy:   m.CreatedBy,
	}
}

// ClientModelFromDomain converts a domain Client to its persistence model
func ClientModelFromDomain(c *client.Client) *ClientModel {
	m := &ClientModel{
		DisplayName: c.DisplayName,
		SearchKey:   c.SearchKey,
		TaxID:       c.TaxID,
		ContactName: c.ContactName,
		Email:       c.Email,
		Phone:       c.Phone,
		CreatedBy:   c.CreatedBy,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}
