// Package domain holds the company letterhead printed on every document.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Company is a singleton row. Only the first record is ever read.
type Company struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Address   string       `gorm:"type:text;not null;default:''" json:"address"`
	Phone     *string      `gorm:"type:text" json:"phone,omitempty"`
	Email     *string      `gorm:"type:text" json:"email,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "company_info" }

type UpsertCompanyRequest struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

type Service interface {
	Get(ctx context.Context) (*Company, error)
	Upsert(ctx context.Context, req UpsertCompanyRequest) (*Company, error)
	// Seed writes req only when no company exists yet.
	Seed(ctx context.Context, req UpsertCompanyRequest) error
}

var (
	ErrNotFound     = errors.New("company_not_found")
	ErrInvalidName  = errors.New("invalid_company_name")
	ErrInvalidEmail = errors.New("invalid_company_email")
)
