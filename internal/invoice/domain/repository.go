package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Query   string
	SortBy  string
	OrderBy string
}

// Repository reads and writes invoices. Lookups of missing rows return nil, nil.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	InsertItems(ctx context.Context, db *gorm.DB, items []InvoiceItem) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	DeleteItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Invoice, error)
	ListNumbers(ctx context.Context, db *gorm.DB) ([]string, error)
}
