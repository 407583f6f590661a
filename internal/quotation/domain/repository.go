package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Query   string
	Status  Status
	SortBy  string
	OrderBy string
}

// Repository reads and writes quotations. Lookups of missing rows return nil, nil.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, quotation *Quotation) error
	InsertItems(ctx context.Context, db *gorm.DB, items []QuotationItem) error
	// Update writes the quotation only while its stored status is still expected
	// and reports whether it did.
	Update(ctx context.Context, db *gorm.DB, quotation *Quotation, expected Status) (bool, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, at time.Time) (bool, error)
	// MarkConverted flips a not-yet-converted quotation and reports whether it did.
	MarkConverted(ctx context.Context, db *gorm.DB, id, invoiceID snowflake.ID, at time.Time) (bool, error)
	DeleteItems(ctx context.Context, db *gorm.DB, quotationID snowflake.ID) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Quotation, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Quotation, error)
	ListNumbers(ctx context.Context, db *gorm.DB) ([]string, error)
}
