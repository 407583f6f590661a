package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/lineitem"
	"gorm.io/gorm"
)

// InvoiceInput is the full editable state of an invoice. Derived money fields
// are not part of it. An empty InvoiceNumber on create allocates the next one.
type InvoiceInput struct {
	InvoiceNumber      string
	Date               time.Time
	ClientName         string
	ClientContact      string
	ClientAddress      string
	Items              []lineitem.Item
	Advance            decimal.Decimal
	PaymentTerms       string
	TermsAndConditions string
	BankAccountDetails string
}

type ListInvoiceRequest struct {
	Query   string
	SortBy  string
	OrderBy string
}

type Service interface {
	List(ctx context.Context, req ListInvoiceRequest) ([]Invoice, error)
	Get(ctx context.Context, id string) (*Invoice, error)
	Create(ctx context.Context, input InvoiceInput) (*Invoice, error)
	// CreateTx writes the invoice inside a caller-owned transaction.
	CreateTx(ctx context.Context, tx *gorm.DB, input InvoiceInput) (*Invoice, error)
	Update(ctx context.Context, id string, input InvoiceInput) (*Invoice, error)
	Delete(ctx context.Context, id string) error
	NextNumber(ctx context.Context) (string, error)
	Draft(ctx context.Context) (*Invoice, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidNumber     = errors.New("invalid_invoice_number")
	ErrInvalidClientName = errors.New("invalid_client_name")
	ErrDuplicateNumber   = errors.New("duplicate_invoice_number")
	ErrNotFound          = errors.New("not_found")
)
