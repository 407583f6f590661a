package domain

import (
	"context"
	"errors"
	"time"

	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/lineitem"
)

// QuotationInput is the full editable state of a quotation. A zero ExpiryDate
// is derived from Date and the configured validity. An empty Status keeps the
// current one.
type QuotationInput struct {
	QuotationNumber    string
	Date               time.Time
	ExpiryDate         time.Time
	Status             Status
	ClientName         string
	ClientContact      string
	ClientAddress      string
	Items              []lineitem.Item
	QuotationTerms     string
	TermsAndConditions string
	BankAccountDetails string
}

type ListQuotationRequest struct {
	Query   string
	Status  string
	SortBy  string
	OrderBy string
}

// Conversion is the outcome of materializing an invoice from a quotation.
type Conversion struct {
	Quotation *Quotation
	Invoice   *invoicedomain.Invoice
}

type Service interface {
	List(ctx context.Context, req ListQuotationRequest) ([]Quotation, error)
	Get(ctx context.Context, id string) (*Quotation, error)
	Create(ctx context.Context, input QuotationInput) (*Quotation, error)
	Update(ctx context.Context, id string, input QuotationInput) (*Quotation, error)
	Delete(ctx context.Context, id string) error
	NextNumber(ctx context.Context) (string, error)
	Draft(ctx context.Context) (*Quotation, error)

	Transition(ctx context.Context, id string, next Status) (*Quotation, error)
	MarkSent(ctx context.Context, id string) (*Quotation, error)
	MarkAccepted(ctx context.Context, id string) (*Quotation, error)
	MarkRejected(ctx context.Context, id string) (*Quotation, error)
	ConvertToInvoice(ctx context.Context, id string) (*Conversion, error)
}

var (
	ErrInvalidID               = errors.New("invalid_id")
	ErrInvalidNumber           = errors.New("invalid_quotation_number")
	ErrInvalidClientName       = errors.New("invalid_client_name")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrInvalidExpiryDate       = errors.New("invalid_expiry_date")
	ErrDuplicateNumber         = errors.New("duplicate_quotation_number")
	ErrNotFound                = errors.New("not_found")
	ErrInvalidStatusTransition = errors.New("invalid_status_transition")
	ErrQuotationConverted      = errors.New("quotation_converted")
	ErrNotConvertible          = errors.New("quotation_not_convertible")
)
