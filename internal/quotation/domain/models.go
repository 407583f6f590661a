// Package domain contains the quotation model, its status machine and contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/lineitem"
)

// Quotation is an offer to a client. Total is derived from Items before every write.
type Quotation struct {
	ID                 snowflake.ID    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	QuotationNumber    string          `gorm:"type:varchar(32);not null;uniqueIndex:ux_quotations_quotation_number" json:"quotation_number"`
	Date               time.Time       `gorm:"type:date;not null" json:"date"`
	ExpiryDate         time.Time       `gorm:"type:date;not null" json:"expiry_date"`
	Status             Status          `gorm:"type:varchar(16);not null;default:'draft';index" json:"status"`
	ClientName         string          `gorm:"type:text;not null" json:"client_name"`
	ClientContact      string          `gorm:"type:text;not null;default:''" json:"client_contact"`
	ClientAddress      string          `gorm:"type:text;not null;default:''" json:"client_address"`
	Total              decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total"`
	QuotationTerms     string          `gorm:"type:text;not null;default:''" json:"quotation_terms"`
	TermsAndConditions string          `gorm:"type:text;not null;default:''" json:"terms_and_conditions"`
	BankAccountDetails string          `gorm:"type:text;not null;default:''" json:"bank_account_details"`
	ConvertedInvoiceID *snowflake.ID   `gorm:"index" json:"converted_invoice_id,omitempty"`
	CreatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []QuotationItem `gorm:"-" json:"items"`
}

// TableName sets the database table name.
func (Quotation) TableName() string { return "quotations" }

func (q Quotation) Lines() []lineitem.Item {
	lines := make([]lineitem.Item, 0, len(q.Items))
	for _, item := range q.Items {
		lines = append(lines, item.Item)
	}
	return lines
}

type QuotationItem struct {
	ID            snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	QuotationID   snowflake.ID `gorm:"not null;index" json:"quotation_id"`
	Position      int          `gorm:"not null;default:0" json:"position"`
	lineitem.Item `gorm:"embedded"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (QuotationItem) TableName() string { return "quotation_items" }
