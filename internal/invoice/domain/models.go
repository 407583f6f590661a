// Package domain contains the invoice model and its contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/lineitem"
)

// Invoice is a billed document. Total, Advance and RemainingBalance are derived
// from Items and the advance by the lineitem package before every write.
type Invoice struct {
	ID                 snowflake.ID    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	InvoiceNumber      string          `gorm:"type:varchar(32);not null;uniqueIndex:ux_invoices_invoice_number" json:"invoice_number"`
	Date               time.Time       `gorm:"type:date;not null" json:"date"`
	ClientName         string          `gorm:"type:text;not null" json:"client_name"`
	ClientContact      string          `gorm:"type:text;not null;default:''" json:"client_contact"`
	ClientAddress      string          `gorm:"type:text;not null;default:''" json:"client_address"`
	Total              decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total"`
	Advance            decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"advance"`
	RemainingBalance   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"remaining_balance"`
	PaymentTerms       string          `gorm:"type:text;not null;default:''" json:"payment_terms"`
	TermsAndConditions string          `gorm:"type:text;not null;default:''" json:"terms_and_conditions"`
	BankAccountDetails string          `gorm:"type:text;not null;default:''" json:"bank_account_details"`
	CreatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []InvoiceItem `gorm:"-" json:"items"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Lines returns the item values without their storage identity.
func (i Invoice) Lines() []lineitem.Item {
	lines := make([]lineitem.Item, 0, len(i.Items))
	for _, item := range i.Items {
		lines = append(lines, item.Item)
	}
	return lines
}

// InvoiceItem is a line on an invoice, ordered by Position.
type InvoiceItem struct {
	ID            snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	InvoiceID     snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Position      int          `gorm:"not null;default:0" json:"position"`
	lineitem.Item `gorm:"embedded"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }
