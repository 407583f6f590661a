// Package render builds the printable view of invoices and quotations.
package render

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/internal/config"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/lineitem"
	quotationdomain "github.com/smallbiznis/invoicer/internal/quotation/domain"
)

const (
	KindInvoice   = "Invoice"
	KindQuotation = "Quotation"
)

// Document is the print model shared by the HTML view and the PDF export.
// Every value is already formatted for display.
type Document struct {
	Kind       string
	Number     string
	Date       string
	ExpiryDate string
	Status     string

	Company Party
	Client  Party

	Items []Line

	Total            string
	Advance          string
	RemainingBalance string
	ShowBalance      bool

	TermsLabel         string
	Terms              string
	TermsAndConditions string
	BankAccountDetails string
	FooterNote         string
}

type Party struct {
	Name    string
	Address string
	Contact string
	Email   string
}

type Line struct {
	No          int
	Description string
	Quantity    string
	Rate        string
	Amount      string
}

func FromInvoice(invoice *invoicedomain.Invoice, company *companydomain.Company, defaults config.DocumentDefaults) Document {
	prefix := defaults.CurrencyPrefix
	return Document{
		Kind:    KindInvoice,
		Number:  invoice.InvoiceNumber,
		Date:    formatDate(invoice.Date),
		Company: companyParty(company),
		Client: Party{
			Name:    invoice.ClientName,
			Address: invoice.ClientAddress,
			Contact: invoice.ClientContact,
		},
		Items:              lines(invoice.Lines()),
		Total:              formatMoney(invoice.Total, prefix),
		Advance:            formatMoney(invoice.Advance, prefix),
		RemainingBalance:   formatMoney(invoice.RemainingBalance, prefix),
		ShowBalance:        true,
		TermsLabel:         "Payment Terms",
		Terms:              invoice.PaymentTerms,
		TermsAndConditions: invoice.TermsAndConditions,
		BankAccountDetails: invoice.BankAccountDetails,
		FooterNote:         defaults.FooterNote,
	}
}

func FromQuotation(quotation *quotationdomain.Quotation, company *companydomain.Company, defaults config.DocumentDefaults) Document {
	prefix := defaults.CurrencyPrefix
	return Document{
		Kind:       KindQuotation,
		Number:     quotation.QuotationNumber,
		Date:       formatDate(quotation.Date),
		ExpiryDate: formatDate(quotation.ExpiryDate),
		Status:     strings.ToUpper(string(quotation.Status)),
		Company:    companyParty(company),
		Client: Party{
			Name:    quotation.ClientName,
			Address: quotation.ClientAddress,
			Contact: quotation.ClientContact,
		},
		Items:              lines(quotation.Lines()),
		Total:              formatMoney(quotation.Total, prefix),
		TermsLabel:         "Quotation Terms",
		Terms:              quotation.QuotationTerms,
		TermsAndConditions: quotation.TermsAndConditions,
		BankAccountDetails: quotation.BankAccountDetails,
		FooterNote:         defaults.FooterNote,
	}
}

func companyParty(company *companydomain.Company) Party {
	if company == nil {
		return Party{}
	}
	party := Party{Name: company.Name, Address: company.Address}
	if company.Phone != nil {
		party.Contact = *company.Phone
	}
	if company.Email != nil {
		party.Email = *company.Email
	}
	return party
}

func lines(items []lineitem.Item) []Line {
	out := make([]Line, 0, len(items))
	for idx, item := range items {
		out = append(out, Line{
			No:          idx + 1,
			Description: item.Description,
			Quantity:    strconv.FormatInt(item.Quantity, 10),
			Rate:        formatMoney(item.Rate, ""),
			Amount:      formatMoney(item.Amount, ""),
		})
	}
	return out
}

// formatMoney renders amount with two decimals and comma-grouped thousands.
func formatMoney(amount decimal.Decimal, prefix string) string {
	fixed := amount.Abs().StringFixed(lineitem.MoneyScale)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for idx, r := range whole {
		if idx > 0 && (len(whole)-idx)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	grouped := b.String() + "." + frac
	if amount.IsNegative() {
		grouped = "-" + grouped
	}

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return grouped
	}
	return prefix + " " + grouped
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format("2006-01-02")
}
