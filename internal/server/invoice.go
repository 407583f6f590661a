package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/render"
)

type invoiceRequest struct {
	InvoiceNumber      string            `json:"invoice_number" binding:"max=32"`
	Date               string            `json:"date" binding:"omitempty,datetime=2006-01-02"`
	ClientName         string            `json:"client_name" binding:"required,max=200"`
	ClientContact      string            `json:"client_contact" binding:"max=200"`
	ClientAddress      string            `json:"client_address" binding:"max=1000"`
	Items              []lineItemRequest `json:"items" binding:"required,min=1,dive"`
	Advance            decimal.Decimal   `json:"advance"`
	PaymentTerms       string            `json:"payment_terms"`
	TermsAndConditions string            `json:"terms_and_conditions"`
	BankAccountDetails string            `json:"bank_account_details"`
}

func (r invoiceRequest) toInput() (invoicedomain.InvoiceInput, error) {
	date, err := parseOptionalDate("date", r.Date)
	if err != nil {
		return invoicedomain.InvoiceInput{}, err
	}
	return invoicedomain.InvoiceInput{
		InvoiceNumber:      r.InvoiceNumber,
		Date:               date,
		ClientName:         r.ClientName,
		ClientContact:      r.ClientContact,
		ClientAddress:      r.ClientAddress,
		Items:              toLineItems(r.Items),
		Advance:            r.Advance,
		PaymentTerms:       r.PaymentTerms,
		TermsAndConditions: r.TermsAndConditions,
		BankAccountDetails: r.BankAccountDetails,
	}, nil
}

func (s *Server) bindInvoice(c *gin.Context) (invoicedomain.InvoiceInput, bool) {
	var req invoiceRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return invoicedomain.InvoiceInput{}, false
	}
	input, err := req.toInput()
	if err != nil {
		AbortWithError(c, err)
		return invoicedomain.InvoiceInput{}, false
	}
	return input, true
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query listDocumentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query = query.normalized()

	invoices, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		Query:   query.Query,
		SortBy:  query.SortBy,
		OrderBy: query.OrderBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	invoice, err := s.invoiceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) CreateInvoice(c *gin.Context) {
	input, ok := s.bindInvoice(c)
	if !ok {
		return
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": invoice, "message": "Invoice saved"})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	input, ok := s.bindInvoice(c)
	if !ok {
		return
	}

	invoice, err := s.invoiceSvc.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice, "message": "Invoice updated"})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	if err := s.invoiceSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted"})
}

func (s *Server) NextInvoiceNumber(c *gin.Context) {
	number, err := s.invoiceSvc.NextNumber(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"number": number}})
}

func (s *Server) DraftInvoice(c *gin.Context) {
	draft, err := s.invoiceSvc.Draft(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": draft})
}

func (s *Server) invoiceDocument(c *gin.Context) (render.Document, bool) {
	invoice, err := s.invoiceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return render.Document{}, false
	}
	company, err := s.letterhead(c)
	if err != nil {
		AbortWithError(c, err)
		return render.Document{}, false
	}
	return render.FromInvoice(invoice, company, s.defaults.Get()), true
}

func (s *Server) PrintInvoice(c *gin.Context) {
	doc, ok := s.invoiceDocument(c)
	if !ok {
		return
	}
	s.writeHTML(c, doc)
}

func (s *Server) InvoicePDF(c *gin.Context) {
	doc, ok := s.invoiceDocument(c)
	if !ok {
		return
	}
	s.writePDF(c, doc)
}
