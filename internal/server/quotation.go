package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	quotationdomain "github.com/smallbiznis/invoicer/internal/quotation/domain"
	"github.com/smallbiznis/invoicer/internal/render"
)

type quotationRequest struct {
	QuotationNumber    string            `json:"quotation_number" binding:"max=32"`
	Date               string            `json:"date" binding:"omitempty,datetime=2006-01-02"`
	ExpiryDate         string            `json:"expiry_date" binding:"omitempty,datetime=2006-01-02"`
	Status             string            `json:"status" binding:"omitempty,oneof=draft sent accepted rejected converted"`
	ClientName         string            `json:"client_name" binding:"required,max=200"`
	ClientContact      string            `json:"client_contact" binding:"max=200"`
	ClientAddress      string            `json:"client_address" binding:"max=1000"`
	Items              []lineItemRequest `json:"items" binding:"required,min=1,dive"`
	QuotationTerms     string            `json:"quotation_terms"`
	TermsAndConditions string            `json:"terms_and_conditions"`
	BankAccountDetails string            `json:"bank_account_details"`
}

func (r quotationRequest) toInput() (quotationdomain.QuotationInput, error) {
	date, err := parseOptionalDate("date", r.Date)
	if err != nil {
		return quotationdomain.QuotationInput{}, err
	}
	expiry, err := parseOptionalDate("expiry_date", r.ExpiryDate)
	if err != nil {
		return quotationdomain.QuotationInput{}, err
	}
	return quotationdomain.QuotationInput{
		QuotationNumber:    r.QuotationNumber,
		Date:               date,
		ExpiryDate:         expiry,
		Status:             quotationdomain.Status(r.Status),
		ClientName:         r.ClientName,
		ClientContact:      r.ClientContact,
		ClientAddress:      r.ClientAddress,
		Items:              toLineItems(r.Items),
		QuotationTerms:     r.QuotationTerms,
		TermsAndConditions: r.TermsAndConditions,
		BankAccountDetails: r.BankAccountDetails,
	}, nil
}

func (s *Server) bindQuotation(c *gin.Context) (quotationdomain.QuotationInput, bool) {
	var req quotationRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return quotationdomain.QuotationInput{}, false
	}
	input, err := req.toInput()
	if err != nil {
		AbortWithError(c, err)
		return quotationdomain.QuotationInput{}, false
	}
	return input, true
}

func (s *Server) ListQuotations(c *gin.Context) {
	var query listDocumentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query = query.normalized()

	quotations, err := s.quotationSvc.List(c.Request.Context(), quotationdomain.ListQuotationRequest{
		Query:   query.Query,
		Status:  query.Status,
		SortBy:  query.SortBy,
		OrderBy: query.OrderBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quotations})
}

func (s *Server) GetQuotationByID(c *gin.Context) {
	quotation, err := s.quotationSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quotation})
}

func (s *Server) CreateQuotation(c *gin.Context) {
	input, ok := s.bindQuotation(c)
	if !ok {
		return
	}

	quotation, err := s.quotationSvc.Create(c.Request.Context(), input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": quotation, "message": "Quotation saved"})
}

func (s *Server) UpdateQuotation(c *gin.Context) {
	input, ok := s.bindQuotation(c)
	if !ok {
		return
	}

	quotation, err := s.quotationSvc.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quotation, "message": "Quotation updated"})
}

func (s *Server) DeleteQuotation(c *gin.Context) {
	if err := s.quotationSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quotation deleted"})
}

func (s *Server) NextQuotationNumber(c *gin.Context) {
	number, err := s.quotationSvc.NextNumber(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"number": number}})
}

func (s *Server) DraftQuotation(c *gin.Context) {
	draft, err := s.quotationSvc.Draft(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": draft})
}

func (s *Server) SendQuotation(c *gin.Context) {
	quotation, err := s.quotationSvc.MarkSent(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quotation, "message": "Quotation marked as sent"})
}

func (s *Server) AcceptQuotation(c *gin.Context) {
	quotation, err := s.quotationSvc.MarkAccepted(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quotation, "message": "Quotation accepted"})
}

func (s *Server) RejectQuotation(c *gin.Context) {
	quotation, err := s.quotationSvc.MarkRejected(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quotation, "message": "Quotation rejected"})
}

func (s *Server) ConvertQuotation(c *gin.Context) {
	conversion, err := s.quotationSvc.ConvertToInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"quotation": conversion.Quotation,
			"invoice":   conversion.Invoice,
		},
		"message": "Quotation converted to invoice " + conversion.Invoice.InvoiceNumber,
	})
}

func (s *Server) quotationDocument(c *gin.Context) (render.Document, bool) {
	quotation, err := s.quotationSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return render.Document{}, false
	}
	company, err := s.letterhead(c)
	if err != nil {
		AbortWithError(c, err)
		return render.Document{}, false
	}
	return render.FromQuotation(quotation, company, s.defaults.Get()), true
}

func (s *Server) PrintQuotation(c *gin.Context) {
	doc, ok := s.quotationDocument(c)
	if !ok {
		return
	}
	s.writeHTML(c, doc)
}

func (s *Server) QuotationPDF(c *gin.Context) {
	doc, ok := s.quotationDocument(c)
	if !ok {
		return
	}
	s.writePDF(c, doc)
}
