package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/internal/lineitem"
	"github.com/smallbiznis/invoicer/internal/providers/pdf"
	"github.com/smallbiznis/invoicer/internal/render"
)

type lineItemRequest struct {
	Description string          `json:"description" binding:"max=500"`
	Quantity    int64           `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

func toLineItems(items []lineItemRequest) []lineitem.Item {
	out := make([]lineitem.Item, 0, len(items))
	for _, item := range items {
		out = append(out, lineitem.Item{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
		})
	}
	return out
}

// letterhead returns the company printed on documents. A missing record prints blank.
func (s *Server) letterhead(c *gin.Context) (*companydomain.Company, error) {
	company, err := s.companySvc.Get(c.Request.Context())
	if errors.Is(err, companydomain.ErrNotFound) {
		return nil, nil
	}
	return company, err
}

func (s *Server) writeHTML(c *gin.Context, doc render.Document) {
	html, err := s.renderer.RenderHTML(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (s *Server) writePDF(c *gin.Context, doc render.Document) {
	content, err := s.pdf.Generate(c.Request.Context(), doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.FileName(doc)))
	c.Data(http.StatusOK, "application/pdf", content)
}
