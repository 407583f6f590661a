package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
)

type upsertCompanyRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Address string `json:"address" binding:"max=1000"`
	Phone   string `json:"phone" binding:"max=64"`
	Email   string `json:"email" binding:"omitempty,email"`
}

func (s *Server) GetCompany(c *gin.Context) {
	company, err := s.companySvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": company})
}

func (s *Server) UpsertCompany(c *gin.Context) {
	var req upsertCompanyRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	company, err := s.companySvc.Upsert(c.Request.Context(), companydomain.UpsertCompanyRequest{
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": company, "message": "Company details saved"})
}
