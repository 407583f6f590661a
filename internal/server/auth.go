package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword always answers the same way so the response does not reveal
// whether an account exists.
func (s *Server) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	res, err := s.resetLimiter.Allow(c.Request.Context(), c.ClientIP(), req.Email)
	if err != nil {
		s.log.Warn("password reset rate limit check failed", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	if !res.Allowed {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	if err := s.identity.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "If the address is registered, a reset link is on its way"})
}

func (s *Server) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":            c.GetString(contextUserIDKey),
		"email":         c.GetString(contextEmailKey),
		"auth_disabled": s.verifier.Disabled(),
	}})
}
