package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/returnguard/internal/logger"
	"github.com/imrishuroy/returnguard/internal/users"
	"github.com/imrishuroy/returnguard/internal/validation"
)

// RegisterAuthRoutes registers the public signup and login routes.
func RegisterAuthRoutes(r gin.IRoutes, svc *users.Service, log logger.Logger) {
	v := validation.New()

	r.POST("/auth/signup", func(c *gin.Context) {
		var req validation.CredentialsRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		session, err := svc.Signup(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, session)
	})

	r.POST("/auth/login", func(c *gin.Context) {
		var req validation.CredentialsRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		session, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, session)
	})
}
