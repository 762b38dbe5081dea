package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/returnguard/internal/auth"
	"github.com/imrishuroy/returnguard/internal/logger"
	"github.com/imrishuroy/returnguard/internal/service"
	"github.com/imrishuroy/returnguard/internal/validation"
)

// RegisterOrdersRoutes registers the merchant order, return and stats routes.
// The group must already be behind auth.RequireAuth.
func RegisterOrdersRoutes(r gin.IRoutes, svc *service.Service, log logger.Logger) {
	v := validation.New()

	r.POST("/orders", func(c *gin.Context) {
		var req validation.AnalyzeOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		order, err := svc.AnalyzeOrder(c.Request.Context(), auth.OwnerID(c), req.ToOrder())
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.Header("Location", fmt.Sprintf("/orders/%s", order.OrderID))
		c.JSON(http.StatusCreated, order)
	})

	r.GET("/orders", func(c *gin.Context) {
		list, err := svc.ListOrders(c.Request.Context(), auth.OwnerID(c))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		order, err := svc.GetOrder(c.Request.Context(), auth.OwnerID(c), c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, order)
	})

	r.POST("/returns", func(c *gin.Context) {
		var req validation.ReturnRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		out, err := svc.FileReturn(c.Request.Context(), auth.OwnerID(c), service.ReturnInput{
			OrderID:       req.OrderID,
			Reason:        req.Reason,
			ItemCondition: req.ItemCondition,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/stats", func(c *gin.Context) {
		st, err := svc.Stats(c.Request.Context(), auth.OwnerID(c))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, st)
	})
}
