package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"workmate/internal/repository"
)

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	if s.opts.Orders == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	var order repository.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	created, err := s.opts.Orders.Create(c.Request.Context(), &order)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Order created successfully",
		"data":    created,
	})
}

func (s *Server) handleGetOrder(c *gin.Context) {
	if s.opts.Orders == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	order, err := s.opts.Orders.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if notFound(err) {
			status = http.StatusNotFound
		}
		fail(c, status, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

func (s *Server) handleListOrders(c *gin.Context) {
	if s.opts.Orders == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	limit, offset := pagination(c)
	orders, err := s.opts.Orders.List(c.Request.Context(), limit, offset)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": orders, "count": len(orders)})
}

func (s *Server) handleOrdersByCustomer(c *gin.Context) {
	if s.opts.Orders == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	customerID, err := strconv.ParseInt(c.Param("customer_id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, errors.New("customer_id must be an integer"))
		return
	}

	orders, err := s.opts.Orders.ListByCustomer(c.Request.Context(), customerID)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": orders, "count": len(orders)})
}

func (s *Server) handleOrdersByStatus(c *gin.Context) {
	if s.opts.Orders == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	orders, err := s.opts.Orders.ListByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": orders, "count": len(orders)})
}

func (s *Server) handleUpdateOrderStatus(c *gin.Context) {
	if s.opts.Orders == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	order, err := s.opts.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		status := http.StatusInternalServerError
		if notFound(err) {
			status = http.StatusNotFound
		}
		fail(c, status, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order status updated successfully",
		"data":    order,
	})
}

func (s *Server) handleSalesByMonth(c *gin.Context) {
	if s.opts.Orders == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	year := 0
	if v := c.Query("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			fail(c, http.StatusBadRequest, errors.New("year must be an integer"))
			return
		}
		year = parsed
	}

	data, err := s.opts.Orders.SalesByMonth(c.Request.Context(), year)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "count": len(data)})
}
