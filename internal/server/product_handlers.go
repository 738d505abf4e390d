package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"workmate/internal/repository"
)

func notFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}

func (s *Server) handleCreateProduct(c *gin.Context) {
	if s.opts.Products == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	var product repository.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	created, err := s.opts.Products.Create(c.Request.Context(), &product)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Product created successfully",
		"data":    created,
	})
}

func (s *Server) handleGetProduct(c *gin.Context) {
	if s.opts.Products == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	product, err := s.opts.Products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if notFound(err) {
			status = http.StatusNotFound
		}
		fail(c, status, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
}

func (s *Server) handleListProducts(c *gin.Context) {
	if s.opts.Products == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	limit, offset := pagination(c)
	products, err := s.opts.Products.List(c.Request.Context(), limit, offset)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
		"count":   len(products),
	})
}

func (s *Server) handleUpdateProduct(c *gin.Context) {
	if s.opts.Products == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	var product repository.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	product.ID = c.Param("id")

	updated, err := s.opts.Products.Update(c.Request.Context(), &product)
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
		"message": "Product updated successfully",
		"data":    updated,
	})
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	if s.opts.Products == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	id := c.Param("id")
	if err := s.opts.Products.Delete(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if notFound(err) {
			status = http.StatusNotFound
		}
		fail(c, status, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product deleted successfully",
		"data":    gin.H{"deleted_id": id},
	})
}

func (s *Server) handleUnitsSoldPerProduct(c *gin.Context) {
	if s.opts.Orders == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	data, err := s.opts.Orders.TotalUnitsSoldPerProduct(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "count": len(data)})
}

func (s *Server) handleRevenuePerProduct(c *gin.Context) {
	if s.opts.Orders == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	data, err := s.opts.Orders.TotalRevenuePerProduct(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "count": len(data)})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 100
	offset = 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
