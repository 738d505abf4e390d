package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"workmate/internal/agent"
	"workmate/internal/store"
)

var errNotConfigured = errors.New("workflow not configured")

type runTaskRequest struct {
	Task     string `json:"task" binding:"required"`
	ThreadID string `json:"thread_id"`
}

type runWorkflowRequest struct {
	Query    string `json:"query" binding:"required"`
	ThreadID string `json:"thread_id"`
}

type analyzeProductRequest struct {
	ProductData  agent.ProductInput `json:"product_data" binding:"required"`
	AnalysisType string             `json:"analysis_type"`
}

func (s *Server) handleRunTask(c *gin.Context) {
	if s.opts.Simple == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	var req runTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	result, err := s.opts.Simple.Run(c.Request.Context(), req.Task)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}

	runID := s.recordRun(c, "simple-agent", req.ThreadID, req.Task, result)
	c.JSON(http.StatusOK, gin.H{"success": true, "run_id": runID, "result": result})
}

func (s *Server) handleRunWorkflow(c *gin.Context) {
	if s.opts.Multi == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	var req runWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	result, err := s.opts.Multi.Run(c.Request.Context(), req.Query)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}

	runID := s.recordRun(c, "multi-agent", req.ThreadID, req.Query, result)
	c.JSON(http.StatusOK, gin.H{"success": true, "run_id": runID, "result": result})
}

func (s *Server) handleAnalyzeProduct(c *gin.Context) {
	if s.opts.Analyzer == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	var req analyzeProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	result, err := s.opts.Analyzer.AnalyzeProduct(c.Request.Context(), req.ProductData, req.AnalysisType)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": result})
}

func (s *Server) handleAnalyzeProductByID(c *gin.Context) {
	if s.opts.Analyzer == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	result, err := s.opts.Analyzer.AnalyzeProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": result})
}

func (s *Server) handleUnitsSoldAnalysis(c *gin.Context) {
	if s.opts.Orders == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	limit, err := strconv.Atoi(c.Param("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	products, err := s.opts.Orders.TopSellingProductsByUnitsSold(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Units sold analysis",
		"products": products,
	})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.opts.Runs == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	record, err := s.opts.Runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "run": record})
}

func (s *Server) handleListThreadRuns(c *gin.Context) {
	if s.opts.Runs == nil {
		fail(c, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	records, err := s.opts.Runs.ListByThread(c.Request.Context(), c.Param("thread_id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "runs": records, "count": len(records)})
}

// recordRun persists the run outcome when a run store is configured. A
// persistence failure is logged, never surfaced to the caller.
func (s *Server) recordRun(c *gin.Context, workflow, threadID, input string, result any) string {
	if s.opts.Runs == nil {
		return ""
	}

	state := map[string]any{}
	if data, err := json.Marshal(result); err == nil {
		_ = json.Unmarshal(data, &state)
	}

	record := &store.RunRecord{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Workflow:  workflow,
		Input:     input,
		State:     state,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.opts.Runs.Save(c.Request.Context(), record); err != nil {
		if s.opts.Logger != nil {
			s.opts.Logger.Warn("failed to persist %s run: %v", workflow, err)
		}
		return ""
	}
	return record.ID
}
