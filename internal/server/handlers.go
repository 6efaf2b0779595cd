package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// executeRequest is the body of POST /tools/execute.
type executeRequest struct {
	Tool string         `json:"tool" binding:"required"`
	Args map[string]any `json:"args"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "agentfs",
		"version": "1.0.0",
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"store_backend": s.config.Store.Backend,
	})
}

func (s *Server) handleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tools": s.registry.List(),
	})
}

// handleExecuteTool runs one tool call. Tool faults arrive as structured
// IsError results; only malformed requests produce HTTP errors.
func (s *Server) handleExecuteTool(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.registry.Execute(c.Request.Context(), req.Tool, req.Args)
	if err != nil {
		// The policy wrapper converts every fault; reaching here means a
		// transport-level problem, logged and kept out of the payload.
		s.logger.Error("tool execution failed", zap.String("tool", req.Tool), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, result)
}
