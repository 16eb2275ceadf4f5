package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parley/internal/domain"
)

type chatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

type knowledgeRequest struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Path    string `json:"path"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleChat runs one turn and returns the turn result.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.orchestrator.ProcessMessage(c.Request.Context(), req.Message, req.ConversationID, req.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleAddKnowledge ingests inline content or a server-local file.
func (s *Server) handleAddKnowledge(c *gin.Context) {
	var req knowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var chunks int
	var err error
	switch {
	case req.Path != "":
		chunks, err = s.orchestrator.AddKnowledgeFile(c.Request.Context(), req.Path)
	case req.Content != "":
		chunks, err = s.orchestrator.AddKnowledge(c.Request.Context(), req.Content, req.Source)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "content or path is required"})
		return
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chunks": chunks})
}

// handleSearchKnowledge returns ranked knowledge hits for ?q=.
func (s *Server) handleSearchKnowledge(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	results, err := s.orchestrator.SearchKnowledge(c.Request.Context(), query, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if results == nil {
		results = []domain.KnowledgeResult{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// handleConversation returns the stored message log for a conversation.
func (s *Server) handleConversation(c *gin.Context) {
	history, err := s.orchestrator.GetConversationHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if history == nil {
		history = []domain.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": history})
}

// respondError maps domain errors to HTTP statuses.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimit):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrAuthInvalid):
		status = http.StatusUnauthorized
	}

	s.logger.Error("request failed",
		"path", c.FullPath(),
		"code", domain.ErrorCodeOf(err),
		"error", err,
	)
	c.JSON(status, gin.H{"error": err.Error(), "code": domain.ErrorCodeOf(err)})
}
