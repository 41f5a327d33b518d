package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/internal/service"
	"github.com/philonet/rooms/pkg/logger"
)

// CommentsHandler serves the thought room listing and posting endpoints
type CommentsHandler struct {
	service *service.CommentService
	logger  *logger.Logger
}

// NewCommentsHandler creates a new comments handler
func NewCommentsHandler(service *service.CommentService, logger *logger.Logger) *CommentsHandler {
	return &CommentsHandler{service: service, logger: logger}
}

func currentUserID(c *gin.Context) uint {
	if id, exists := c.Get("userID"); exists {
		if uid, ok := id.(uint); ok {
			return uid
		}
	}
	return 0
}

// ListComments returns a page of top-level comments for an article
func (h *CommentsHandler) ListComments(c *gin.Context) {
	var params api.FetchCommentsParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if params.ArticleID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "articleId is required"})
		return
	}

	resp, err := h.service.ListComments(currentUserID(c), params)
	if err != nil {
		h.logger.Error("Error listing comments", "error", err.Error(), "article_id", params.ArticleID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comments"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListSubComments returns a thread's replies
func (h *CommentsHandler) ListSubComments(c *gin.Context) {
	var params api.FetchSubCommentsParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if params.ParentCommentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "parentCommentId is required"})
		return
	}

	resp, err := h.service.ListSubComments(currentUserID(c), params)
	if err != nil {
		switch err {
		case service.ErrCommentNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		default:
			h.logger.Error("Error listing replies", "error", err.Error(), "parent_comment_id", params.ParentCommentID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load replies"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AddComment creates a comment or reply
func (h *CommentsHandler) AddComment(c *gin.Context) {
	var params api.AddCommentParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	resp, err := h.service.AddComment(currentUserID(c), params)
	if err != nil {
		switch err {
		case service.ErrEmptyContent:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Comment content is required"})
		case service.ErrArticleNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		case service.ErrCommentNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Parent comment not found"})
		default:
			h.logger.Error("Error adding comment", "error", err.Error(), "article_id", params.ArticleID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment"})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}
