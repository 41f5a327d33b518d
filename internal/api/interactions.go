package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/internal/service"
	"github.com/philonet/rooms/pkg/logger"
)

// InteractionsHandler serves reactions and mention search
type InteractionsHandler struct {
	comments *service.CommentService
	users    *service.UserService
	logger   *logger.Logger
}

// NewInteractionsHandler creates a new interactions handler
func NewInteractionsHandler(comments *service.CommentService, users *service.UserService, logger *logger.Logger) *InteractionsHandler {
	return &InteractionsHandler{comments: comments, users: users, logger: logger}
}

// ToggleReaction flips the caller's reaction on a comment
func (h *InteractionsHandler) ToggleReaction(c *gin.Context) {
	var params api.ToggleReactionParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if params.TargetID == 0 || params.ReactionType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_id and reaction_type are required"})
		return
	}

	resp, err := h.comments.ToggleReaction(currentUserID(c), params)
	if err != nil {
		switch err {
		case service.ErrCommentNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		default:
			h.logger.Error("Error toggling reaction", "error", err.Error(), "target_id", params.TargetID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle reaction"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// TaggableUsers searches users for @-mention completion
func (h *InteractionsHandler) TaggableUsers(c *gin.Context) {
	search := c.Query("search")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	excludeCurrent := c.DefaultQuery("exclude_current", "true") == "true"

	users, err := h.users.TaggableUsers(currentUserID(c), search, limit, excludeCurrent)
	if err != nil {
		h.logger.Error("Error searching taggable users", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search users"})
		return
	}

	resp := api.TaggableUsersResponse{
		Success:    true,
		Users:      make([]api.TaggableUser, 0, len(users)),
		SearchTerm: search,
	}
	for _, u := range users {
		id := strconv.FormatUint(uint64(u.ID), 10)
		resp.Users = append(resp.Users, api.TaggableUser{
			UserID:      id,
			Name:        u.Name,
			DisplayName: u.Name,
			Email:       u.Email,
			Avatar:      u.DisplayPic,
			Username:    usernameFromEmail(u.Email),
			Tag:         "@" + usernameFromEmail(u.Email),
		})
	}
	resp.Total = len(resp.Users)

	c.JSON(http.StatusOK, resp)
}

func usernameFromEmail(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}
