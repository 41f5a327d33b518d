package api

// Wire types for the rooms backend. Field names follow the backend's JSON
// contract; callers should go through the room package transforms rather
// than using these directly.

// ReactionCount is one reaction type's tally on a comment
type ReactionCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// CommentAuthor is a recent reply embedded in a top-level comment
type CommentAuthor struct {
	CommentID       int64           `json:"comment_id"`
	UserID          string          `json:"user_id"`
	UserName        string          `json:"user_name"`
	UserPicture     string          `json:"user_picture"`
	OriginalContent string          `json:"original_content"`
	Content         string          `json:"content"`
	Quote           string          `json:"quote"`
	Edited          bool            `json:"edited"`
	MiniMessage     string          `json:"minimessage"`
	CreatedAt       string          `json:"created_at"`
	UserReacted     bool            `json:"user_reacted"`
	ReactionType    *string         `json:"reaction_type"`
	Reactions       []ReactionCount `json:"reactions"`
}

// Comment is a top-level comment on an article
type Comment struct {
	CommentID          int64           `json:"comment_id"`
	ReactionType       *string         `json:"reaction_type"`
	Title              string          `json:"title"`
	Edited             bool            `json:"edited"`
	MiniMessage        string          `json:"minimessage"`
	OriginalContent    string          `json:"original_content"`
	Content            string          `json:"content"`
	Quote              string          `json:"quote"`
	CreatedAt          string          `json:"created_at"`
	UserID             string          `json:"user_id"`
	UserName           string          `json:"user_name"`
	UserPicture        string          `json:"user_picture"`
	ParentCommentID    *int64          `json:"parent_comment_id"`
	ParentContent      *string         `json:"parent_content"`
	ParentUserID       *string         `json:"parent_user_id"`
	ParentUserName     *string         `json:"parent_user_name"`
	UserReacted        bool            `json:"user_reacted"`
	Reactions          []ReactionCount `json:"reactions"`
	ChildCommentCount  int             `json:"child_comment_count"`
	RecentChildComments []CommentAuthor `json:"recent_child_comments"`
}

// Pagination is the cursor envelope on comment listings
type Pagination struct {
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// CommentsResponse is the listing of top-level comments for an article
type CommentsResponse struct {
	Comments         []Comment  `json:"comments"`
	Pagination       Pagination `json:"pagination"`
	FocusedCommentID *int64     `json:"focused_comment_id"`
	IsMember         bool       `json:"is_member"`
	IsPrivate        bool       `json:"is_private"`
	UnreadCount      int        `json:"unread_count"`
}

// SubComment is a reply inside a conversation thread
type SubComment struct {
	CommentID             int64           `json:"comment_id"`
	ReactionType          *string         `json:"reaction_type"`
	Title                 string          `json:"title"`
	Edited                bool            `json:"edited"`
	Emotion               string          `json:"emotion"`
	MiniMessage           string          `json:"minimessage"`
	OriginalContent       string          `json:"original_content"`
	Content               string          `json:"content"`
	Quote                 string          `json:"quote"`
	CreatedAt             string          `json:"created_at"`
	UserID                string          `json:"user_id"`
	UserName              string          `json:"user_name"`
	UserPicture           string          `json:"user_picture"`
	ParentCommentID       int64           `json:"parent_comment_id"`
	OriginalParentContent string          `json:"original_parent_content"`
	ParentContent         string          `json:"parent_content"`
	ParentUserID          string          `json:"parent_user_id"`
	ParentUserName        string          `json:"parent_user_name"`
	UserReacted           bool            `json:"user_reacted"`
	Reactions             []ReactionCount `json:"reactions"`
	ReplyMessageID        *int64          `json:"reply_message_id"`
	ReplyMessage          *string         `json:"reply_message"`
}

// SubCommentsResponse is the listing of replies under a parent comment
type SubCommentsResponse struct {
	Comments []SubComment `json:"comments"`
}

// FetchCommentsParams selects a page of top-level comments
type FetchCommentsParams struct {
	ArticleID int64  `json:"articleId"`
	Limit     int    `json:"limit,omitempty"`
	Cursor    string `json:"cursor,omitempty"`
}

// FetchSubCommentsParams selects replies under one comment
type FetchSubCommentsParams struct {
	ParentCommentID int64 `json:"parentCommentId"`
	ArticleID       int64 `json:"articleId"`
	Limit           int   `json:"limit,omitempty"`
}

// AddCommentParams creates a comment or reply
type AddCommentParams struct {
	ArticleID       int64  `json:"articleId"`
	Content         string `json:"content"`
	Title           string `json:"title,omitempty"`
	ParentCommentID int64  `json:"parentCommentId,omitempty"`
	ReplyMessageID  string `json:"replyMessageId,omitempty"`
	Quote           string `json:"quote,omitempty"`
	Emotion         string `json:"emotion,omitempty"`
	MiniMessage     string `json:"minimessage,omitempty"`
}

// AddCommentResponse carries the authoritative id of a created comment
type AddCommentResponse struct {
	CommentID int64  `json:"comment_id"`
	CreatedAt string `json:"created_at"`
}

// ToggleReactionParams toggles one user's reaction on a target
type ToggleReactionParams struct {
	TargetType   string `json:"target_type"`
	TargetID     int64  `json:"target_id"`
	ReactionType string `json:"reaction_type"`
}

// ToggleReactionResponse is the server-authoritative reaction state after a toggle
type ToggleReactionResponse struct {
	UserReacted   bool `json:"user_reacted"`
	ReactionCount int  `json:"reaction_count"`
}

// AIQueryParams asks the summarizer a question
type AIQueryParams struct {
	Text string `json:"text"`
	Fast bool   `json:"fast,omitempty"`
}

// AIQueryResponse is the summarizer's answer
type AIQueryResponse struct {
	Summary     string `json:"summary"`
	SummaryMini string `json:"summarymini"`
}

// TaggableUser is a user that can be @-mentioned
type TaggableUser struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Avatar      string `json:"avatar"`
	Username    string `json:"username"`
	Tag         string `json:"tag,omitempty"`
}

// TaggableUsersResponse is the mention search result
type TaggableUsersResponse struct {
	Success    bool           `json:"success"`
	Users      []TaggableUser `json:"users"`
	Total      int            `json:"total"`
	SearchTerm string         `json:"search_term,omitempty"`
}

// LoginParams authenticates an existing user
type LoginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupParams registers a new user
type SignupParams struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthUser is the account profile returned by the auth endpoints
type AuthUser struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	DisplayPic string `json:"display_pic,omitempty"`
}

// AuthResponse carries a fresh session token and the signed-in user
type AuthResponse struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}
