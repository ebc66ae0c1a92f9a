package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gorilla/websocket"

	"freeday/internal/adapters/realtime"
	"freeday/internal/delivery/http/helpers"
	"freeday/internal/delivery/http/middleware"
	"freeday/internal/domain"
)

// CreatePostRequest is the request body for POST /posts.
type CreatePostRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Validate implements Validator.
func (req CreatePostRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&req,
		validation.Field(&req.Title, validation.Required, validation.By(notBlank), validation.Length(1, 200)),
		validation.Field(&req.Content, validation.Required, validation.By(notBlank)),
		validation.Field(&req.Tags, validation.Each(validation.Length(0, 30))),
	))
}

// UpdatePostRequest is the request body for PATCH /posts/{postID}. Omitted fields are unchanged.
type UpdatePostRequest struct {
	Title   *string  `json:"title,omitempty"`
	Content *string  `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Validate implements Validator.
func (req UpdatePostRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.By(notBlank), validation.Length(1, 200)),
		validation.Field(&req.Content, validation.NilOrNotEmpty, validation.By(notBlank)),
		validation.Field(&req.Tags, validation.Each(validation.Length(0, 30))),
	))
}

// CreateCommentRequest is the request body for POST /posts/{postID}/comments.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// Validate implements Validator.
func (req CreateCommentRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&req,
		validation.Field(&req.Content, validation.Required, validation.By(notBlank), validation.Length(1, 2000)),
	))
}

// PostListResponse is one page of posts with pagination metadata.
type PostListResponse struct {
	Items      []*domain.Post         `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// PostListSuccessResponse is the success response envelope for GET /posts (200).
type PostListSuccessResponse struct {
	Data  PostListResponse  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// PostSuccessResponse is the success response envelope for endpoints returning one post.
type PostSuccessResponse struct {
	Data  *domain.Post      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CommentSuccessResponse is the success response envelope for POST /posts/{postID}/comments (201).
type CommentSuccessResponse struct {
	Data  *domain.Comment   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CommentsSuccessResponse is the success response envelope for GET /posts/{postID}/comments (200).
type CommentsSuccessResponse struct {
	Data  []*domain.Comment `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// LikeResponse reports the like state after a toggle.
type LikeResponse struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// LikeSuccessResponse is the success response envelope for POST /posts/{postID}/like (200).
type LikeSuccessResponse struct {
	Data  LikeResponse      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CommentStream is the subset of the realtime hub used by post streams.
type CommentStream interface {
	Register(postID string, client realtime.Subscriber)
	Unregister(postID string, client realtime.Subscriber)
}

// ForumController handles posts, comments, likes and live comment streams.
type ForumController struct {
	Logger   *slog.Logger
	Service  domain.ForumService
	Stream   CommentStream
	upgrader websocket.Upgrader
}

// NewForumController creates a ForumController. Websocket upgrades are accepted from
// allowedOrigins and from requests without an Origin header.
func NewForumController(logger *slog.Logger, svc domain.ForumService, stream CommentStream, allowedOrigins []string) *ForumController {
	allowed := middleware.NewOriginSet(allowedOrigins)
	return &ForumController{
		Logger:  logger,
		Service: svc,
		Stream:  stream,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed.Allows(origin)
			},
		},
	}
}

// ListPosts godoc
// @Summary List forum posts
// @Description Lists posts that are not rejected, with search, tag filter, sorting and pagination.
// @Tags forum
// @Produce json
// @Param q query string false "Search in title, content and tags"
// @Param tag query string false "Exact tag"
// @Param sort query string false "newest, most_comments, most_likes"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.PostListSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /posts [get]
func (c *ForumController) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sort, ok := domain.ParsePostSort(q.Get("sort"))
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid sort")
		return
	}
	viewerID, _ := middleware.UserIDFromContext(r.Context())
	filter := domain.PostFilter{
		Query:      strings.TrimSpace(q.Get("q")),
		Tag:        strings.TrimSpace(q.Get("tag")),
		Sort:       sort,
		ViewerID:   viewerID,
		Pagination: helpers.ParsePagination(r, helpers.DefaultPageSize),
	}
	posts, total, err := c.Service.ListPosts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, PostListResponse{
		Items:      posts,
		Pagination: helpers.NewPaginationMeta(filter.Pagination, total),
	})
}

// ListTags godoc
// @Summary List forum tags
// @Description Returns every tag in use, alphabetically.
// @Tags forum
// @Produce json
// @Success 200 {object} controllers.StringsSuccessResponse "data is a list of tags"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /posts/tags [get]
func (c *ForumController) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := c.Service.ListTags(r.Context())
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, tags)
}

// GetPost godoc
// @Summary Get a post
// @Description Returns a post. Rejected posts are visible only to their author and admins.
// @Tags forum
// @Produce json
// @Param postID path string true "Post ID (UUID)"
// @Success 200 {object} controllers.PostSuccessResponse "data contains the post"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /posts/{postID} [get]
func (c *ForumController) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "postID")
	if !ok {
		return
	}
	post, err := c.Service.GetPost(r.Context(), postID, middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, post)
}

// CreatePost godoc
// @Summary Create a post
// @Description Creates a forum post authored by the caller. New posts await moderation but are visible meanwhile.
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreatePostRequest true "Post data"
// @Success 201 {object} controllers.PostSuccessResponse "data contains the created post"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /posts [post]
func (c *ForumController) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req CreatePostRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	post := &domain.Post{
		Title:   strings.TrimSpace(req.Title),
		Content: strings.TrimSpace(req.Content),
		Author:  domain.Author{ID: userID},
		Tags:    req.Tags,
	}
	if err := c.Service.CreatePost(r.Context(), post); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, post)
}

// UpdatePost godoc
// @Summary Update a post
// @Description Partially updates a post. Only its author may edit it.
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postID path string true "Post ID (UUID)"
// @Param body body UpdatePostRequest true "Fields to update"
// @Success 200 {object} controllers.PostSuccessResponse "data contains the updated post"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /posts/{postID} [patch]
func (c *ForumController) UpdatePost(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "postID")
	if !ok {
		return
	}
	var req UpdatePostRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	update := domain.PostUpdate{
		Title:   trimPtr(req.Title),
		Content: trimPtr(req.Content),
		Tags:    req.Tags,
	}
	post, err := c.Service.UpdatePost(r.Context(), postID, middleware.ActorFromContext(r.Context()), update)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete a post
// @Description Deletes a post with its comments, tags and likes. Allowed for the author and admins.
// @Tags forum
// @Produce json
// @Security BearerAuth
// @Param postID path string true "Post ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data.status is deleted"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /posts/{postID} [delete]
func (c *ForumController) DeletePost(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "postID")
	if !ok {
		return
	}
	if err := c.Service.DeletePost(r.Context(), postID, middleware.ActorFromContext(r.Context())); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// ListComments godoc
// @Summary List comments
// @Description Returns the comments of a post, oldest first. Rejected posts are 404 except for their author and admins.
// @Tags forum
// @Produce json
// @Param postID path string true "Post ID (UUID)"
// @Success 200 {object} controllers.CommentsSuccessResponse "data is a list of comments"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /posts/{postID}/comments [get]
func (c *ForumController) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "postID")
	if !ok {
		return
	}
	comments, err := c.Service.ListComments(r.Context(), postID, middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, comments)
}

// CreateComment godoc
// @Summary Comment on a post
// @Description Adds a comment and pushes it to live subscribers of the post.
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postID path string true "Post ID (UUID)"
// @Param body body CreateCommentRequest true "Comment"
// @Success 201 {object} controllers.CommentSuccessResponse "data contains the created comment"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /posts/{postID}/comments [post]
func (c *ForumController) CreateComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "postID")
	if !ok {
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req CreateCommentRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	comment := &domain.Comment{
		PostID:  postID,
		Author:  domain.Author{ID: userID},
		Content: req.Content,
	}
	if err := c.Service.CreateComment(r.Context(), comment); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, comment)
}

// ToggleLike godoc
// @Summary Toggle a like
// @Description Likes the post, or removes the like when already liked.
// @Tags forum
// @Produce json
// @Security BearerAuth
// @Param postID path string true "Post ID (UUID)"
// @Success 200 {object} controllers.LikeSuccessResponse "data contains the like state and count"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /posts/{postID}/like [post]
func (c *ForumController) ToggleLike(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "postID")
	if !ok {
		return
	}
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	liked, count, err := c.Service.ToggleLike(r.Context(), postID, middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, LikeResponse{Liked: liked, LikesCount: count})
}

// StreamComments godoc
// @Summary Live comments
// @Description Upgrades to a websocket that receives {"type":"comment.created","comment":{...}} frames for the post.
// @Tags forum
// @Param postID path string true "Post ID (UUID)"
// @Success 101 "Switching Protocols"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /posts/{postID}/stream [get]
func (c *ForumController) StreamComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "postID")
	if !ok {
		return
	}
	if _, err := c.Service.GetPost(r.Context(), postID, middleware.ActorFromContext(r.Context())); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		c.Logger.WarnContext(r.Context(), "websocket upgrade failed", "post_id", postID, "err", err)
		return
	}
	client := realtime.NewClient(conn, c.Logger)
	c.Stream.Register(postID, client)
	defer func() {
		c.Stream.Unregister(postID, client)
		client.Close()
	}()
	client.ReadLoop()
}
