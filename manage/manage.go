package manage

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"quillmark/analytics"
	"quillmark/auth"
	"quillmark/cache"
	"quillmark/models"
	"quillmark/storage"
	"quillmark/validation"
)

var (
	// ErrUnauthorized means the acting user does not own the post. The
	// operation is refused, never silently skipped.
	ErrUnauthorized = errors.New("you do not have permission to modify this post")
	ErrPostNotFound = errors.New("post not found")
)

// ActionState is the result of one mutation pipeline run. A redirect happens
// instead when Success is true, so handlers only ever render the error form.
type ActionState struct {
	Success bool
	Errors  validation.Errors
}

func failure(errs validation.Errors) ActionState {
	return ActionState{Success: false, Errors: errs}
}

type ManageModule struct {
	db        *gorm.DB
	images    *storage.ImageStore
	analytics *analytics.AnalyticsModule
}

func NewManageModule(db *gorm.DB, images *storage.ImageStore, analyticsModule *analytics.AnalyticsModule) *ManageModule {
	return &ManageModule{
		db:        db,
		images:    images,
		analytics: analyticsModule,
	}
}

func (m *ManageModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/manage")
	group.Use(auth.RequireAuth)
	{
		group.GET("", m.dashboard)
		group.GET("/posts/new", m.newPost)
		group.POST("/posts", m.createPost)
		group.GET("/posts/:id/edit", m.editPost)
		group.POST("/posts/:id", m.updatePost)
		group.POST("/posts/:id/delete", m.deletePost)
	}
}

type dashboardEntry struct {
	models.Post
	VisitCount int64
}

func (m *ManageModule) dashboard(c *gin.Context) {
	userID := c.GetInt("user_id")

	var posts []models.Post
	if err := m.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&posts).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "manage_error.html", gin.H{
			"error": "could not load posts",
		})
		return
	}

	entries := make([]dashboardEntry, len(posts))
	for i, post := range posts {
		entries[i] = dashboardEntry{
			Post:       post,
			VisitCount: m.analytics.GetPostVisitCount(int(post.ID)),
		}
	}

	c.HTML(http.StatusOK, "manage_dashboard.html", gin.H{
		"posts": entries,
	})
}

func (m *ManageModule) newPost(c *gin.Context) {
	c.HTML(http.StatusOK, "manage_new_post.html", gin.H{})
}

func (m *ManageModule) createPost(c *gin.Context) {
	userID := c.GetInt("user_id")

	input := validation.PostInput{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
	}
	image := formFile(c, "topImage")

	state := m.CreatePost(userID, input, image)
	if !state.Success {
		c.HTML(http.StatusBadRequest, "manage_new_post.html", gin.H{
			"errors":  state.Errors,
			"title":   input.Title,
			"content": input.Content,
		})
		return
	}

	c.Redirect(http.StatusFound, "/manage")
}

// CreatePost runs the create pipeline: validate, persist the cover image,
// write the row. New posts are published. The image save happens before the
// database write and aborts it on failure; the database never sees a post
// whose image could not be stored.
func (m *ManageModule) CreatePost(userID int, input validation.PostInput, image *multipart.FileHeader) ActionState {
	errs := validation.Struct(input)
	if image != nil {
		if msgs := validation.Image(image); len(msgs) > 0 {
			errs["topImage"] = append(errs["topImage"], msgs...)
		}
	}
	if len(errs) > 0 {
		return failure(errs)
	}

	var imageURL *string
	if image != nil {
		url, err := m.images.Save(image)
		if err != nil {
			return failure(validation.Errors{"topImage": {"could not save the image"}})
		}
		imageURL = &url
	}

	post := models.Post{
		UserID:    userID,
		Title:     input.Title,
		Content:   input.Content,
		TopImage:  imageURL,
		Published: true,
	}

	if err := m.db.Create(&post).Error; err != nil {
		return failure(validation.Errors{"db": {"could not save the post"}})
	}

	return ActionState{Success: true, Errors: validation.Errors{}}
}

func (m *ManageModule) editPost(c *gin.Context) {
	userID := c.GetInt("user_id")
	postID := c.Param("id")

	post, err := m.ownedPost(userID, postID)
	if err != nil {
		m.renderRefusal(c, err)
		return
	}

	c.HTML(http.StatusOK, "manage_edit_post.html", gin.H{
		"post": post,
	})
}

func (m *ManageModule) updatePost(c *gin.Context) {
	userID := c.GetInt("user_id")
	postID := c.Param("id")

	input := validation.PostInput{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
	}
	image := formFile(c, "topImage")
	published := c.PostForm("published") == "true"
	oldImageURL := c.PostForm("oldImageUrl")

	state, err := m.UpdatePost(userID, postID, input, image, oldImageURL, published)
	if err != nil {
		m.renderRefusal(c, err)
		return
	}
	if !state.Success {
		// carry the stored image reference through the error render, or a
		// corrected resubmit would silently drop it
		c.HTML(http.StatusBadRequest, "manage_edit_post.html", gin.H{
			"errors": state.Errors,
			"post": gin.H{
				"ID":        postID,
				"Title":     input.Title,
				"Content":   input.Content,
				"Published": published,
				"TopImage":  oldImageURL,
			},
		})
		return
	}

	cache.ClearPost(postID)
	c.Redirect(http.StatusFound, "/manage")
}

// UpdatePost runs the update pipeline. The acting user must own the post;
// a new upload replaces the stored image reference while an empty file input
// keeps oldImageURL untouched.
func (m *ManageModule) UpdatePost(userID int, postID string, input validation.PostInput, image *multipart.FileHeader, oldImageURL string, published bool) (ActionState, error) {
	post, err := m.ownedPost(userID, postID)
	if err != nil {
		return ActionState{}, err
	}

	errs := validation.Struct(input)
	if image != nil {
		if msgs := validation.Image(image); len(msgs) > 0 {
			errs["topImage"] = append(errs["topImage"], msgs...)
		}
	}
	if len(errs) > 0 {
		return failure(errs), nil
	}

	var imageURL *string
	if oldImageURL != "" {
		imageURL = &oldImageURL
	}
	if image != nil {
		url, err := m.images.Save(image)
		if err != nil {
			return failure(validation.Errors{"topImage": {"could not save the image"}}), nil
		}
		imageURL = &url
	}

	post.Title = input.Title
	post.Content = input.Content
	post.TopImage = imageURL
	post.Published = published

	if err := m.db.Save(post).Error; err != nil {
		return failure(validation.Errors{"db": {"could not save the post"}}), nil
	}

	return ActionState{Success: true, Errors: validation.Errors{}}, nil
}

func (m *ManageModule) deletePost(c *gin.Context) {
	userID := c.GetInt("user_id")
	postID := c.Param("id")

	state, err := m.DeletePost(userID, postID)
	if err != nil {
		m.renderRefusal(c, err)
		return
	}
	if !state.Success {
		c.HTML(http.StatusInternalServerError, "manage_error.html", gin.H{
			"error": strings.Join(state.Errors["db"], ", "),
		})
		return
	}

	cache.ClearPost(postID)
	c.Redirect(http.StatusFound, "/manage")
}

// DeletePost re-checks ownership and removes the row. Storage faults come
// back as a db-keyed error, never as a raw failure.
func (m *ManageModule) DeletePost(userID int, postID string) (ActionState, error) {
	post, err := m.ownedPost(userID, postID)
	if err != nil {
		return ActionState{}, err
	}

	result := m.db.Delete(&models.Post{}, post.ID)
	if result.Error != nil || result.RowsAffected == 0 {
		return failure(validation.Errors{"db": {"could not delete the post"}}), nil
	}

	return ActionState{Success: true, Errors: validation.Errors{}}, nil
}

// ownedPost loads a post and enforces that userID is its author.
func (m *ManageModule) ownedPost(userID int, postID string) (*models.Post, error) {
	id, err := strconv.Atoi(postID)
	if err != nil {
		return nil, ErrPostNotFound
	}

	var post models.Post
	if err := m.db.First(&post, id).Error; err != nil {
		return nil, ErrPostNotFound
	}

	if post.UserID != userID {
		return nil, ErrUnauthorized
	}

	return &post, nil
}

func (m *ManageModule) renderRefusal(c *gin.Context, err error) {
	status := http.StatusNotFound
	if errors.Is(err, ErrUnauthorized) {
		status = http.StatusForbidden
	}
	c.HTML(status, "manage_error.html", gin.H{
		"error": err.Error(),
	})
}

// formFile returns the uploaded cover image, or nil when the field was left
// empty (browsers submit a zero-byte part for an untouched file input).
func formFile(c *gin.Context, field string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil {
		return nil
	}
	if fh.Size == 0 || fh.Filename == "" {
		return nil
	}
	return fh
}
