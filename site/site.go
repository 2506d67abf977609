package site

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"

	"quillmark/analytics"
	"quillmark/models"
)

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // allow raw HTML passthrough in Markdown
	),
)

type SiteModule struct {
	db        *gorm.DB
	analytics *analytics.AnalyticsModule
}

func NewSiteModule(db *gorm.DB, analyticsModule *analytics.AnalyticsModule) *SiteModule {
	return &SiteModule{db: db, analytics: analyticsModule}
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", s.index)
	router.GET("/posts/:id", s.post)
}

// Tokenize normalizes a free-text search query into keywords: percent
// escapes decoded, full-width spaces folded in with the rest of the
// whitespace, runs collapsed, empty tokens dropped.
func Tokenize(query string) []string {
	if decoded, err := url.QueryUnescape(query); err == nil {
		query = decoded
	}
	query = strings.ReplaceAll(query, "　", " ")
	return strings.Fields(query)
}

// likeEscaper neutralizes LIKE metacharacters so a token matches as a
// literal substring.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchPosts returns published posts matching every keyword, each keyword
// satisfied by the title or the content. An empty query lists everything
// published. Newest first.
func (s *SiteModule) SearchPosts(query string) ([]models.Post, error) {
	q := s.db.Where("published = ?", true)

	for _, token := range Tokenize(query) {
		pattern := "%" + likeEscaper.Replace(token) + "%"
		q = q.Where(s.db.Where(`title LIKE ? ESCAPE '\'`, pattern).Or(`content LIKE ? ESCAPE '\'`, pattern))
	}

	var posts []models.Post
	err := q.Preload("Author").Order("created_at DESC").Find(&posts).Error
	return posts, err
}

func (s *SiteModule) index(c *gin.Context) {
	search := c.Query("search")

	posts, err := s.SearchPosts(search)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "site_error.html", gin.H{
			"error": "could not load posts",
		})
		return
	}

	c.HTML(http.StatusOK, "site_index.html", gin.H{
		"posts":  posts,
		"search": search,
	})
}

func (s *SiteModule) post(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.HTML(http.StatusNotFound, "site_error.html", gin.H{
			"error": "post not found",
		})
		return
	}

	var post models.Post
	if err := s.db.Preload("Author").Where("published = ?", true).First(&post, id).Error; err != nil {
		c.HTML(http.StatusNotFound, "site_error.html", gin.H{
			"error": "post not found",
		})
		return
	}

	s.analytics.TrackVisit(c, id)

	c.HTML(http.StatusOK, "site_post.html", gin.H{
		"post": gin.H{
			"ID":        post.ID,
			"Title":     post.Title,
			"Author":    post.Author.Name,
			"TopImage":  post.TopImage,
			"Content":   template.HTML(renderMarkdown(post.Content)),
			"CreatedAt": post.CreatedAt,
			"UpdatedAt": post.UpdatedAt,
		},
	})
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		// fall back to the raw text rather than breaking the page
		return content
	}
	return buf.String()
}
