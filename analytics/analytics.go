package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"quillmark/models"
)

// AnalyticsModule records public post page visits.
type AnalyticsModule struct {
	db *gorm.DB
}

func NewAnalyticsModule(db *gorm.DB) *AnalyticsModule {
	if db == nil {
		log.Println("Analytics DB is nil, analytics will be disabled")
		return nil
	}
	return &AnalyticsModule{db: db}
}

// TrackVisit counts a visit to a post page. Repeated views from the same
// visitor within 30 minutes are ignored so refreshes do not inflate counts.
func (a *AnalyticsModule) TrackVisit(c *gin.Context, postID int) {
	if a == nil || a.db == nil {
		return
	}

	cookieID := a.getOrCreateCookieID(c)

	thirtyMinutesAgo := time.Now().Add(-30 * time.Minute)

	var recent models.PostVisit
	err := a.db.Where("cookie_id = ? AND post_id = ? AND created_at > ?",
		cookieID, postID, thirtyMinutesAgo).First(&recent).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		// a failed throttle check must not count as a fresh visit
		log.Printf("Error checking recent visits: %v", err)
		return
	}

	visit := models.PostVisit{
		PostID:    postID,
		CookieID:  cookieID,
		IP:        a.getClientIP(c),
		CreatedAt: time.Now(),
	}

	// write asynchronously, a lost visit is not worth blocking the page
	go func() {
		if err := a.db.Create(&visit).Error; err != nil {
			log.Printf("Error saving visit: %v", err)
		}
	}()
}

// GetPostVisitCount returns the total recorded views of one post.
func (a *AnalyticsModule) GetPostVisitCount(postID int) int64 {
	if a == nil || a.db == nil {
		return 0
	}

	var count int64
	if err := a.db.Model(&models.PostVisit{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0
	}
	return count
}

func (a *AnalyticsModule) getOrCreateCookieID(c *gin.Context) string {
	cookieName := "quillmark_visitor_id"

	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}

	data := time.Now().String() + c.ClientIP() + c.Request.UserAgent()
	hash := sha256.Sum256([]byte(data))
	cookieID := hex.EncodeToString(hash[:])

	c.SetCookie(
		cookieName,
		cookieID,
		60*60*24*365*2, // 2 years
		"/",
		"",
		false,
		true,
	)

	return cookieID
}

func (a *AnalyticsModule) getClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}

	return c.ClientIP()
}
