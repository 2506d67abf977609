package analytics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"quillmark/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.PostVisit{})
	return db
}

func TestGetPostVisitCount(t *testing.T) {
	db := setupTestDB()
	a := NewAnalyticsModule(db)

	db.Create(&models.PostVisit{PostID: 1, CookieID: "c1", IP: "1.2.3.4", CreatedAt: time.Now()})
	db.Create(&models.PostVisit{PostID: 1, CookieID: "c2", IP: "1.2.3.5", CreatedAt: time.Now()})
	db.Create(&models.PostVisit{PostID: 2, CookieID: "c1", IP: "1.2.3.4", CreatedAt: time.Now()})

	assert.Equal(t, int64(2), a.GetPostVisitCount(1))
	assert.Equal(t, int64(1), a.GetPostVisitCount(2))
	assert.Equal(t, int64(0), a.GetPostVisitCount(3))
}

func visitContext(cookieID string) *gin.Context {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/posts/1", nil)
	if cookieID != "" {
		c.Request.AddCookie(&http.Cookie{Name: "quillmark_visitor_id", Value: cookieID})
	}
	return c
}

func TestTrackVisit_ThrottlesRecentVisit(t *testing.T) {
	db := setupTestDB()
	a := NewAnalyticsModule(db)

	db.Create(&models.PostVisit{
		PostID:    1,
		CookieID:  "visitor",
		IP:        "1.2.3.4",
		CreatedAt: time.Now().Add(-5 * time.Minute),
	})

	a.TrackVisit(visitContext("visitor"), 1)

	assert.Equal(t, int64(1), a.GetPostVisitCount(1), "a refresh within 30 minutes must not count again")
}

func TestTrackVisit_ThrottleFaultDoesNotRecord(t *testing.T) {
	// post_visits never migrated, so the throttle check fails
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	a := NewAnalyticsModule(db)

	a.TrackVisit(visitContext("visitor"), 1)

	assert.Equal(t, int64(0), a.GetPostVisitCount(1))
}

func TestDisabledModuleIsSafe(t *testing.T) {
	a := NewAnalyticsModule(nil)

	assert.Nil(t, a)
	assert.Equal(t, int64(0), a.GetPostVisitCount(1))
	a.TrackVisit(nil, 1)
}
