package handler

import (
	"testing"
	"time"

	"github.com/gardenlog/internal/db"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestAPI 打开共享内存库并构造处理器集合
func setupTestAPI(t *testing.T) (*API, *gorm.DB, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.User{},
		&db.OwnedPlant{},
		&db.GardenActivity{},
		&db.ActivityLike{},
		&db.AchievementProgress{},
		&db.FriendRequest{},
		&db.Friendship{},
		&db.SystemSetting{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	api := NewAPI(gdb, nil, Options{
		TokenSecret: "test-secret",
		TokenTTL:    time.Hour,
		UploadDir:   t.TempDir(),
		UploadURL:   "/uploads",
	})

	return api, gdb, func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

// newAuthedEngine 构造带会话中间件与固定登录用户的测试引擎
func newAuthedEngine(user db.User) *gin.Engine {
	r := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions("test_session", store))
	r.Use(func(c *gin.Context) {
		c.Set(contextUserIDKey, user.ID)
		c.Set(contextPseudoKey, user.Pseudo)
	})
	return r
}

// newSessionEngine 构造只带会话中间件的测试引擎
func newSessionEngine() *gin.Engine {
	r := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions("test_session", store))
	return r
}

func createHandlerTestUser(t *testing.T, gdb *gorm.DB, pseudo string) db.User {
	t.Helper()
	user := db.User{Pseudo: pseudo, Password: "hashed"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}
