package service

import (
	"testing"

	"github.com/gardenlog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupServiceTestDB 打开共享内存库并迁移全部模型，返回清理函数
func setupServiceTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
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

	return gdb, func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

// createTestUser 插入一个测试用户
func createTestUser(t *testing.T, gdb *gorm.DB, pseudo string) db.User {
	t.Helper()
	user := db.User{Pseudo: pseudo, Password: "hashed"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// newTestServices 按依赖顺序构造服务族
func newTestServices(gdb *gorm.DB) (*ActivityService, *AchievementService, *PlantService) {
	activity := NewActivityService(gdb)
	achievements := NewAchievementService(gdb, activity)
	plants := NewPlantService(gdb, activity, achievements)
	return activity, achievements, plants
}
