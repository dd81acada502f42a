package service

import (
	"testing"
	"time"

	"github.com/gardenlog/internal/db"
	"github.com/gardenlog/internal/health"
	"gorm.io/gorm"
)

// recordingStatusNotifier 捕获状态推送调用
type recordingStatusNotifier struct {
	calls []string
}

func (n *recordingStatusNotifier) NotifyPlantStatus(user db.User, plantUID, plantName string, status health.Status) {
	n.calls = append(n.calls, plantUID+":"+string(status))
}

func seedJobPlant(t *testing.T, gdb *gorm.DB, plant db.OwnedPlant) db.OwnedPlant {
	t.Helper()
	if err := gdb.Create(&plant).Error; err != nil {
		t.Fatalf("failed to create plant: %v", err)
	}
	return plant
}

func TestStatusJobPersistsTransitionAndNotifiesOnce(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	alice := createTestUser(t, gdb, "alice")
	now := time.Date(2025, 10, 10, 8, 0, 0, 0, time.UTC)

	// 距上次浇水 15 天，周期 10 天：已严重干燥，但缓存仍是 HEALTHY
	plant := seedJobPlant(t, gdb, db.OwnedPlant{
		PlantUID:          "uid-1",
		UserID:            alice.ID,
		Name:              "龟背竹",
		WateringFrequency: 10,
		HealthStatus:      string(health.StatusHealthy),
		LastWatered:       now.Add(-15 * 24 * time.Hour),
		HealthySince:      now.Add(-15 * 24 * time.Hour),
	})

	activity := NewActivityService(gdb)
	achievements := NewAchievementService(gdb, activity)
	notifier := &recordingStatusNotifier{}
	job := NewStatusJob(gdb, achievements, notifier, nil)
	job.SetClock(func() time.Time { return now })

	if changed := job.RunOnce(); changed != 1 {
		t.Fatalf("expected 1 changed plant, got %d", changed)
	}

	var stored db.OwnedPlant
	if err := gdb.First(&stored, plant.ID).Error; err != nil {
		t.Fatalf("failed to load plant: %v", err)
	}
	if stored.HealthStatus != string(health.StatusSeverelyDry) {
		t.Fatalf("expected cached SEVERELY_DRY, got %s", stored.HealthStatus)
	}
	// 离开健康态后连胜起点清零
	if !stored.HealthySince.IsZero() {
		t.Fatalf("expected healthy_since cleared, got %v", stored.HealthySince)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != "uid-1:SEVERELY_DRY" {
		t.Fatalf("expected single push for transition, got %v", notifier.calls)
	}

	// 第二轮状态未变：不再推送
	if changed := job.RunOnce(); changed != 0 {
		t.Fatalf("expected no change on second run, got %d", changed)
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("expected no repeated push, got %v", notifier.calls)
	}
}

func TestStatusJobRecordsHealthyStreak(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	alice := createTestUser(t, gdb, "alice")
	now := time.Date(2025, 10, 10, 8, 0, 0, 0, time.UTC)

	// 昨天浇过水、健康保持了 5 天
	seedJobPlant(t, gdb, db.OwnedPlant{
		PlantUID:          "uid-1",
		UserID:            alice.ID,
		Name:              "绿萝",
		WateringFrequency: 10,
		HealthStatus:      string(health.StatusHealthy),
		LastWatered:       now.Add(-24 * time.Hour),
		HealthySince:      now.Add(-5 * 24 * time.Hour),
	})

	activity := NewActivityService(gdb)
	achievements := NewAchievementService(gdb, activity)
	job := NewStatusJob(gdb, achievements, nil, nil)
	job.SetClock(func() time.Time { return now })

	job.RunOnce()

	var progress db.AchievementProgress
	if err := gdb.Where("user_id = ? AND type = ?", alice.ID, string(health.AchievementHealthyStreak)).
		First(&progress).Error; err != nil {
		t.Fatalf("failed to load streak progress: %v", err)
	}
	if progress.Value != 5 {
		t.Fatalf("expected streak 5, got %d", progress.Value)
	}
}

func TestStatusJobSetsHealthySinceOnRecovery(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	alice := createTestUser(t, gdb, "alice")
	now := time.Date(2025, 10, 10, 8, 0, 0, 0, time.UTC)

	// 缓存是缺水，但刚浇过水：本轮应回到健康并记录起点
	plant := seedJobPlant(t, gdb, db.OwnedPlant{
		PlantUID:            "uid-1",
		UserID:              alice.ID,
		Name:                "吊兰",
		WateringFrequency:   10,
		HealthStatus:        string(health.StatusNeedsWater),
		LastWatered:         now.Add(-2 * time.Hour),
		PreviousLastWatered: now.Add(-12 * 24 * time.Hour),
	})

	activity := NewActivityService(gdb)
	achievements := NewAchievementService(gdb, activity)
	notifier := &recordingStatusNotifier{}
	job := NewStatusJob(gdb, achievements, notifier, nil)
	job.SetClock(func() time.Time { return now })

	job.RunOnce()

	var stored db.OwnedPlant
	if err := gdb.First(&stored, plant.ID).Error; err != nil {
		t.Fatalf("failed to load plant: %v", err)
	}
	if stored.HealthStatus != string(health.StatusHealthy) {
		t.Fatalf("expected HEALTHY, got %s", stored.HealthStatus)
	}
	if !stored.HealthySince.Equal(now) {
		t.Fatalf("expected healthy_since=%v, got %v", now, stored.HealthySince)
	}
	// 恢复健康不推送
	if len(notifier.calls) != 0 {
		t.Fatalf("expected no push on recovery, got %v", notifier.calls)
	}
}
