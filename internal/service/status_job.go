package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gardenlog/internal/db"
	"github.com/gardenlog/internal/health"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// statusNotifier 抽象状态变化的推送，便于测试替换
type statusNotifier interface {
	NotifyPlantStatus(user db.User, plantUID, plantName string, status health.Status)
}

// StatusJob 周期性重算所有植物的健康状态：
// 刷新落库的状态缓存、维护健康起始时间与健康连胜成就，
// 并在植物转入缺水状态时推送提醒
// 单株失败只记日志，不中断整轮扫描
type StatusJob struct {
	db           *gorm.DB
	achievements *AchievementService
	notifier     statusNotifier
	logger       *zap.Logger
	now          func() time.Time
}

// NewStatusJob 构造 StatusJob，notifier 可为 nil（不推送）
func NewStatusJob(gdb *gorm.DB, achievements *AchievementService, notifier statusNotifier, logger *zap.Logger) *StatusJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusJob{
		db:           gdb,
		achievements: achievements,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// SetClock 覆盖时间源，仅用于测试
func (j *StatusJob) SetClock(now func() time.Time) {
	if now == nil {
		j.now = time.Now
		return
	}
	j.now = now
}

// Run 按固定间隔执行扫描，直到 ctx 取消
// 启动后立即先跑一轮，不等待首个周期
func (j *StatusJob) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	j.RunOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("status job stopped")
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce 扫描全部植物并处理状态变化，返回发生变化的数量
func (j *StatusJob) RunOnce() int {
	now := j.now()

	var plants []db.OwnedPlant
	if err := j.db.Preload("User").Find(&plants).Error; err != nil {
		j.logger.Error("status job: list plants", zap.Error(err))
		return 0
	}

	changed := 0
	for i := range plants {
		plantChanged, err := j.processPlant(&plants[i], now)
		if err != nil {
			j.logger.Error("status job: process plant",
				zap.String("plant_uid", plants[i].PlantUID), zap.Error(err))
			continue
		}
		if plantChanged {
			changed++
		}
	}

	j.logger.Info("status job finished",
		zap.Int("plants", len(plants)), zap.Int("changed", changed))
	return changed
}

func (j *StatusJob) processPlant(plant *db.OwnedPlant, now time.Time) (bool, error) {
	previous := health.ParseStatus(plant.HealthStatus)
	current := health.ComputeStatus(now, plant.LastWatered, plant.PreviousLastWatered, plant.WateringFrequency)

	updates := map[string]interface{}{}

	if current != previous {
		updates["health_status"] = string(current)
	}

	switch {
	case current.IsHealthy() && plant.HealthySince.IsZero():
		plant.HealthySince = now
		updates["healthy_since"] = now
	case !current.IsHealthy() && !plant.HealthySince.IsZero():
		plant.HealthySince = time.Time{}
		updates["healthy_since"] = time.Time{}
	}

	// 健康连胜按天取整，进度只增不减
	if current.IsHealthy() && !plant.HealthySince.IsZero() {
		streakDays := int(now.Sub(plant.HealthySince).Hours() / 24)
		if streakDays > 0 {
			if err := j.achievements.RecordProgress(plant.UserID, plant.User.Pseudo, health.AchievementHealthyStreak, streakDays); err != nil {
				return false, fmt.Errorf("record healthy streak: %w", err)
			}
		}
	}

	if len(updates) == 0 {
		return false, nil
	}

	if err := j.db.Model(plant).Updates(updates).Error; err != nil {
		return false, fmt.Errorf("persist status: %w", err)
	}

	// 只在"转入"缺水状态的那一轮提醒，避免每轮重复推送
	if j.notifier != nil && current.NeedsAttention() && !previous.NeedsAttention() {
		j.notifier.NotifyPlantStatus(plant.User, plant.PlantUID, plant.Name, current)
	}

	return current != previous, nil
}
