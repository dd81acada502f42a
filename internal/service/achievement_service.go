package service

import (
	"errors"
	"fmt"

	"github.com/gardenlog/internal/db"
	"github.com/gardenlog/internal/health"
	"gorm.io/gorm"
)

// AchievementService 维护成就进度并在升级时发布动态
// 进度取历史最大值，只升不降
type AchievementService struct {
	db       *gorm.DB
	activity *ActivityService
}

// NewAchievementService 构造 AchievementService
func NewAchievementService(gdb *gorm.DB, activity *ActivityService) *AchievementService {
	return &AchievementService{db: gdb, activity: activity}
}

// AchievementStatus 描述某一类成就的当前进度与等级
type AchievementStatus struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
	Level int    `json:"level"`
}

// RecordProgress 上报某类成就的最新取值
// 取值低于已记录的进度时忽略；等级提升时为每个新达到的等级发布动态
func (s *AchievementService) RecordProgress(userID uint, pseudo string, typ health.AchievementType, value int) error {
	if value < 0 {
		value = 0
	}

	var previousLevel, newLevel int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var progress db.AchievementProgress
		err := tx.Where("user_id = ? AND type = ?", userID, string(typ)).First(&progress).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			progress = db.AchievementProgress{UserID: userID, Type: string(typ), Value: value}
			if err := tx.Create(&progress).Error; err != nil {
				return fmt.Errorf("create achievement progress: %w", err)
			}
			previousLevel = health.ComputeLevel(typ, 0)
			newLevel = health.ComputeLevel(typ, value)
			return nil
		case err != nil:
			return fmt.Errorf("load achievement progress: %w", err)
		}

		previousLevel = health.ComputeLevel(typ, progress.Value)
		if value <= progress.Value {
			newLevel = previousLevel
			return nil
		}

		if err := tx.Model(&progress).Update("value", value).Error; err != nil {
			return fmt.Errorf("update achievement progress: %w", err)
		}
		newLevel = health.ComputeLevel(typ, value)
		return nil
	})
	if err != nil {
		return err
	}

	// 补发跳级过程中跨过的每个等级，唯一键保证幂等
	for level := previousLevel + 1; level <= newLevel; level++ {
		if err := s.activity.RecordAchievement(userID, pseudo, typ, level); err != nil {
			return err
		}
	}
	return nil
}

// List 返回用户全部成就类型的进度，未上报过的类型取零值
func (s *AchievementService) List(userID uint) ([]AchievementStatus, error) {
	var records []db.AchievementProgress
	if err := s.db.Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}

	values := make(map[string]int, len(records))
	for _, record := range records {
		values[record.Type] = record.Value
	}

	types := health.AchievementTypes()
	statuses := make([]AchievementStatus, 0, len(types))
	for _, typ := range types {
		value := values[string(typ)]
		statuses = append(statuses, AchievementStatus{
			Type:  string(typ),
			Value: value,
			Level: health.ComputeLevel(typ, value),
		})
	}
	return statuses, nil
}
