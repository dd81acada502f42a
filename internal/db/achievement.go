package db

import "gorm.io/gorm"

// AchievementProgress 记录用户在某一成就类别上的原始进度值
// user + type 唯一；Value 只增不减（取历史最大/最长连胜）
// 等级不落库，读取时由 health.ComputeLevel 推导
type AchievementProgress struct {
	gorm.Model
	UserID uint   `gorm:"not null;index;index:idx_achievement_progress,unique"`
	User   User   `gorm:"constraint:OnDelete:CASCADE"`
	Type   string `gorm:"size:30;not null;index:idx_achievement_progress,unique"`
	Value  int    `gorm:"not null;default:0"`
}

// TableName 自定义表名以保持命名一致。
func (AchievementProgress) TableName() string {
	return "achievement_progress"
}
