package db

import (
	"time"

	"gorm.io/gorm"
)

// 植物摆放位置的取值
const (
	PlantLocationIndoor  = "indoor"
	PlantLocationOutdoor = "outdoor"
	PlantLocationUnknown = "unknown"
)

// OwnedPlant 表示用户收藏中的一株植物及其浇水历史
// PlantUID 为对外暴露的不透明标识，owner + uid 唯一
// 物种信息（名称、拉丁名、养护说明等）随行内嵌，不做独立的物种表
// HealthStatus 仅是最近一次落库的分类缓存，读取时永远以
// health.ComputeStatus 现算为准；PreviousLastWatered 用于过湿判定
// HealthySince 非零表示植物自该时刻起保持健康，驱动健康连胜成就
type OwnedPlant struct {
	gorm.Model
	PlantUID string `gorm:"size:36;not null;index:idx_owned_plant_uid,unique"`
	UserID   uint   `gorm:"not null;index;index:idx_owned_plant_uid,unique"`
	User     User   `gorm:"constraint:OnDelete:CASCADE"`

	Name              string `gorm:"size:120;not null"`
	LatinName         string `gorm:"size:160"`
	Description       string `gorm:"type:text"`
	CareNotes         string `gorm:"type:text"`
	ImageURL          string `gorm:"size:500"`
	Location          string `gorm:"size:20;default:unknown"`
	LightExposure     string `gorm:"size:200"`
	WateringFrequency int    `gorm:"not null"`
	Recognized        bool

	HealthStatus        string `gorm:"size:30;default:UNKNOWN"`
	LastWatered         time.Time
	PreviousLastWatered time.Time
	HealthySince        time.Time
}

// TableName 自定义表名以保持命名一致。
func (OwnedPlant) TableName() string {
	return "owned_plants"
}
