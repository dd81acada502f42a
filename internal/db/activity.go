package db

import "gorm.io/gorm"

// 活动类型，对应动态流中的四种事件
const (
	ActivityAddedPlant  = "ADDED_PLANT"
	ActivityWaterPlant  = "WATER_PLANT"
	ActivityAddFriend   = "ADD_FRIEND"
	ActivityAchievement = "ACHIEVEMENT"
)

// GardenActivity 是动态流中的一条记录，用 Type 区分事件种类
// 各事件只填充自己需要的负载字段，创建后不可变
// ActivityKey 对成就类事件取确定性值（ACHIEVEMENT_<类型>_LEVEL_<等级>），
// user + key 唯一索引保证重试不会产生重复动态
// 植物相关的动态在删除植物时级联清理（按 PlantUID）
type GardenActivity struct {
	gorm.Model
	Type        string `gorm:"size:30;not null;index"`
	UserID      uint   `gorm:"not null;index;index:idx_activity_key,unique"`
	User        User   `gorm:"constraint:OnDelete:CASCADE"`
	Pseudo      string `gorm:"size:60;not null"`
	ActivityKey string `gorm:"size:80;index:idx_activity_key,unique"`

	PlantUID  string `gorm:"size:36;index"`
	PlantName string `gorm:"size:120"`

	FriendPseudo string `gorm:"size:60"`

	AchievementType string `gorm:"size:30"`
	LevelReached    int
}

// TableName 自定义表名以保持命名一致。
func (GardenActivity) TableName() string {
	return "garden_activities"
}

// ActivityLike 记录用户对动态的点赞，activity + user 唯一保证幂等
type ActivityLike struct {
	gorm.Model
	ActivityID uint           `gorm:"not null;index;index:idx_activity_like,unique"`
	Activity   GardenActivity `gorm:"constraint:OnDelete:CASCADE"`
	UserID     uint           `gorm:"not null;index:idx_activity_like,unique"`
}

// TableName 自定义表名以保持命名一致。
func (ActivityLike) TableName() string {
	return "activity_likes"
}
