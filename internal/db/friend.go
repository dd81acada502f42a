package db

import "gorm.io/gorm"

// 好友请求状态
const (
	FriendRequestPending  = "pending"
	FriendRequestAccepted = "accepted"
	FriendRequestDeclined = "declined"
)

// FriendRequest 表示一条好友请求
// from + to 唯一：每对用户同方向只保留一行，重发时复用并重置状态
type FriendRequest struct {
	gorm.Model
	FromUserID uint   `gorm:"not null;index;index:idx_friend_request_pair,unique"`
	FromUser   User   `gorm:"foreignKey:FromUserID;constraint:OnDelete:CASCADE"`
	ToUserID   uint   `gorm:"not null;index;index:idx_friend_request_pair,unique"`
	ToUser     User   `gorm:"foreignKey:ToUserID;constraint:OnDelete:CASCADE"`
	Status     string `gorm:"size:20;not null;default:pending"`
}

// TableName 自定义表名以保持命名一致。
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// Friendship 表示一条已建立的好友关系
// 存储为规范化的单行：UserID < FriendID，查询时双向匹配
type Friendship struct {
	gorm.Model
	UserID   uint `gorm:"not null;index;index:idx_friendship_pair,unique"`
	User     User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	FriendID uint `gorm:"not null;index;index:idx_friendship_pair,unique"`
	Friend   User `gorm:"foreignKey:FriendID;constraint:OnDelete:CASCADE"`
}

// TableName 自定义表名以保持命名一致。
func (Friendship) TableName() string {
	return "friendships"
}
