package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gardenlog/internal/db"
	"github.com/gardenlog/internal/health"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 在昵称找不到对应用户时返回
	ErrUserNotFound = errors.New("user not found")
	// ErrCannotFriendSelf 在用户向自己发送好友请求时返回
	ErrCannotFriendSelf = errors.New("cannot send friend request to yourself")
	// ErrAlreadyFriends 在双方已是好友时返回
	ErrAlreadyFriends = errors.New("already friends")
	// ErrRequestAlreadyExists 在双方之间已有待处理请求时返回
	ErrRequestAlreadyExists = errors.New("friend request already exists")
	// ErrFriendRequestNotFound 在请求不存在或无权处理时返回
	ErrFriendRequestNotFound = errors.New("friend request not found")
)

// friendRequestNotifier 抽象好友请求的推送通知，便于测试替换
type friendRequestNotifier interface {
	NotifyFriendRequest(toUser db.User, fromPseudo string)
}

// FriendService 管理好友请求与好友关系
// 好友关系存储为 UserID < FriendID 的规范化单行
type FriendService struct {
	db           *gorm.DB
	activity     *ActivityService
	achievements *AchievementService
	notifier     friendRequestNotifier
}

// NewFriendService 构造 FriendService，notifier 可为 nil（不推送）
func NewFriendService(gdb *gorm.DB, activity *ActivityService, achievements *AchievementService, notifier friendRequestNotifier) *FriendService {
	return &FriendService{db: gdb, activity: activity, achievements: achievements, notifier: notifier}
}

// FriendView 描述一位好友
type FriendView struct {
	Pseudo string `json:"pseudo"`
}

// FriendRequestView 描述一条待处理的好友请求
type FriendRequestView struct {
	ID         uint   `json:"id"`
	FromPseudo string `json:"from_pseudo"`
}

// SendRequest 按昵称发送好友请求，成功后向对方推送通知
func (s *FriendService) SendRequest(fromUserID uint, toPseudo string) error {
	var from db.User
	if err := s.db.First(&from, fromUserID).Error; err != nil {
		return fmt.Errorf("find sender: %w", err)
	}

	var to db.User
	err := s.db.Where("pseudo = ?", strings.TrimSpace(toPseudo)).First(&to).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("find recipient: %w", err)
	}

	if to.ID == fromUserID {
		return ErrCannotFriendSelf
	}

	friends, err := s.areFriends(fromUserID, to.ID)
	if err != nil {
		return err
	}
	if friends {
		return ErrAlreadyFriends
	}

	var pending int64
	if err := s.db.Model(&db.FriendRequest{}).
		Where("status = ?", db.FriendRequestPending).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
			fromUserID, to.ID, to.ID, fromUserID).
		Count(&pending).Error; err != nil {
		return fmt.Errorf("check pending requests: %w", err)
	}
	if pending > 0 {
		return ErrRequestAlreadyExists
	}

	// 同方向的历史请求（已拒绝或已接受后解除）复用原行重置为待处理，
	// 唯一索引只允许每对用户一行
	var existing db.FriendRequest
	err = s.db.Where("from_user_id = ? AND to_user_id = ?", fromUserID, to.ID).First(&existing).Error
	switch {
	case err == nil:
		if err := s.db.Model(&existing).Update("status", db.FriendRequestPending).Error; err != nil {
			return fmt.Errorf("reopen friend request: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		request := db.FriendRequest{
			FromUserID: fromUserID,
			ToUserID:   to.ID,
			Status:     db.FriendRequestPending,
		}
		if err := s.db.Create(&request).Error; err != nil {
			return fmt.Errorf("create friend request: %w", err)
		}
	default:
		return fmt.Errorf("find previous request: %w", err)
	}

	// 推送失败不影响请求本身
	if s.notifier != nil {
		s.notifier.NotifyFriendRequest(to, from.Pseudo)
	}
	return nil
}

// Accept 接受好友请求：建立好友关系，双方各记一条动态并推进好友数成就
func (s *FriendService) Accept(userID uint, requestID uint) error {
	var request db.FriendRequest
	err := s.db.Where("id = ? AND to_user_id = ? AND status = ?", requestID, userID, db.FriendRequestPending).
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrFriendRequestNotFound
	}
	if err != nil {
		return fmt.Errorf("find friend request: %w", err)
	}

	var from, to db.User
	if err := s.db.First(&from, request.FromUserID).Error; err != nil {
		return fmt.Errorf("find sender: %w", err)
	}
	if err := s.db.First(&to, request.ToUserID).Error; err != nil {
		return fmt.Errorf("find recipient: %w", err)
	}

	lowID, highID := request.FromUserID, request.ToUserID
	if lowID > highID {
		lowID, highID = highID, lowID
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&request).Update("status", db.FriendRequestAccepted).Error; err != nil {
			return fmt.Errorf("accept friend request: %w", err)
		}
		if err := tx.Create(&db.Friendship{UserID: lowID, FriendID: highID}).Error; err != nil {
			return fmt.Errorf("create friendship: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.activity.RecordAddFriend(from.ID, from.Pseudo, to.Pseudo); err != nil {
		return err
	}
	if err := s.activity.RecordAddFriend(to.ID, to.Pseudo, from.Pseudo); err != nil {
		return err
	}

	for _, user := range []db.User{from, to} {
		count, err := s.countFriends(user.ID)
		if err != nil {
			return err
		}
		if err := s.achievements.RecordProgress(user.ID, user.Pseudo, health.AchievementFriendsNumber, count); err != nil {
			return err
		}
	}
	return nil
}

// Decline 拒绝好友请求
func (s *FriendService) Decline(userID uint, requestID uint) error {
	result := s.db.Model(&db.FriendRequest{}).
		Where("id = ? AND to_user_id = ? AND status = ?", requestID, userID, db.FriendRequestPending).
		Update("status", db.FriendRequestDeclined)
	if result.Error != nil {
		return fmt.Errorf("decline friend request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFriendRequestNotFound
	}
	return nil
}

// ListRequests 返回发给当前用户的待处理请求
func (s *FriendService) ListRequests(userID uint) ([]FriendRequestView, error) {
	var requests []db.FriendRequest
	if err := s.db.Preload("FromUser").
		Where("to_user_id = ? AND status = ?", userID, db.FriendRequestPending).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}

	views := make([]FriendRequestView, 0, len(requests))
	for _, request := range requests {
		views = append(views, FriendRequestView{
			ID:         request.ID,
			FromPseudo: request.FromUser.Pseudo,
		})
	}
	return views, nil
}

// ListFriends 返回当前用户的好友列表
func (s *FriendService) ListFriends(userID uint) ([]FriendView, error) {
	ids, err := s.friendIDs(userID)
	if err != nil {
		return nil, err
	}

	views := make([]FriendView, 0, len(ids))
	if len(ids) == 0 {
		return views, nil
	}

	var users []db.User
	if err := s.db.Where("id IN ?", ids).Order("pseudo ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	for _, user := range users {
		views = append(views, FriendView{Pseudo: user.Pseudo})
	}
	return views, nil
}

func (s *FriendService) friendIDs(userID uint) ([]uint, error) {
	var friendships []db.Friendship
	if err := s.db.Where("user_id = ? OR friend_id = ?", userID, userID).Find(&friendships).Error; err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}

	ids := make([]uint, 0, len(friendships))
	for _, friendship := range friendships {
		if friendship.UserID == userID {
			ids = append(ids, friendship.FriendID)
		} else {
			ids = append(ids, friendship.UserID)
		}
	}
	return ids, nil
}

func (s *FriendService) areFriends(a, b uint) (bool, error) {
	if a > b {
		a, b = b, a
	}
	var count int64
	if err := s.db.Model(&db.Friendship{}).
		Where("user_id = ? AND friend_id = ?", a, b).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return count > 0, nil
}

func (s *FriendService) countFriends(userID uint) (int, error) {
	ids, err := s.friendIDs(userID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
