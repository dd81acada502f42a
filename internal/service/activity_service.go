package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gardenlog/internal/db"
	"github.com/gardenlog/internal/health"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrActivityNotFound 在指定动态不存在时返回
	ErrActivityNotFound = errors.New("activity not found")
)

const defaultFeedPerPage = 20

// ActivityService 负责动态流的写入与查询
// 动态创建后不可变，只有删除植物时才级联清理相关动态
type ActivityService struct {
	db *gorm.DB
}

// NewActivityService 构造 ActivityService
func NewActivityService(gdb *gorm.DB) *ActivityService {
	return &ActivityService{db: gdb}
}

// FeedEntry 表示动态流中的一条记录及其点赞信息
type FeedEntry struct {
	ID              uint      `json:"id"`
	Type            string    `json:"type"`
	Pseudo          string    `json:"pseudo"`
	CreatedAt       time.Time `json:"created_at"`
	PlantUID        string    `json:"plant_uid,omitempty"`
	PlantName       string    `json:"plant_name,omitempty"`
	FriendPseudo    string    `json:"friend_pseudo,omitempty"`
	AchievementType string    `json:"achievement_type,omitempty"`
	LevelReached    int       `json:"level_reached,omitempty"`
	LikeCount       int       `json:"like_count"`
	LikedByMe       bool      `json:"liked_by_me"`
}

// FeedResult 聚合分页后的动态流
type FeedResult struct {
	Entries    []FeedEntry
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// RecordAddedPlant 记录"添加植物"动态
func (s *ActivityService) RecordAddedPlant(userID uint, pseudo, plantUID, plantName string) error {
	return s.create(db.GardenActivity{
		Type:        db.ActivityAddedPlant,
		UserID:      userID,
		Pseudo:      pseudo,
		ActivityKey: uuid.New().String(),
		PlantUID:    plantUID,
		PlantName:   plantName,
	})
}

// RecordWaterPlant 记录"浇水"动态
func (s *ActivityService) RecordWaterPlant(userID uint, pseudo, plantUID, plantName string) error {
	return s.create(db.GardenActivity{
		Type:        db.ActivityWaterPlant,
		UserID:      userID,
		Pseudo:      pseudo,
		ActivityKey: uuid.New().String(),
		PlantUID:    plantUID,
		PlantName:   plantName,
	})
}

// RecordAddFriend 记录"添加好友"动态
func (s *ActivityService) RecordAddFriend(userID uint, pseudo, friendPseudo string) error {
	return s.create(db.GardenActivity{
		Type:         db.ActivityAddFriend,
		UserID:       userID,
		Pseudo:       pseudo,
		ActivityKey:  uuid.New().String(),
		FriendPseudo: friendPseudo,
	})
}

// RecordAchievement 记录"达成成就"动态
// key 取确定性值，user + key 唯一索引让重复触发自动去重
func (s *ActivityService) RecordAchievement(userID uint, pseudo string, typ health.AchievementType, levelReached int) error {
	activity := db.GardenActivity{
		Type:            db.ActivityAchievement,
		UserID:          userID,
		Pseudo:          pseudo,
		ActivityKey:     fmt.Sprintf("ACHIEVEMENT_%s_LEVEL_%d", typ, levelReached),
		AchievementType: string(typ),
		LevelReached:    levelReached,
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "activity_key"}},
		DoNothing: true,
	}).Create(&activity).Error; err != nil {
		return fmt.Errorf("record achievement activity: %w", err)
	}
	return nil
}

func (s *ActivityService) create(activity db.GardenActivity) error {
	if err := s.db.Create(&activity).Error; err != nil {
		return fmt.Errorf("record %s activity: %w", strings.ToLower(activity.Type), err)
	}
	return nil
}

// Feed 返回用户本人与其好友的动态，按时间倒序分页
func (s *ActivityService) Feed(userID uint, page, perPage int) (FeedResult, error) {
	result := FeedResult{
		Page:    normalizePage(page),
		PerPage: normalizePerPage(perPage, defaultFeedPerPage),
	}

	visible := s.visibleUserIDs(userID)

	query := s.db.Model(&db.GardenActivity{}).Where("user_id IN (?)", visible)
	if err := query.Count(&result.Total).Error; err != nil {
		return result, fmt.Errorf("count feed: %w", err)
	}
	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)

	var activities []db.GardenActivity
	if err := query.Order("created_at DESC").Order("id DESC").
		Limit(result.PerPage).
		Offset((result.Page - 1) * result.PerPage).
		Find(&activities).Error; err != nil {
		return result, fmt.Errorf("list feed: %w", err)
	}

	entries, err := s.attachLikes(userID, activities)
	if err != nil {
		return result, err
	}
	result.Entries = entries
	return result, nil
}

// visibleUserIDs 返回"本人 + 好友"的用户 ID 子查询
func (s *ActivityService) visibleUserIDs(userID uint) *gorm.DB {
	friendA := s.db.Model(&db.Friendship{}).Select("friend_id").Where("user_id = ?", userID)
	friendB := s.db.Model(&db.Friendship{}).Select("user_id").Where("friend_id = ?", userID)
	return s.db.Model(&db.User{}).Select("id").
		Where("id = ? OR id IN (?) OR id IN (?)", userID, friendA, friendB)
}

func (s *ActivityService) attachLikes(viewerID uint, activities []db.GardenActivity) ([]FeedEntry, error) {
	entries := make([]FeedEntry, 0, len(activities))
	if len(activities) == 0 {
		return entries, nil
	}

	ids := make([]uint, 0, len(activities))
	for _, activity := range activities {
		ids = append(ids, activity.ID)
	}

	type likeCount struct {
		ActivityID uint
		Count      int
	}
	var counts []likeCount
	if err := s.db.Model(&db.ActivityLike{}).
		Select("activity_id, COUNT(*) AS count").
		Where("activity_id IN ?", ids).
		Group("activity_id").
		Find(&counts).Error; err != nil {
		return nil, fmt.Errorf("count likes: %w", err)
	}

	countMap := make(map[uint]int, len(counts))
	for _, c := range counts {
		countMap[c.ActivityID] = c.Count
	}

	var mine []db.ActivityLike
	if err := s.db.Where("user_id = ? AND activity_id IN ?", viewerID, ids).Find(&mine).Error; err != nil {
		return nil, fmt.Errorf("list own likes: %w", err)
	}
	likedMap := make(map[uint]struct{}, len(mine))
	for _, like := range mine {
		likedMap[like.ActivityID] = struct{}{}
	}

	for _, activity := range activities {
		_, liked := likedMap[activity.ID]
		entries = append(entries, FeedEntry{
			ID:              activity.ID,
			Type:            activity.Type,
			Pseudo:          activity.Pseudo,
			CreatedAt:       activity.CreatedAt,
			PlantUID:        activity.PlantUID,
			PlantName:       activity.PlantName,
			FriendPseudo:    activity.FriendPseudo,
			AchievementType: activity.AchievementType,
			LevelReached:    activity.LevelReached,
			LikeCount:       countMap[activity.ID],
			LikedByMe:       liked,
		})
	}
	return entries, nil
}

// Like 给动态点赞，重复点赞幂等
// 仅允许给自己可见（本人或好友）的动态点赞
func (s *ActivityService) Like(viewerID uint, activityID uint) error {
	var activity db.GardenActivity
	if err := s.db.Where("id = ? AND user_id IN (?)", activityID, s.visibleUserIDs(viewerID)).
		First(&activity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrActivityNotFound
		}
		return fmt.Errorf("find activity: %w", err)
	}

	like := db.ActivityLike{ActivityID: activityID, UserID: viewerID}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "activity_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&like).Error; err != nil {
		return fmt.Errorf("like activity: %w", err)
	}
	return nil
}

// Unlike 取消点赞，未点赞时为空操作
func (s *ActivityService) Unlike(viewerID uint, activityID uint) error {
	if err := s.db.Where("activity_id = ? AND user_id = ?", activityID, viewerID).
		Delete(&db.ActivityLike{}).Error; err != nil {
		return fmt.Errorf("unlike activity: %w", err)
	}
	return nil
}

// DeleteForPlant 删除某株植物名下的全部动态（随植物删除级联调用）
func (s *ActivityService) DeleteForPlant(userID uint, plantUID string) error {
	var ids []uint
	if err := s.db.Model(&db.GardenActivity{}).
		Where("user_id = ? AND plant_uid = ?", userID, plantUID).
		Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("list plant activities: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("activity_id IN ?", ids).Delete(&db.ActivityLike{}).Error; err != nil {
			return fmt.Errorf("delete plant activity likes: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&db.GardenActivity{}).Error; err != nil {
			return fmt.Errorf("delete plant activities: %w", err)
		}
		return nil
	})
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizePerPage(perPage, fallback int) int {
	if perPage <= 0 {
		return fallback
	}
	return perPage
}

func calculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 || total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
