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
)

var (
	// ErrPlantNotFound 在指定植物不存在或不属于当前用户时返回
	ErrPlantNotFound = errors.New("plant not found")
	// ErrPlantNameRequired 在植物名称为空时返回
	ErrPlantNameRequired = errors.New("plant name is required")
)

// PlantService 管理用户的植物档案与浇水记录
// 健康状态在读取时实时计算，写库仅作为后台任务的缓存
type PlantService struct {
	db           *gorm.DB
	activity     *ActivityService
	achievements *AchievementService
	now          func() time.Time
}

// NewPlantService 构造 PlantService
func NewPlantService(gdb *gorm.DB, activity *ActivityService, achievements *AchievementService) *PlantService {
	return &PlantService{
		db:           gdb,
		activity:     activity,
		achievements: achievements,
		now:          time.Now,
	}
}

// SetClock 覆盖时间源，仅用于测试
func (s *PlantService) SetClock(now func() time.Time) {
	if now == nil {
		s.now = time.Now
		return
	}
	s.now = now
}

// PlantInput 描述创建或更新植物的输入
type PlantInput struct {
	Name              string `json:"name"`
	LatinName         string `json:"latin_name"`
	Description       string `json:"description"`
	CareNotes         string `json:"care_notes"`
	ImageURL          string `json:"image_url"`
	Location          string `json:"location"`
	LightExposure     string `json:"light_exposure"`
	WateringFrequency int    `json:"watering_frequency"`
	Recognized        bool   `json:"recognized"`
}

// PlantView 是对外返回的植物信息，健康状态为实时计算结果
type PlantView struct {
	PlantUID            string    `json:"plant_uid"`
	Name                string    `json:"name"`
	LatinName           string    `json:"latin_name,omitempty"`
	Description         string    `json:"description,omitempty"`
	CareNotes           string    `json:"care_notes,omitempty"`
	CareNotesHTML       string    `json:"care_notes_html,omitempty"`
	ImageURL            string    `json:"image_url,omitempty"`
	Location            string    `json:"location"`
	LightExposure       string    `json:"light_exposure,omitempty"`
	WateringFrequency   int       `json:"watering_frequency"`
	Recognized          bool      `json:"recognized"`
	HealthStatus        string    `json:"health_status"`
	HealthDescription   string    `json:"health_description"`
	LastWatered         time.Time `json:"last_watered,omitempty"`
	PreviousLastWatered time.Time `json:"previous_last_watered,omitempty"`
	HealthySince        time.Time `json:"healthy_since,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// Create 创建植物档案，随后记录动态并推进"植物数量"成就
func (s *PlantService) Create(userID uint, pseudo string, input PlantInput) (PlantView, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return PlantView{}, ErrPlantNameRequired
	}

	now := s.now()
	plant := db.OwnedPlant{
		PlantUID:          uuid.New().String(),
		UserID:            userID,
		Name:              name,
		LatinName:         strings.TrimSpace(input.LatinName),
		Description:       input.Description,
		CareNotes:         input.CareNotes,
		ImageURL:          strings.TrimSpace(input.ImageURL),
		Location:          normalizeLocation(input.Location),
		LightExposure:     strings.TrimSpace(input.LightExposure),
		WateringFrequency: clampWateringFrequency(input.WateringFrequency),
		Recognized:        input.Recognized,
		HealthStatus:      string(health.StatusHealthy),
		LastWatered:       now,
		HealthySince:      now,
	}

	if err := s.db.Create(&plant).Error; err != nil {
		return PlantView{}, fmt.Errorf("create plant: %w", err)
	}

	if err := s.activity.RecordAddedPlant(userID, pseudo, plant.PlantUID, plant.Name); err != nil {
		return PlantView{}, err
	}

	count, err := s.countPlants(userID)
	if err != nil {
		return PlantView{}, err
	}
	if err := s.achievements.RecordProgress(userID, pseudo, health.AchievementPlantsNumber, count); err != nil {
		return PlantView{}, err
	}

	return s.toView(plant, now), nil
}

// List 返回用户全部植物，按创建时间倒序
func (s *PlantService) List(userID uint) ([]PlantView, error) {
	var plants []db.OwnedPlant
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&plants).Error; err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}

	now := s.now()
	views := make([]PlantView, 0, len(plants))
	for _, plant := range plants {
		views = append(views, s.toView(plant, now))
	}
	return views, nil
}

// Get 返回指定植物
func (s *PlantService) Get(userID uint, plantUID string) (PlantView, error) {
	plant, err := s.find(userID, plantUID)
	if err != nil {
		return PlantView{}, err
	}
	return s.toView(plant, s.now()), nil
}

// Update 更新植物档案的可编辑字段
func (s *PlantService) Update(userID uint, plantUID string, input PlantInput) (PlantView, error) {
	plant, err := s.find(userID, plantUID)
	if err != nil {
		return PlantView{}, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return PlantView{}, ErrPlantNameRequired
	}

	plant.Name = name
	plant.LatinName = strings.TrimSpace(input.LatinName)
	plant.Description = input.Description
	plant.CareNotes = input.CareNotes
	if trimmed := strings.TrimSpace(input.ImageURL); trimmed != "" {
		plant.ImageURL = trimmed
	}
	plant.Location = normalizeLocation(input.Location)
	plant.LightExposure = strings.TrimSpace(input.LightExposure)
	plant.WateringFrequency = clampWateringFrequency(input.WateringFrequency)

	if err := s.db.Save(&plant).Error; err != nil {
		return PlantView{}, fmt.Errorf("update plant: %w", err)
	}
	return s.toView(plant, s.now()), nil
}

// Water 记录一次浇水：上一次浇水时间顺移，作为过度浇水判定的依据
func (s *PlantService) Water(userID uint, pseudo, plantUID string) (PlantView, error) {
	plant, err := s.find(userID, plantUID)
	if err != nil {
		return PlantView{}, err
	}

	now := s.now()
	plant.PreviousLastWatered = plant.LastWatered
	plant.LastWatered = now

	status := health.ComputeStatus(now, plant.LastWatered, plant.PreviousLastWatered, plant.WateringFrequency)
	plant.HealthStatus = string(status)
	if status.IsHealthy() {
		if plant.HealthySince.IsZero() {
			plant.HealthySince = now
		}
	} else {
		plant.HealthySince = time.Time{}
	}

	if err := s.db.Save(&plant).Error; err != nil {
		return PlantView{}, fmt.Errorf("water plant: %w", err)
	}

	if err := s.activity.RecordWaterPlant(userID, pseudo, plant.PlantUID, plant.Name); err != nil {
		return PlantView{}, err
	}
	return s.toView(plant, now), nil
}

// Delete 删除植物并级联清理其动态
func (s *PlantService) Delete(userID uint, plantUID string) error {
	plant, err := s.find(userID, plantUID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(&plant).Error; err != nil {
		return fmt.Errorf("delete plant: %w", err)
	}
	return s.activity.DeleteForPlant(userID, plantUID)
}

func (s *PlantService) find(userID uint, plantUID string) (db.OwnedPlant, error) {
	var plant db.OwnedPlant
	err := s.db.Where("user_id = ? AND plant_uid = ?", userID, strings.TrimSpace(plantUID)).
		First(&plant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.OwnedPlant{}, ErrPlantNotFound
	}
	if err != nil {
		return db.OwnedPlant{}, fmt.Errorf("find plant: %w", err)
	}
	return plant, nil
}

func (s *PlantService) countPlants(userID uint) (int, error) {
	var count int64
	if err := s.db.Model(&db.OwnedPlant{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count plants: %w", err)
	}
	return int(count), nil
}

func (s *PlantService) toView(plant db.OwnedPlant, now time.Time) PlantView {
	status := health.ComputeStatus(now, plant.LastWatered, plant.PreviousLastWatered, plant.WateringFrequency)
	return PlantView{
		PlantUID:            plant.PlantUID,
		Name:                plant.Name,
		LatinName:           plant.LatinName,
		Description:         plant.Description,
		CareNotes:           plant.CareNotes,
		ImageURL:            plant.ImageURL,
		Location:            plant.Location,
		LightExposure:       plant.LightExposure,
		WateringFrequency:   plant.WateringFrequency,
		Recognized:          plant.Recognized,
		HealthStatus:        string(status),
		HealthDescription:   status.Description(),
		LastWatered:         plant.LastWatered,
		PreviousLastWatered: plant.PreviousLastWatered,
		HealthySince:        plant.HealthySince,
		CreatedAt:           plant.CreatedAt,
	}
}

func clampWateringFrequency(days int) int {
	if days < 1 {
		return 1
	}
	return days
}

func normalizeLocation(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case db.PlantLocationIndoor:
		return db.PlantLocationIndoor
	case db.PlantLocationOutdoor:
		return db.PlantLocationOutdoor
	default:
		return db.PlantLocationUnknown
	}
}
