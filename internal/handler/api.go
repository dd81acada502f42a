package handler

import (
	"time"

	"github.com/gardenlog/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options 汇总处理器层需要的外部配置
type Options struct {
	TokenSecret    string
	TokenTTL       time.Duration
	UploadDir      string
	UploadURL      string
	PushGatewayURL string
	WatcherTick    time.Duration
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db            *gorm.DB
	logger        *zap.Logger
	profiles      *service.ProfileService
	plants        *service.PlantService
	activities    *service.ActivityService
	achievements  *service.AchievementService
	friends       *service.FriendService
	identify      *service.IdentifyService
	system        *service.SystemSettingService
	notifications *service.NotificationService
	watcher       *service.PlantWatcher
	statusJob     *service.StatusJob
	tokenSecret   []byte
	tokenTTL      time.Duration
	uploadDir     string
	uploadURL     string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, logger *zap.Logger, opts Options) *API {
	if logger == nil {
		logger = zap.NewNop()
	}

	systemService := service.NewSystemSettingService(gdb)
	notificationService := service.NewNotificationService(gdb, systemService, logger, opts.PushGatewayURL)

	activityService := service.NewActivityService(gdb)
	achievementService := service.NewAchievementService(gdb, activityService)
	plantService := service.NewPlantService(gdb, activityService, achievementService)

	return &API{
		db:            gdb,
		logger:        logger,
		profiles:      service.NewProfileService(gdb),
		plants:        plantService,
		activities:    activityService,
		achievements:  achievementService,
		friends:       service.NewFriendService(gdb, activityService, achievementService, notificationService),
		identify:      service.NewIdentifyService(systemService),
		system:        systemService,
		notifications: notificationService,
		watcher:       service.NewPlantWatcher(plantService, logger, opts.WatcherTick),
		statusJob:     service.NewStatusJob(gdb, achievementService, notificationService, logger),
		tokenSecret:   []byte(opts.TokenSecret),
		tokenTTL:      opts.TokenTTL,
		uploadDir:     opts.UploadDir,
		uploadURL:     opts.UploadURL,
	}
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}

// StatusJob 返回后台健康扫描任务，由入口负责调度
func (a *API) StatusJob() *service.StatusJob {
	return a.statusJob
}
