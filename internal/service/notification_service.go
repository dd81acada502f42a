package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gardenlog/internal/db"
	"github.com/gardenlog/internal/health"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxPushAttempts    = 3
	pushBackoffBase    = time.Second
	pushBackoffCeiling = 8 * time.Second
)

// 提醒标题按状态随机挑选，避免推送千篇一律
var needWaterTitles = []string{
	"Time to give your plant a drink 🌱",
	"Your plant is feeling a bit thirsty 🌿",
	"Hey, your green friend needs some water 🌱",
	"Don't forget to water your plant today 🌿",
	"A little hydration goes a long way 🌱",
	"Your plant could use a refreshing sip 🌿",
	"It's watering time for your plant 🌱",
	"Your plant's leaves are calling for water 🌿",
	"Keep your plant happy — water it now 🌱",
	"Looks like your plant needs a bit of care 🌿",
}

var severelyDryTitles = []string{
	"Your plant is really thirsty ⚠️",
	"Emergency hydration needed 🚨",
	"Your plant is drying out fast ⚠️",
	"Uh oh...your plant needs water ASAP 🚨",
}

// pushMessage 对应推送网关的请求体
type pushMessage struct {
	To           string            `json:"to"`
	Notification pushNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NotificationService 通过推送网关向用户设备发送提醒
// 发送失败只记日志；配额或服务端错误指数退避重试，
// 令牌失效（404/410）时清除用户存储的令牌
type NotificationService struct {
	db         *gorm.DB
	settings   *SystemSettingService
	http       httpDoer
	logger     *zap.Logger
	gatewayURL string
	sleep      func(time.Duration)
	pick       func(n int) int
}

// NewNotificationService 构造 NotificationService
func NewNotificationService(gdb *gorm.DB, settings *SystemSettingService, logger *zap.Logger, gatewayURL string) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		db:         gdb,
		settings:   settings,
		http:       &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		gatewayURL: strings.TrimSpace(gatewayURL),
		sleep:      time.Sleep,
		pick:       rand.Intn,
	}
}

// SetHTTPClient 覆盖推送所用的 HTTP 客户端，仅用于测试
func (s *NotificationService) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.http = &http.Client{Timeout: 15 * time.Second}
		return
	}
	s.http = client
}

// SetSleep 覆盖重试间隔的等待函数，仅用于测试
func (s *NotificationService) SetSleep(sleep func(time.Duration)) {
	if sleep == nil {
		s.sleep = time.Sleep
		return
	}
	s.sleep = sleep
}

// NotifyFriendRequest 通知对方收到了好友请求
func (s *NotificationService) NotifyFriendRequest(toUser db.User, fromPseudo string) {
	if strings.TrimSpace(toUser.PushToken) == "" {
		s.logger.Info("push skipped: no token", zap.String("pseudo", toUser.Pseudo))
		return
	}

	s.send(toUser, pushMessage{
		To: toUser.PushToken,
		Notification: pushNotification{
			Title: "New Friend Request 🤝",
			Body:  fmt.Sprintf("%s wants to be your friend!", fromPseudo),
		},
		Data: map[string]string{"type": "FRIEND_REQUEST", "fromPseudo": fromPseudo},
	})
}

// NotifyPlantStatus 在植物进入缺水状态时提醒主人浇水
// 仅 NEEDS_WATER 与 SEVERELY_DRY 触发，其余状态静默
func (s *NotificationService) NotifyPlantStatus(user db.User, plantUID, plantName string, status health.Status) {
	if !status.NeedsAttention() {
		return
	}
	if strings.TrimSpace(user.PushToken) == "" {
		return
	}

	titles := needWaterTitles
	body := fmt.Sprintf("%s needs water!", plantName)
	if status == health.StatusSeverelyDry {
		titles = severelyDryTitles
		body = fmt.Sprintf("%s is severely dry and needs immediate watering to recover!", plantName)
	}

	s.send(user, pushMessage{
		To:           user.PushToken,
		Notification: pushNotification{Title: titles[s.pick(len(titles))], Body: body},
		Data:         map[string]string{"type": "WATER_PLANT", "plantId": plantUID},
	})
}

func (s *NotificationService) send(user db.User, message pushMessage) {
	settings, err := s.settings.GetSettings()
	if err != nil {
		s.logger.Error("push skipped: load settings", zap.Error(err))
		return
	}
	if strings.TrimSpace(settings.PushServerKey) == "" {
		s.logger.Info("push skipped: no server key configured")
		return
	}
	if s.gatewayURL == "" {
		s.logger.Info("push skipped: no gateway configured")
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		s.logger.Error("push skipped: marshal message", zap.Error(err))
		return
	}

	for attempt := 1; attempt <= maxPushAttempts; attempt++ {
		status, err := s.post(settings.PushServerKey, payload)
		if err != nil {
			s.logger.Warn("push failed", zap.String("pseudo", user.Pseudo), zap.Error(err))
			return
		}

		switch {
		case status < http.StatusMultipleChoices:
			return
		case status == http.StatusNotFound || status == http.StatusGone:
			// 令牌已失效，清除后不再重试
			s.logger.Warn("push token unregistered", zap.String("pseudo", user.Pseudo))
			if err := s.db.Model(&db.User{}).Where("id = ?", user.ID).
				Update("push_token", "").Error; err != nil {
				s.logger.Error("clear push token", zap.Error(err))
			}
			return
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			if attempt < maxPushAttempts {
				backoff := pushBackoffBase << (attempt - 1)
				if backoff > pushBackoffCeiling {
					backoff = pushBackoffCeiling
				}
				s.sleep(backoff)
				continue
			}
			s.logger.Error("push failed after retries",
				zap.String("pseudo", user.Pseudo), zap.Int("status", status))
			return
		default:
			s.logger.Warn("push rejected",
				zap.String("pseudo", user.Pseudo), zap.Int("status", status))
			return
		}
	}
}

func (s *NotificationService) post(serverKey string, payload []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Authorization", "key="+serverKey)
	req.Header.Set("Content-Type", "application/json")

	client := s.http
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return resp.StatusCode, nil
}
