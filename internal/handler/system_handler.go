package handler

import (
	"net/http"
	"strings"

	"github.com/gardenlog/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type systemSettingsPayload struct {
	AIProvider        string `json:"ai_provider"`
	OpenAIAPIKey      string `json:"openai_api_key"`
	DeepSeekAPIKey    string `json:"deepseek_api_key"`
	RecognitionAPIKey string `json:"recognition_api_key"`
	PushServerKey     string `json:"push_server_key"`
}

// GetSystemSettings 返回系统设置，密钥只回传掩码
func (a *API) GetSystemSettings(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil {
		a.logger.Error("get system settings failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "获取系统设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ai_provider":         settings.AIProvider,
		"openai_api_key":      maskSecret(settings.OpenAIAPIKey),
		"deepseek_api_key":    maskSecret(settings.DeepSeekAPIKey),
		"recognition_api_key": maskSecret(settings.RecognitionAPIKey),
		"push_server_key":     maskSecret(settings.PushServerKey),
	})
}

// UpdateSystemSettings 保存系统设置
func (a *API) UpdateSystemSettings(c *gin.Context) {
	var payload systemSettingsPayload
	if !bindJSON(c, &payload, "请求参数格式错误") {
		return
	}

	saved, err := a.system.UpdateSettings(service.SystemSettingsInput{
		AIProvider:        payload.AIProvider,
		OpenAIAPIKey:      payload.OpenAIAPIKey,
		DeepSeekAPIKey:    payload.DeepSeekAPIKey,
		RecognitionAPIKey: payload.RecognitionAPIKey,
		PushServerKey:     payload.PushServerKey,
	})
	if err != nil {
		a.logger.Error("update system settings failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "保存系统设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "系统设置已保存",
		"ai_provider": saved.AIProvider,
	})
}

// maskSecret 只保留密钥末四位
func maskSecret(secret string) string {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return "****"
	}
	return "****" + trimmed[len(trimmed)-4:]
}
