package handler

import (
	"errors"
	"net/http"

	"github.com/gardenlog/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type pushTokenPayload struct {
	Token string `json:"token"`
}

// GetProfile 返回当前用户的基本信息
func (a *API) GetProfile(c *gin.Context) {
	userID, _ := currentUser(c)

	user, err := a.profiles.Get(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "用户不存在")
			return
		}
		a.logger.Error("get profile failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "获取用户信息失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             user.ID,
		"pseudo":         user.Pseudo,
		"has_push_token": user.PushToken != "",
	})
}

// SetPushToken 绑定设备推送令牌
func (a *API) SetPushToken(c *gin.Context) {
	userID, _ := currentUser(c)

	var payload pushTokenPayload
	if !bindJSON(c, &payload, "请求参数格式错误") {
		return
	}

	if err := a.profiles.SetPushToken(userID, payload.Token); err != nil {
		a.logger.Error("set push token failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "保存推送令牌失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "推送令牌已保存"})
}

// ClearPushToken 解绑设备推送令牌
func (a *API) ClearPushToken(c *gin.Context) {
	userID, _ := currentUser(c)

	if err := a.profiles.ClearPushToken(userID); err != nil {
		a.logger.Error("clear push token failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "清除推送令牌失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "推送令牌已清除"})
}
