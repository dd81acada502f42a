package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetAchievements 返回当前用户全部成就的进度与等级
func (a *API) GetAchievements(c *gin.Context) {
	userID, _ := currentUser(c)

	statuses, err := a.achievements.List(userID)
	if err != nil {
		a.logger.Error("list achievements failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "获取成就失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": statuses})
}
