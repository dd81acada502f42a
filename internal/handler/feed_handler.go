package handler

import (
	"errors"
	"net/http"

	"github.com/gardenlog/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetFeed 返回本人与好友的动态流，支持 page / per_page 分页参数
func (a *API) GetFeed(c *gin.Context) {
	userID, _ := currentUser(c)

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 0)

	result, err := a.activities.Feed(userID, page, perPage)
	if err != nil {
		a.logger.Error("get feed failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "获取动态失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activities":  result.Entries,
		"total":       result.Total,
		"total_pages": result.TotalPages,
		"page":        result.Page,
		"per_page":    result.PerPage,
	})
}

// LikeActivity 给动态点赞
func (a *API) LikeActivity(c *gin.Context) {
	userID, _ := currentUser(c)

	activityID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "动态 ID 非法")
		return
	}

	if err := a.activities.Like(userID, activityID); err != nil {
		if errors.Is(err, service.ErrActivityNotFound) {
			respondError(c, http.StatusNotFound, "动态不存在")
			return
		}
		a.logger.Error("like activity failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "点赞失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已点赞"})
}

// UnlikeActivity 取消点赞
func (a *API) UnlikeActivity(c *gin.Context) {
	userID, _ := currentUser(c)

	activityID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "动态 ID 非法")
		return
	}

	if err := a.activities.Unlike(userID, activityID); err != nil {
		a.logger.Error("unlike activity failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "取消点赞失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已取消点赞"})
}
