package handler

import (
	"errors"
	"net/http"

	"github.com/gardenlog/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type friendRequestPayload struct {
	Pseudo string `json:"pseudo"`
}

// GetFriends 返回好友列表
func (a *API) GetFriends(c *gin.Context) {
	userID, _ := currentUser(c)

	friends, err := a.friends.ListFriends(userID)
	if err != nil {
		a.logger.Error("list friends failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "获取好友列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// GetFriendRequests 返回待处理的好友请求
func (a *API) GetFriendRequests(c *gin.Context) {
	userID, _ := currentUser(c)

	requests, err := a.friends.ListRequests(userID)
	if err != nil {
		a.logger.Error("list friend requests failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "获取好友请求失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// SendFriendRequest 按昵称发送好友请求
func (a *API) SendFriendRequest(c *gin.Context) {
	userID, _ := currentUser(c)

	var payload friendRequestPayload
	if !bindJSON(c, &payload, "请求参数格式错误") {
		return
	}

	if err := a.friends.SendRequest(userID, payload.Pseudo); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "用户不存在")
		case errors.Is(err, service.ErrCannotFriendSelf):
			respondError(c, http.StatusBadRequest, "不能添加自己为好友")
		case errors.Is(err, service.ErrAlreadyFriends):
			respondError(c, http.StatusConflict, "你们已经是好友")
		case errors.Is(err, service.ErrRequestAlreadyExists):
			respondError(c, http.StatusConflict, "好友请求已存在")
		default:
			a.logger.Error("send friend request failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "发送好友请求失败")
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "好友请求已发送"})
}

// AcceptFriendRequest 接受好友请求
func (a *API) AcceptFriendRequest(c *gin.Context) {
	userID, _ := currentUser(c)

	requestID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "请求 ID 非法")
		return
	}

	if err := a.friends.Accept(userID, requestID); err != nil {
		if errors.Is(err, service.ErrFriendRequestNotFound) {
			respondError(c, http.StatusNotFound, "好友请求不存在")
			return
		}
		a.logger.Error("accept friend request failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "接受好友请求失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已添加好友"})
}

// DeclineFriendRequest 拒绝好友请求
func (a *API) DeclineFriendRequest(c *gin.Context) {
	userID, _ := currentUser(c)

	requestID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "请求 ID 非法")
		return
	}

	if err := a.friends.Decline(userID, requestID); err != nil {
		if errors.Is(err, service.ErrFriendRequestNotFound) {
			respondError(c, http.StatusNotFound, "好友请求不存在")
			return
		}
		a.logger.Error("decline friend request failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "拒绝好友请求失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已拒绝"})
}
