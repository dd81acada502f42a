package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gardenlog/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 识别图片最大 10MB
const maxIdentifyImageBytes = 10 << 20

// GetPlants 返回当前用户的植物列表
func (a *API) GetPlants(c *gin.Context) {
	userID, _ := currentUser(c)

	views, err := a.plants.List(userID)
	if err != nil {
		a.logger.Error("list plants failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "获取植物列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"plants": a.withCareNotesHTML(views)})
}

// GetPlant 返回单株植物
func (a *API) GetPlant(c *gin.Context) {
	userID, _ := currentUser(c)

	view, err := a.plants.Get(userID, c.Param("uid"))
	if err != nil {
		if errors.Is(err, service.ErrPlantNotFound) {
			respondError(c, http.StatusNotFound, "植物不存在")
			return
		}
		a.logger.Error("get plant failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "获取植物失败")
		return
	}
	c.JSON(http.StatusOK, a.renderPlant(view))
}

// CreatePlant 创建植物档案
func (a *API) CreatePlant(c *gin.Context) {
	userID, pseudo := currentUser(c)

	var input service.PlantInput
	if !bindJSON(c, &input, "请求参数格式错误") {
		return
	}

	view, err := a.plants.Create(userID, pseudo, input)
	if err != nil {
		if errors.Is(err, service.ErrPlantNameRequired) {
			respondError(c, http.StatusBadRequest, "植物名称不能为空")
			return
		}
		a.logger.Error("create plant failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "创建植物失败")
		return
	}
	c.JSON(http.StatusCreated, a.renderPlant(view))
}

// UpdatePlant 更新植物档案
func (a *API) UpdatePlant(c *gin.Context) {
	userID, _ := currentUser(c)

	var input service.PlantInput
	if !bindJSON(c, &input, "请求参数格式错误") {
		return
	}

	view, err := a.plants.Update(userID, c.Param("uid"), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlantNotFound):
			respondError(c, http.StatusNotFound, "植物不存在")
		case errors.Is(err, service.ErrPlantNameRequired):
			respondError(c, http.StatusBadRequest, "植物名称不能为空")
		default:
			a.logger.Error("update plant failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "更新植物失败")
		}
		return
	}
	c.JSON(http.StatusOK, a.renderPlant(view))
}

// DeletePlant 删除植物
func (a *API) DeletePlant(c *gin.Context) {
	userID, _ := currentUser(c)

	if err := a.plants.Delete(userID, c.Param("uid")); err != nil {
		if errors.Is(err, service.ErrPlantNotFound) {
			respondError(c, http.StatusNotFound, "植物不存在")
			return
		}
		a.logger.Error("delete plant failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "删除植物失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已删除"})
}

// WaterPlant 记录一次浇水
func (a *API) WaterPlant(c *gin.Context) {
	userID, pseudo := currentUser(c)

	view, err := a.plants.Water(userID, pseudo, c.Param("uid"))
	if err != nil {
		if errors.Is(err, service.ErrPlantNotFound) {
			respondError(c, http.StatusNotFound, "植物不存在")
			return
		}
		a.logger.Error("water plant failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "记录浇水失败")
		return
	}
	c.JSON(http.StatusOK, a.renderPlant(view))
}

// WatchPlants 以 SSE 流推送植物健康快照，客户端断开即取消订阅
func (a *API) WatchPlants(c *gin.Context) {
	userID, _ := currentUser(c)

	ch, cancel := a.watcher.Subscribe(userID)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case views, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent("plants", views)
			return true
		}
	})
}

// IdentifyPlant 上传图片识别植物并返回养护建议
func (a *API) IdentifyPlant(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的图片")
		return
	}
	if file.Size > maxIdentifyImageBytes {
		respondError(c, http.StatusBadRequest, "图片文件过大")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(c, http.StatusBadRequest, "只允许上传图片文件")
		return
	}

	src, err := file.Open()
	if err != nil {
		a.logger.Error("open identify image failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "读取图片失败")
		return
	}
	defer src.Close()

	image, err := io.ReadAll(io.LimitReader(src, maxIdentifyImageBytes))
	if err != nil {
		a.logger.Error("read identify image failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "读取图片失败")
		return
	}

	result, err := a.identify.Identify(c.Request.Context(), image, file.Filename)
	if err != nil {
		if errors.Is(err, service.ErrAIAPIKeyMissing) {
			respondError(c, http.StatusServiceUnavailable, "识别服务未配置")
			return
		}
		a.logger.Error("identify plant failed", zap.Error(err))
		respondError(c, http.StatusBadGateway, "识别服务暂不可用")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) renderPlant(view service.PlantView) service.PlantView {
	if strings.TrimSpace(view.CareNotes) != "" {
		if rendered, err := renderMarkdown(view.CareNotes); err == nil {
			view.CareNotesHTML = rendered
		}
	}
	return view
}

func (a *API) withCareNotesHTML(views []service.PlantView) []service.PlantView {
	for i := range views {
		views[i] = a.renderPlant(views[i])
	}
	return views
}
