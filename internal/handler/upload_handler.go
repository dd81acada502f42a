package handler

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
)

// 列表页缩略图的最长边
const thumbnailMaxEdge = 320

// UploadImage 处理植物照片上传，保存原图并生成列表用缩略图
func (a *API) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的图片")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(c, http.StatusBadRequest, "只允许上传图片文件")
		return
	}

	uploadDir := a.uploadDir
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		a.logger.Error("create upload dir failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "创建上传目录失败")
		return
	}

	// 生成唯一文件名
	ext := filepath.Ext(file.Filename)
	newFilename := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	filePath := filepath.Join(uploadDir, newFilename)

	if err := c.SaveUploadedFile(file, filePath); err != nil {
		a.logger.Error("save upload failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "保存文件失败")
		return
	}

	baseURL := a.uploadURL
	if baseURL == "" {
		baseURL = "/uploads"
	}
	fileURL := fmt.Sprintf("%s/%s", strings.TrimRight(baseURL, "/"), newFilename)

	// 缩略图失败不阻塞上传，客户端回退使用原图
	thumbURL := fileURL
	if thumbName, err := a.writeThumbnail(filePath, uploadDir, newFilename); err != nil {
		a.logger.Warn("generate thumbnail failed", zap.String("file", newFilename), zap.Error(err))
	} else {
		thumbURL = fmt.Sprintf("%s/%s", strings.TrimRight(baseURL, "/"), thumbName)
	}

	c.JSON(http.StatusOK, gin.H{
		"url":           fileURL,
		"thumbnail_url": thumbURL,
	})
}

// writeThumbnail 等比缩放原图并保存为 JPEG 缩略图
func (a *API) writeThumbnail(srcPath, dir, filename string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer src.Close()

	decoded, _, err := image.Decode(src)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bounds := decoded.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}

	scale := float64(thumbnailMaxEdge) / float64(max(width, height))
	if scale > 1 {
		scale = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), decoded, bounds, xdraw.Over, nil)

	thumbName := strings.TrimSuffix(filename, filepath.Ext(filename)) + "_thumb.jpg"
	out, err := os.Create(filepath.Join(dir, thumbName))
	if err != nil {
		return "", fmt.Errorf("create thumbnail: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return thumbName, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
