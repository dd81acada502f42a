package router

import (
	"github.com/gardenlog/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// Options 控制路由装配
type Options struct {
	SessionSecret string
	UploadDir     string
	UploadURLPath string
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	secret := opts.SessionSecret
	if secret == "" {
		secret = "gardenlog-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("gardenlog_session", store))

	// 上传文件的静态服务
	uploadDir := opts.UploadDir
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	uploadURL := opts.UploadURLPath
	if uploadURL == "" {
		uploadURL = "/uploads"
	}
	r.Static(uploadURL, uploadDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	apiGroup := r.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		{
			auth.POST("/register", api.Register)
			auth.POST("/login", api.Login)
			auth.POST("/logout", api.Logout)
		}

		// 需要认证的接口
		authed := apiGroup.Group("")
		authed.Use(api.AuthRequired())
		{
			plants := authed.Group("/plants")
			{
				plants.GET("", api.GetPlants)
				plants.POST("", api.CreatePlant)
				plants.GET("/watch", api.WatchPlants)
				plants.POST("/identify", api.IdentifyPlant)
				plants.GET("/:uid", api.GetPlant)
				plants.PUT("/:uid", api.UpdatePlant)
				plants.DELETE("/:uid", api.DeletePlant)
				plants.POST("/:uid/water", api.WaterPlant)
			}

			feed := authed.Group("/feed")
			{
				feed.GET("", api.GetFeed)
				feed.POST("/:id/like", api.LikeActivity)
				feed.DELETE("/:id/like", api.UnlikeActivity)
			}

			friends := authed.Group("/friends")
			{
				friends.GET("", api.GetFriends)
				friends.GET("/requests", api.GetFriendRequests)
				friends.POST("/requests", api.SendFriendRequest)
				friends.POST("/requests/:id/accept", api.AcceptFriendRequest)
				friends.POST("/requests/:id/decline", api.DeclineFriendRequest)
			}

			authed.GET("/achievements", api.GetAchievements)

			profile := authed.Group("/profile")
			{
				profile.GET("", api.GetProfile)
				profile.PUT("/push-token", api.SetPushToken)
				profile.DELETE("/push-token", api.ClearPushToken)
			}

			system := authed.Group("/system")
			{
				system.GET("/settings", api.GetSystemSettings)
				system.PUT("/settings", api.UpdateSystemSettings)
			}

			authed.POST("/uploads", api.UploadImage)
		}
	}

	return r
}
