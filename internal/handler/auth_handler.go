package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gardenlog/internal/db"
	"github.com/gardenlog/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	sessionUserIDKey = "user_id"
	sessionPseudoKey = "pseudo"

	contextUserIDKey = "__auth_user_id"
	contextPseudoKey = "__auth_pseudo"
)

type credentialsPayload struct {
	Pseudo   string `json:"pseudo"`
	Password string `json:"password"`
}

type userPayload struct {
	ID     uint   `json:"id"`
	Pseudo string `json:"pseudo"`
}

// Register 处理注册请求，成功后直接登录并返回访问令牌
func (a *API) Register(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "请求参数格式错误") {
		return
	}

	user, err := a.profiles.Register(payload.Pseudo, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPseudoTaken):
			respondError(c, http.StatusConflict, "该昵称已被占用")
		case errors.Is(err, service.ErrPseudoRequired):
			respondError(c, http.StatusBadRequest, "昵称不能为空")
		case errors.Is(err, service.ErrPasswordTooShort):
			respondError(c, http.StatusBadRequest, "密码长度不足")
		default:
			a.logger.Error("register failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "注册失败")
		}
		return
	}

	token, err := a.issueAccessToken(user)
	if err != nil {
		a.logger.Error("issue token failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "注册失败")
		return
	}

	a.startSession(c, user)
	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  userPayload{ID: user.ID, Pseudo: user.Pseudo},
	})
}

// Login 处理登录请求，同时建立会话并签发访问令牌
func (a *API) Login(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "请求参数格式错误") {
		return
	}

	user, err := a.profiles.Authenticate(payload.Pseudo, payload.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "昵称或密码错误")
			return
		}
		a.logger.Error("login failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "登录失败")
		return
	}

	token, err := a.issueAccessToken(user)
	if err != nil {
		a.logger.Error("issue token failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "登录失败")
		return
	}

	a.startSession(c, user)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userPayload{ID: user.ID, Pseudo: user.Pseudo},
	})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.JSON(http.StatusOK, gin.H{"message": "已退出登录"})
}

func (a *API) startSession(c *gin.Context, user db.User) {
	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionPseudoKey, user.Pseudo)
	if err := session.Save(); err != nil {
		a.logger.Warn("save session failed", zap.Error(err))
	}
}

// issueAccessToken 为移动端签发 HS256 访问令牌
func (a *API) issueAccessToken(user db.User) (string, error) {
	ttl := a.tokenTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":    strconv.FormatUint(uint64(user.ID), 10),
		"pseudo": user.Pseudo,
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.tokenSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *API) parseAccessToken(raw string) (uint, string, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.tokenSecret, nil
	})
	if err != nil {
		return 0, "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", errors.New("invalid token claims")
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return 0, "", fmt.Errorf("token subject: %w", err)
	}
	userID, err := strconv.ParseUint(subject, 10, 32)
	if err != nil {
		return 0, "", fmt.Errorf("token subject: %w", err)
	}

	pseudo, _ := claims["pseudo"].(string)
	return uint(userID), pseudo, nil
}

// AuthRequired 认证中间件：优先识别会话，其次是 Bearer 令牌
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if userID, ok := session.Get(sessionUserIDKey).(uint); ok && userID != 0 {
			pseudo, _ := session.Get(sessionPseudoKey).(string)
			c.Set(contextUserIDKey, userID)
			c.Set(contextPseudoKey, pseudo)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if userID, pseudo, err := a.parseAccessToken(raw); err == nil {
				if pseudo == "" {
					if user, err := a.profiles.Get(userID); err == nil {
						pseudo = user.Pseudo
					}
				}
				c.Set(contextUserIDKey, userID)
				c.Set(contextPseudoKey, pseudo)
				c.Next()
				return
			}
		}

		respondError(c, http.StatusUnauthorized, "请先登录")
		c.Abort()
	}
}

// currentUser 返回已认证请求的用户 ID 与昵称
func currentUser(c *gin.Context) (uint, string) {
	userID, _ := c.Get(contextUserIDKey)
	pseudo, _ := c.Get(contextPseudoKey)
	id, _ := userID.(uint)
	name, _ := pseudo.(string)
	return id, name
}
