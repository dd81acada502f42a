package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gardenlog/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrPseudoTaken 在注册昵称已被占用时返回
	ErrPseudoTaken = errors.New("pseudo already taken")
	// ErrPseudoRequired 在昵称为空时返回
	ErrPseudoRequired = errors.New("pseudo is required")
	// ErrPasswordTooShort 在密码长度不足时返回
	ErrPasswordTooShort = errors.New("password too short")
	// ErrInvalidCredentials 在昵称或密码不匹配时返回
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const minPasswordLength = 6

// ProfileService 负责账号注册、登录校验与推送令牌的维护
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService 构造 ProfileService
func NewProfileService(gdb *gorm.DB) *ProfileService {
	return &ProfileService{db: gdb}
}

// Register 创建新账号，密码以 bcrypt 哈希存储
func (s *ProfileService) Register(pseudo, password string) (db.User, error) {
	trimmed := strings.TrimSpace(pseudo)
	if trimmed == "" {
		return db.User{}, ErrPseudoRequired
	}
	if len(password) < minPasswordLength {
		return db.User{}, ErrPasswordTooShort
	}

	var existing db.User
	err := s.db.Where("pseudo = ?", trimmed).First(&existing).Error
	if err == nil {
		return db.User{}, ErrPseudoTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return db.User{}, fmt.Errorf("check pseudo: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return db.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{Pseudo: trimmed, Password: string(hashed)}
	if err := s.db.Create(&user).Error; err != nil {
		return db.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate 校验昵称与密码，成功返回用户
func (s *ProfileService) Authenticate(pseudo, password string) (db.User, error) {
	var user db.User
	err := s.db.Where("pseudo = ?", strings.TrimSpace(pseudo)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return db.User{}, fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return db.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Get 按 ID 返回用户
func (s *ProfileService) Get(userID uint) (db.User, error) {
	var user db.User
	err := s.db.First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.User{}, ErrUserNotFound
	}
	if err != nil {
		return db.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// SetPushToken 绑定设备推送令牌，空令牌视为解绑
func (s *ProfileService) SetPushToken(userID uint, token string) error {
	trimmed := strings.TrimSpace(token)
	if err := s.db.Model(&db.User{}).Where("id = ?", userID).
		Update("push_token", trimmed).Error; err != nil {
		return fmt.Errorf("set push token: %w", err)
	}
	return nil
}

// ClearPushToken 解绑设备推送令牌
func (s *ProfileService) ClearPushToken(userID uint) error {
	return s.SetPushToken(userID, "")
}
