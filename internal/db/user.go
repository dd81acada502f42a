package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型
// Pseudo 为全局唯一的昵称，注册时校验冲突
// PushToken 存储设备推送令牌，为空表示未绑定设备
type User struct {
	gorm.Model
	Pseudo    string `gorm:"size:60;unique;not null"`
	Password  string `gorm:"not null"`
	PushToken string `gorm:"size:255"`
}

// EnsureUser 存在性检查：若提供的昵称与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的用户。
// 主要供种子脚本与本地演示使用。
func EnsureUser(pseudo, password string) error {
	trimmedPseudo := strings.TrimSpace(pseudo)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedPseudo == "" || trimmedPassword == "" {
		return nil
	}

	if DB == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := DB.Where("pseudo = ?", trimmedPseudo).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return DB.Create(&User{Pseudo: trimmedPseudo, Password: string(hashed)}).Error
	}

	return nil
}
