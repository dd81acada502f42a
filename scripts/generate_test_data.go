package main

import (
	"fmt"
	"log"

	"github.com/gardenlog/internal/config"
	"github.com/gardenlog/internal/db"
	"github.com/gardenlog/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// 测试数据生成器
func main() {
	// 初始化数据库
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	users := createTestUsers()
	createTestPlants(users)
	createTestFriendship(users)

	fmt.Println("测试数据生成完成！")
	fmt.Println("用户: alice / bob (密码: garden123)")
}

// 创建测试用户
func createTestUsers() []db.User {
	var count int64
	db.DB.Model(&db.User{}).Count(&count)
	if count > 0 {
		fmt.Println("用户已存在，跳过创建")
		var existing []db.User
		db.DB.Limit(2).Find(&existing)
		return existing
	}

	hashed, _ := bcrypt.GenerateFromPassword([]byte("garden123"), bcrypt.DefaultCost)
	users := []db.User{
		{Pseudo: "alice", Password: string(hashed)},
		{Pseudo: "bob", Password: string(hashed)},
	}
	for i := range users {
		db.DB.Create(&users[i])
	}
	fmt.Println("已创建用户 alice、bob")
	return users
}

// 创建测试植物并补上动态
func createTestPlants(users []db.User) {
	if len(users) == 0 {
		return
	}

	activity := service.NewActivityService(db.DB)
	achievements := service.NewAchievementService(db.DB, activity)
	plants := service.NewPlantService(db.DB, activity, achievements)

	samples := []service.PlantInput{
		{Name: "龟背竹", LatinName: "Monstera deliciosa", Location: "indoor", WateringFrequency: 7, Recognized: true,
			Description: "Loves bright, indirect light and a weekly drink.", CareNotes: "**每周浇水**，避免阳光直射"},
		{Name: "绿萝", LatinName: "Epipremnum aureum", Location: "indoor", WateringFrequency: 5, Recognized: true,
			Description: "Nearly indestructible trailing vine."},
		{Name: "薰衣草", LatinName: "Lavandula", Location: "outdoor", WateringFrequency: 10, Recognized: true,
			Description: "Prefers full sun and dry feet."},
	}

	owner := users[0]
	for _, input := range samples {
		if _, err := plants.Create(owner.ID, owner.Pseudo, input); err != nil {
			log.Printf("创建植物失败: %v", err)
		}
	}

	if len(users) > 1 {
		if _, err := plants.Create(users[1].ID, users[1].Pseudo, service.PlantInput{
			Name: "多肉", Location: "indoor", WateringFrequency: 14,
		}); err != nil {
			log.Printf("创建植物失败: %v", err)
		}
	}
	fmt.Println("已创建示例植物")
}

// 建立好友关系并各发一条动态
func createTestFriendship(users []db.User) {
	if len(users) < 2 {
		return
	}

	activity := service.NewActivityService(db.DB)
	achievements := service.NewAchievementService(db.DB, activity)
	friends := service.NewFriendService(db.DB, activity, achievements, nil)

	if err := friends.SendRequest(users[0].ID, users[1].Pseudo); err != nil {
		log.Printf("发送好友请求失败: %v", err)
		return
	}

	requests, err := friends.ListRequests(users[1].ID)
	if err != nil || len(requests) == 0 {
		log.Printf("查询好友请求失败: %v", err)
		return
	}
	if err := friends.Accept(users[1].ID, requests[0].ID); err != nil {
		log.Printf("接受好友请求失败: %v", err)
		return
	}
	fmt.Println("alice 与 bob 已互为好友")
}
