package health

import "fmt"

// AchievementType 表示成就类别。
type AchievementType string

const (
	AchievementPlantsNumber  AchievementType = "PLANTS_NUMBER"
	AchievementFriendsNumber AchievementType = "FRIENDS_NUMBER"
	AchievementHealthyStreak AchievementType = "HEALTHY_STREAK"
)

// MaxAchievementLevel 为成就等级上限。
const MaxAchievementLevel = 10

// thresholdCount 等于 MaxAchievementLevel-1：每个 2..10 级各一个边界。
const thresholdCount = MaxAchievementLevel - 1

// achievementThresholds 存放各成就类别的升级边界，升序排列。
var achievementThresholds = map[AchievementType][]int{
	AchievementPlantsNumber:  {1, 3, 5, 10, 15, 20, 30, 40, 50},
	AchievementFriendsNumber: {1, 3, 5, 10, 15, 20, 25, 30, 40},
	AchievementHealthyStreak: {1, 3, 5, 7, 10, 20, 30, 40, 50},
}

func init() {
	// 阈值表错误属于构造期缺陷，启动即失败
	for typ, thresholds := range achievementThresholds {
		if len(thresholds) != thresholdCount {
			panic(fmt.Sprintf("health: achievement %s must have %d thresholds, has %d", typ, thresholdCount, len(thresholds)))
		}
		for i := 1; i < len(thresholds); i++ {
			if thresholds[i] <= thresholds[i-1] {
				panic(fmt.Sprintf("health: achievement %s thresholds must be strictly ascending", typ))
			}
		}
	}
}

// AchievementTypes 返回全部成就类别，顺序固定。
func AchievementTypes() []AchievementType {
	return []AchievementType{AchievementPlantsNumber, AchievementFriendsNumber, AchievementHealthyStreak}
}

// ParseAchievementType 校验并还原成就类别，未知类别返回 false。
func ParseAchievementType(raw string) (AchievementType, bool) {
	typ := AchievementType(raw)
	_, ok := achievementThresholds[typ]
	return typ, ok
}

// ComputeLevel 把单调递增的进度值映射为 1..10 的等级：
// 找到第一个严格大于 value 的阈值，等级为该阈值的序号；
// 所有阈值都不大于 value 时返回最高级。纯函数，永不失败。
func ComputeLevel(typ AchievementType, value int) int {
	return computeLevel(achievementThresholds[typ], value)
}

func computeLevel(thresholds []int, value int) int {
	for i, t := range thresholds {
		if value < t {
			return 1 + i
		}
	}
	return MaxAchievementLevel
}
