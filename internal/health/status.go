package health

import "time"

// Status 表示植物当前的健康状态，存储与 JSON 序列化均使用字符串值。
type Status string

const (
	StatusUnknown             Status = "UNKNOWN"
	StatusHealthy             Status = "HEALTHY"
	StatusSlightlyDry         Status = "SLIGHTLY_DRY"
	StatusNeedsWater          Status = "NEEDS_WATER"
	StatusSeverelyDry         Status = "SEVERELY_DRY"
	StatusOverwatered         Status = "OVERWATERED"
	StatusSeverelyOverwatered Status = "SEVERELY_OVERWATERED"
)

// 干湿状态判定阈值（占一个浇水周期的百分比）
// 与状态描述文案保持一致，调整时需同步修改
const (
	severelyOverwateredMaxThreshold = 30.0
	overwateredMaxThreshold         = 70.0
	healthyMaxThreshold             = 70.0
	slightlyDryMaxThreshold         = 100.0
	needsWaterMaxThreshold          = 130.0

	// 过湿状态随干燥度线性衰减，到达该阈值后完全消失
	overwaterRecoveryEndThreshold = 30.0
	// 有效过湿严重度超过该值时判定为严重过湿
	overwaterSeverityLevelThreshold = 0.5
)

const hoursPerDay = 24

// ParseStatus 将存储的字符串还原为 Status，无法识别时返回 UNKNOWN。
func ParseStatus(raw string) Status {
	switch Status(raw) {
	case StatusHealthy, StatusSlightlyDry, StatusNeedsWater, StatusSeverelyDry,
		StatusOverwatered, StatusSeverelyOverwatered:
		return Status(raw)
	default:
		return StatusUnknown
	}
}

// IsHealthy 判断状态是否属于健康区间（健康或轻微干燥）。
// 用于 healthySince 与健康连胜的统计口径。
func (s Status) IsHealthy() bool {
	return s == StatusHealthy || s == StatusSlightlyDry
}

// NeedsAttention 判断状态是否需要提醒用户浇水。
func (s Status) NeedsAttention() bool {
	return s == StatusNeedsWater || s == StatusSeverelyDry
}

// Description 返回状态对应的说明文案。
func (s Status) Description() string {
	switch s {
	case StatusHealthy:
		return "Your plant is thriving, keep it up!"
	case StatusSlightlyDry:
		return "The soil is starting to dry out, a watering soon would help."
	case StatusNeedsWater:
		return "Your plant needs water now."
	case StatusSeverelyDry:
		return "Your plant is severely dry and needs immediate watering to recover!"
	case StatusOverwatered:
		return "Your plant got a bit too much water, let the soil dry before watering again."
	case StatusSeverelyOverwatered:
		return "Your plant is drowning! Hold off on watering for a while."
	default:
		return "We don't know how this plant is doing yet."
	}
}

// ComputeStatus 根据最近两次浇水时间与浇水周期推导健康状态。
// 纯函数：不读时钟、不做 IO，对任意输入都返回一个状态。
//   - drynessPct = 距上次浇水的天数 / 周期 * 100
//   - 过湿严重度由前后两次浇水的间隔推出，并随干燥度线性衰减
//   - 有效过湿严重度 > 0 时返回过湿状态，否则落回干燥阶梯
//
// lastWatered 为零值或周期非正时返回 UNKNOWN；时钟回拨按零耗时处理。
func ComputeStatus(now, lastWatered, previousLastWatered time.Time, wateringFrequencyDays int) Status {
	if wateringFrequencyDays <= 0 || lastWatered.IsZero() {
		return StatusUnknown
	}

	daysSince := daysBetween(lastWatered, now)
	if daysSince < 0 {
		daysSince = 0
	}
	drynessPct := daysSince / float64(wateringFrequencyDays) * 100.0

	startingSeverity := 0.0
	if !previousLastWatered.IsZero() {
		intervalPct := daysBetween(previousLastWatered, lastWatered) / float64(wateringFrequencyDays) * 100.0
		switch {
		case intervalPct < severelyOverwateredMaxThreshold:
			startingSeverity = 1.0
		case intervalPct < overwateredMaxThreshold:
			startingSeverity = 1.0 - relativePercentage(severelyOverwateredMaxThreshold, overwateredMaxThreshold, intervalPct)
		}
	}

	decay := 1.0 - drynessPct/overwaterRecoveryEndThreshold
	if decay < 0 {
		decay = 0
	} else if decay > 1 {
		decay = 1
	}

	if effective := startingSeverity * decay; effective > 0 {
		if effective > overwaterSeverityLevelThreshold {
			return StatusSeverelyOverwatered
		}
		return StatusOverwatered
	}

	switch {
	case drynessPct <= healthyMaxThreshold:
		return StatusHealthy
	case drynessPct <= slightlyDryMaxThreshold:
		return StatusSlightlyDry
	case drynessPct <= needsWaterMaxThreshold:
		return StatusNeedsWater
	default:
		return StatusSeverelyDry
	}
}

func daysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / hoursPerDay
}

// relativePercentage 把 z 在区间 [x,y] 内归一化到 [0,1]。
func relativePercentage(x, y, z float64) float64 {
	if y == x {
		return 0
	}
	if z < x {
		z = x
	} else if z > y {
		z = y
	}
	return (z - x) / (y - x)
}
