package score

import (
	"math"

	"qrate/model"
)

// DefaultRankDecayK 榜单名次曲线的默认指数系数
const DefaultRankDecayK = 0.05

// 时间段新鲜度乘数表，未知时间段按 1.0 处理
var recencyTable = map[model.Timeframe]float64{
	model.TimeframeShort:  1.5,
	model.TimeframeMedium: 1.2,
	model.TimeframeLong:   1.0,
}

// ClampRank 将名次限制在 [1,100]
func ClampRank(rank int) int {
	if rank < 1 {
		return 1
	}
	if rank > 100 {
		return 100
	}
	return rank
}

// BaseRankScore 榜单名次基础分：e^(-k·(rank-1))
// 单调递减，rank=1 得 1.0，rank=100 约 0.007
func BaseRankScore(rank int, k float64) float64 {
	rank = ClampRank(rank)
	return math.Exp(-k * float64(rank-1))
}

// RecencyMultiplier 时间段新鲜度乘数
func RecencyMultiplier(timeframe model.Timeframe) float64 {
	if m, ok := recencyTable[timeframe]; ok {
		return m
	}
	return 1.0
}

// SavedBonus 收藏加成
func SavedBonus(isSaved bool) float64 {
	if isSaved {
		return 1.1
	}
	return 1.0
}

// PresenceDecay 按小时的在场衰减：rate^hours，支持非整数小时
// rate 取值 (0,1]，衰减只会削弱不会放大
func PresenceDecay(rate, hours float64) float64 {
	if hours < 0 {
		hours = 0
	}
	return math.Pow(rate, hours)
}
