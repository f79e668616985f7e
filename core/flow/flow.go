package flow

import (
	"math"

	"qrate/cache"
	"qrate/model"
)

// 转场质量等级
const (
	TransitionPerfect     = "perfect"
	TransitionSeamless    = "seamless"
	TransitionGood        = "good"
	TransitionAcceptable  = "acceptable"
	TransitionChallenging = "challenging"
)

// 分值构成：20 分基础 + 40 分节奏 + 30 分能量 + 10 分调性
const (
	baseCompat = 20.0
	keyBonus   = 10.0
)

// Compatibility 两曲目间的混音兼容性
type Compatibility struct {
	Score       float64     `json:"score"` // 0-100
	TempoScore  float64     `json:"tempoScore"`
	EnergyScore float64     `json:"energyScore"`
	KeyBonus    float64     `json:"keyBonus"`
	KeyRelation KeyRelation `json:"keyRelation"`
	Transition  string      `json:"transition"`
}

// Engine 混音兼容性引擎
// 调性关系查询经过有界缓存，24x24 的组合空间反复命中
type Engine struct {
	pairs *cache.Bounded
}

// NewEngine 创建兼容性引擎
func NewEngine(pairs *cache.Bounded) *Engine {
	if pairs == nil {
		pairs = cache.NewBounded(576) // 24x24 调性组合全集
	}
	return &Engine{pairs: pairs}
}

// tempoScore 节奏兼容分，满分 40
func tempoScore(bpmDiff float64) float64 {
	switch {
	case bpmDiff <= 5:
		return 40
	case bpmDiff <= 10:
		return 35
	case bpmDiff <= 15:
		return 30
	case bpmDiff <= 25:
		return 25
	default:
		return math.Max(0, 30-(bpmDiff-15))
	}
}

// energyScore 能量兼容分，满分 30
func energyScore(energyDiff float64) float64 {
	switch {
	case energyDiff <= 10:
		return 30
	case energyDiff <= 20:
		return 25
	case energyDiff <= 30:
		return 20
	default:
		return math.Max(0, 20-(energyDiff-20))
	}
}

// transitionQuality 转场质量只看 BPM 差与能量差，与总分无关
func transitionQuality(bpmDiff, energyDiff float64) string {
	switch {
	case bpmDiff <= 5 && energyDiff <= 10:
		return TransitionPerfect
	case bpmDiff <= 10 && energyDiff <= 20:
		return TransitionSeamless
	case bpmDiff <= 15:
		return TransitionGood
	case bpmDiff <= 25:
		return TransitionAcceptable
	default:
		return TransitionChallenging
	}
}

// KeyRelationFor 查询两曲目的调性关系（经缓存）
func (e *Engine) KeyRelationFor(a, b *model.AudioFeatures) KeyRelation {
	keyA, okA := CamelotFromPitch(a.Key, a.Mode)
	keyB, okB := CamelotFromPitch(b.Key, b.Mode)
	if !okA || !okB {
		return RelationNone
	}

	cacheKey := keyA + "|" + keyB
	if cached, ok := e.pairs.Get(cacheKey); ok {
		return cached.(KeyRelation)
	}

	relation := relate(keyA, keyB)
	e.pairs.Set(cacheKey, relation)
	return relation
}

// Score 计算候选曲目相对当前播放曲目的兼容性
func (e *Engine) Score(playing, candidate *model.AudioFeatures) Compatibility {
	bpmDiff := math.Abs(playing.Tempo - candidate.Tempo)
	energyDiff := math.Abs(playing.Energy - candidate.Energy)

	tempo := tempoScore(bpmDiff)
	energy := energyScore(energyDiff)

	relation := e.KeyRelationFor(playing, candidate)
	var bonus float64
	if relation != RelationNone {
		bonus = keyBonus
	}

	total := baseCompat + tempo + energy + bonus
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	return Compatibility{
		Score:       total,
		TempoScore:  tempo,
		EnergyScore: energy,
		KeyBonus:    bonus,
		KeyRelation: relation,
		Transition:  transitionQuality(bpmDiff, energyDiff),
	}
}

// RescorePool 当前播放曲目变化后对排名池整体重算兼容性
// 无音频特征的候选原样透传，兼容分保持为空而非补零
func (e *Engine) RescorePool(playing *model.AudioFeatures, pool []model.AggregatedTrack) []model.AggregatedTrack {
	rescored := make([]model.AggregatedTrack, len(pool))
	for i, track := range pool {
		rescored[i] = track
		rescored[i].FlowScore = nil
		rescored[i].Transition = ""

		if playing == nil || track.Features == nil {
			continue
		}
		compat := e.Score(playing, track.Features)
		scoreVal := compat.Score
		rescored[i].FlowScore = &scoreVal
		rescored[i].Transition = compat.Transition
	}
	return rescored
}
