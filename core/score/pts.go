package score

import (
	"sort"

	"qrate/logger"
	"qrate/model"
)

// PTSBreakdown 个人口味分的计算依据
type PTSBreakdown struct {
	Rank      int             `json:"rank"`
	Timeframe model.Timeframe `json:"timeframe"`
	IsSaved   bool            `json:"isSaved"`
}

// PTSResult 单曲个人口味分，源数据变化时整体重算而非就地修改
type PTSResult struct {
	TrackID           string       `json:"trackId"`
	UserID            string       `json:"userId"`
	BaseRankScore     float64      `json:"baseRankScore"`
	RecencyMultiplier float64      `json:"recencyMultiplier"`
	SavedBonus        float64      `json:"savedBonus"`
	FinalPTS          float64      `json:"finalPts"`
	Breakdown         PTSBreakdown `json:"breakdown"`
}

// Engine 个人口味分计算引擎，纯计算无状态，可并发调用
type Engine struct {
	rankDecayK float64
}

// NewEngine 创建 PTS 引擎
func NewEngine(rankDecayK float64) *Engine {
	if rankDecayK <= 0 {
		rankDecayK = DefaultRankDecayK
	}
	return &Engine{rankDecayK: rankDecayK}
}

// CalculatePTS 计算单曲个人口味分
// 对任意名次都有定义：越界名次收敛到 [1,100] 并告警，不报错
func (e *Engine) CalculatePTS(userID string, track model.TrackMetadata) PTSResult {
	rank := track.Rank
	if rank < 1 || rank > 100 {
		logger.Warn("曲目名次越界，已收敛",
			logger.String("trackId", track.ID),
			logger.Int("rank", rank))
		rank = ClampRank(rank)
	}

	base := BaseRankScore(rank, e.rankDecayK)
	recency := RecencyMultiplier(track.Timeframe)
	saved := SavedBonus(track.IsSaved)

	return PTSResult{
		TrackID:           track.ID,
		UserID:            userID,
		BaseRankScore:     base,
		RecencyMultiplier: recency,
		SavedBonus:        saved,
		FinalPTS:          base * recency * saved,
		Breakdown: PTSBreakdown{
			Rank:      rank,
			Timeframe: track.Timeframe,
			IsSaved:   track.IsSaved,
		},
	}
}

// CalculateBatchPTS 批量计算并按最终分降序排列
// 稳定排序：同分曲目保持输入顺序
func (e *Engine) CalculateBatchPTS(userID string, tracks []model.TrackMetadata) []PTSResult {
	results := make([]PTSResult, 0, len(tracks))
	for _, track := range tracks {
		results = append(results, e.CalculatePTS(userID, track))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalPTS > results[j].FinalPTS
	})
	return results
}
