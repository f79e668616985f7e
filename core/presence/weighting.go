package presence

import (
	"time"

	"qrate/core/score"
	"qrate/model"
)

// 默认衰减参数
const (
	DefaultPresentDecay    = 0.90
	DefaultAbsentDecay     = 0.40
	DefaultGeofenceRadiusM = 100.0
	DefaultStaleness       = 15 * time.Minute
)

// Weighting 上下文加权结果：乘数加上完整的审计信息
type Weighting struct {
	Multiplier  float64
	CohortIndex int
	Status      model.PresenceStatus
	Hours       float64
	Rate        float64
}

// Engine 上下文加权引擎
// 每位来宾的加权值按需重算，不跨调用缓存，
// 是 来宾状态 + 活动配置 + 当前时间 的纯函数
type Engine struct {
	staleness time.Duration
}

// NewEngine 创建加权引擎
func NewEngine(staleness time.Duration) *Engine {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	return &Engine{staleness: staleness}
}

// ResolveStatus 判定来宾在场状态
// 小型活动一律视为在场；未启用围栏、无坐标或位置过期时为未知；
// 否则按大圆距离与围栏半径比较
func (e *Engine) ResolveStatus(event *model.EventConfig, guest *model.GuestArrival, now time.Time) model.PresenceStatus {
	if event.EventSize == model.EventSizeSmall {
		return model.PresencePresent
	}
	if !event.GeofenceEnabled {
		return model.PresenceUnknown
	}
	if guest.Latitude == nil || guest.Longitude == nil || guest.LocatedAt == nil {
		return model.PresenceUnknown
	}
	if now.Sub(*guest.LocatedAt) > e.staleness {
		return model.PresenceUnknown
	}

	radius := event.GeofenceRadiusM
	if radius <= 0 {
		radius = DefaultGeofenceRadiusM
	}
	dist := HaversineM(*guest.Latitude, *guest.Longitude, event.GeofenceLat, event.GeofenceLon)
	if dist <= radius {
		return model.PresencePresent
	}
	return model.PresenceAbsent
}

// selectRate 按在场状态选择衰减率
// 小型活动或配置了温和衰减时全员使用在场衰减率（状态也按在场上报）
func (e *Engine) selectRate(event *model.EventConfig, status model.PresenceStatus) (float64, model.PresenceStatus) {
	present := event.PresentDecay
	if present <= 0 || present > 1 {
		present = DefaultPresentDecay
	}
	absent := event.AbsentDecay
	if absent <= 0 || absent > 1 {
		absent = DefaultAbsentDecay
	}

	if event.EventSize == model.EventSizeSmall || event.GentleDecayAll {
		return present, model.PresencePresent
	}

	switch status {
	case model.PresencePresent:
		return present, status
	case model.PresenceAbsent:
		return absent, status
	default:
		// 状态未知时取两者的算术平均
		return (present + absent) / 2, status
	}
}

// Weigh 计算来宾当前的时间衰减乘数
func (e *Engine) Weigh(event *model.EventConfig, guest *model.GuestArrival, now time.Time) Weighting {
	hours := now.Sub(guest.ArrivalTime).Hours()
	if hours < 0 {
		hours = 0
	}

	status := e.ResolveStatus(event, guest, now)
	rate, status := e.selectRate(event, status)

	return Weighting{
		Multiplier:  score.PresenceDecay(rate, hours),
		CohortIndex: model.CohortFor(event.StartTime, guest.ArrivalTime),
		Status:      status,
		Hours:       hours,
		Rate:        rate,
	}
}

// Apply 将衰减乘数应用到基础分上，weightedPTS 不会超过 basePTS
func (w Weighting) Apply(basePTS float64) float64 {
	return basePTS * w.Multiplier
}

// Info 导出审计信息
func (w Weighting) Info() model.DecayInfo {
	return model.DecayInfo{
		CohortIndex: w.CohortIndex,
		Status:      w.Status,
		Hours:       w.Hours,
		Rate:        w.Rate,
		Multiplier:  w.Multiplier,
	}
}
