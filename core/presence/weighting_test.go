package presence

import (
	"testing"
	"time"

	"qrate/model"

	"github.com/stretchr/testify/assert"
)

func ptrF(v float64) *float64     { return &v }
func ptrT(v time.Time) *time.Time { return &v }

func largeEvent(start time.Time) *model.EventConfig {
	return &model.EventConfig{
		ID:              "evt-1",
		StartTime:       start,
		EventSize:       model.EventSizeLarge,
		GeofenceEnabled: true,
		GeofenceLat:     31.2304,
		GeofenceLon:     121.4737,
		GeofenceRadiusM: 100,
		PresentDecay:    0.9,
		AbsentDecay:     0.4,
	}
}

func TestResolveStatusSmallEventAlwaysPresent(t *testing.T) {
	engine := NewEngine(DefaultStaleness)
	now := time.Now().UTC()

	event := &model.EventConfig{EventSize: model.EventSizeSmall, StartTime: now}
	guest := &model.GuestArrival{ArrivalTime: now}

	assert.Equal(t, model.PresencePresent, engine.ResolveStatus(event, guest, now))
}

func TestResolveStatusNoGeofence(t *testing.T) {
	engine := NewEngine(DefaultStaleness)
	now := time.Now().UTC()

	event := largeEvent(now)
	event.GeofenceEnabled = false
	guest := &model.GuestArrival{ArrivalTime: now}

	assert.Equal(t, model.PresenceUnknown, engine.ResolveStatus(event, guest, now))
}

func TestResolveStatusByDistance(t *testing.T) {
	engine := NewEngine(DefaultStaleness)
	now := time.Now().UTC()
	event := largeEvent(now)

	// 围栏圆心内
	inside := &model.GuestArrival{
		ArrivalTime: now,
		Latitude:    ptrF(event.GeofenceLat),
		Longitude:   ptrF(event.GeofenceLon),
		LocatedAt:   ptrT(now),
	}
	assert.Equal(t, model.PresencePresent, engine.ResolveStatus(event, inside, now))

	// 约 1.1 公里外
	outside := &model.GuestArrival{
		ArrivalTime: now,
		Latitude:    ptrF(event.GeofenceLat + 0.01),
		Longitude:   ptrF(event.GeofenceLon),
		LocatedAt:   ptrT(now),
	}
	assert.Equal(t, model.PresenceAbsent, engine.ResolveStatus(event, outside, now))
}

func TestResolveStatusStaleOrMissingLocation(t *testing.T) {
	engine := NewEngine(15 * time.Minute)
	now := time.Now().UTC()
	event := largeEvent(now)

	// 无坐标
	noCoords := &model.GuestArrival{ArrivalTime: now}
	assert.Equal(t, model.PresenceUnknown, engine.ResolveStatus(event, noCoords, now))

	// 位置过期
	stale := &model.GuestArrival{
		ArrivalTime: now,
		Latitude:    ptrF(event.GeofenceLat),
		Longitude:   ptrF(event.GeofenceLon),
		LocatedAt:   ptrT(now.Add(-20 * time.Minute)),
	}
	assert.Equal(t, model.PresenceUnknown, engine.ResolveStatus(event, stale, now))
}

func TestWeighPresentDecay(t *testing.T) {
	engine := NewEngine(DefaultStaleness)
	now := time.Now().UTC()
	event := largeEvent(now.Add(-3 * time.Hour))

	// 到场 2 小时且在围栏内：0.9^2
	guest := &model.GuestArrival{
		ArrivalTime: now.Add(-2 * time.Hour),
		Latitude:    ptrF(event.GeofenceLat),
		Longitude:   ptrF(event.GeofenceLon),
		LocatedAt:   ptrT(now),
	}
	w := engine.Weigh(event, guest, now)
	assert.Equal(t, model.PresencePresent, w.Status)
	assert.InDelta(t, 0.81, w.Multiplier, 1e-9)
	assert.InDelta(t, 2.0, w.Hours, 1e-6)
	assert.Equal(t, 1, w.CohortIndex)
}

func TestWeighAbsentDecay(t *testing.T) {
	engine := NewEngine(DefaultStaleness)
	now := time.Now().UTC()
	event := largeEvent(now.Add(-3 * time.Hour))

	guest := &model.GuestArrival{
		ArrivalTime: now.Add(-2 * time.Hour),
		Latitude:    ptrF(event.GeofenceLat + 0.01),
		Longitude:   ptrF(event.GeofenceLon),
		LocatedAt:   ptrT(now),
	}
	w := engine.Weigh(event, guest, now)
	assert.Equal(t, model.PresenceAbsent, w.Status)
	assert.InDelta(t, 0.16, w.Multiplier, 1e-9)
}

func TestWeighUnknownUsesMeanRate(t *testing.T) {
	engine := NewEngine(DefaultStaleness)
	now := time.Now().UTC()
	event := largeEvent(now.Add(-1 * time.Hour))
	event.GeofenceEnabled = false

	guest := &model.GuestArrival{ArrivalTime: now.Add(-1 * time.Hour)}
	w := engine.Weigh(event, guest, now)
	assert.Equal(t, model.PresenceUnknown, w.Status)
	assert.InDelta(t, 0.65, w.Rate, 1e-9) // (0.9 + 0.4) / 2
}

func TestWeighGentleDecayAll(t *testing.T) {
	engine := NewEngine(DefaultStaleness)
	now := time.Now().UTC()
	event := largeEvent(now.Add(-2 * time.Hour))
	event.GentleDecayAll = true

	// 围栏外的来宾也按在场衰减
	guest := &model.GuestArrival{
		ArrivalTime: now.Add(-2 * time.Hour),
		Latitude:    ptrF(event.GeofenceLat + 0.01),
		Longitude:   ptrF(event.GeofenceLon),
		LocatedAt:   ptrT(now),
	}
	w := engine.Weigh(event, guest, now)
	assert.Equal(t, model.PresencePresent, w.Status)
	assert.InDelta(t, 0.9, w.Rate, 1e-9)
}

func TestApplyNeverAmplifies(t *testing.T) {
	engine := NewEngine(DefaultStaleness)
	now := time.Now().UTC()
	event := largeEvent(now.Add(-5 * time.Hour))

	guest := &model.GuestArrival{
		ArrivalTime: now.Add(-4 * time.Hour),
		Latitude:    ptrF(event.GeofenceLat),
		Longitude:   ptrF(event.GeofenceLon),
		LocatedAt:   ptrT(now),
	}
	w := engine.Weigh(event, guest, now)
	base := 1.65
	assert.LessOrEqual(t, w.Apply(base), base)
	assert.Greater(t, w.Apply(base), 0.0)
}

func TestWeighInvalidRatesFallBack(t *testing.T) {
	engine := NewEngine(DefaultStaleness)
	now := time.Now().UTC()
	event := largeEvent(now)
	event.PresentDecay = 1.7 // 非法，退回默认
	event.AbsentDecay = 0

	guest := &model.GuestArrival{
		ArrivalTime: now,
		Latitude:    ptrF(event.GeofenceLat),
		Longitude:   ptrF(event.GeofenceLon),
		LocatedAt:   ptrT(now),
	}
	w := engine.Weigh(event, guest, now)
	assert.InDelta(t, DefaultPresentDecay, w.Rate, 1e-9)
}
