package session

import (
	"context"
	"testing"
	"time"

	"qrate/config"
	"qrate/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventRepo struct {
	events map[string]*model.EventConfig
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*model.EventConfig)}
}

func (r *fakeEventRepo) Create(ctx context.Context, event *model.EventConfig) error {
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id string) (*model.EventConfig, error) {
	return r.events[id], nil
}

func (r *fakeEventRepo) Close(ctx context.Context, id string) error { return nil }

func (r *fakeEventRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok := r.events[id]
	return ok, nil
}

func (r *fakeEventRepo) UpsertArrival(ctx context.Context, arrival *model.GuestArrival) error {
	return nil
}

func (r *fakeEventRepo) GetArrival(ctx context.Context, eventID, userID string) (*model.GuestArrival, error) {
	return nil, nil
}

func (r *fakeEventRepo) ListArrivals(ctx context.Context, eventID string) ([]*model.GuestArrival, error) {
	return nil, nil
}

func (r *fakeEventRepo) CountArrivals(ctx context.Context, eventID string) (int64, error) {
	return 0, nil
}

func (r *fakeEventRepo) UpdateLocation(ctx context.Context, eventID, userID string, lat, lon float64, locatedAt time.Time) error {
	return nil
}

type fakeContribRepo struct{}

func (fakeContribRepo) Save(ctx context.Context, record *model.ContributionRecord) error {
	return nil
}

func (fakeContribRepo) ListByEvent(ctx context.Context, eventID string) ([]*model.ContributionRecord, error) {
	return nil, nil
}

func (fakeContribRepo) DeleteByUser(ctx context.Context, eventID, userID string) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		RankDecayK:       0.05,
		PresentDecayRate: 0.90,
		AbsentDecayRate:  0.40,
		GeofenceRadiusM:  100,
		SmallEventMax:    20,
		RepeatWindow:     180 * time.Minute,
		AggregateDelay:   10 * time.Millisecond,
	}
}

// 未显式指定规模时按预计来宾数与阈值推导
func TestCreateEventDerivesSizeFromExpectedGuests(t *testing.T) {
	m := NewManager(testConfig(), newFakeEventRepo(), fakeContribRepo{}, nil, nil, nil, nil)
	defer m.Shutdown()

	small, err := m.CreateEvent(context.Background(), CreateEventRequest{Name: "后院派对", ExpectedGuests: 12})
	require.NoError(t, err)
	assert.Equal(t, model.EventSizeSmall, small.EventSize)

	// 恰好达到阈值按大型处理
	atThreshold, err := m.CreateEvent(context.Background(), CreateEventRequest{Name: "仓库演出", ExpectedGuests: 20})
	require.NoError(t, err)
	assert.Equal(t, model.EventSizeLarge, atThreshold.EventSize)

	// 未给预计人数时兜底为大型
	unknown, err := m.CreateEvent(context.Background(), CreateEventRequest{Name: "规模未知"})
	require.NoError(t, err)
	assert.Equal(t, model.EventSizeLarge, unknown.EventSize)
}

func TestCreateEventExplicitSizeWins(t *testing.T) {
	m := NewManager(testConfig(), newFakeEventRepo(), fakeContribRepo{}, nil, nil, nil, nil)
	defer m.Shutdown()

	event, err := m.CreateEvent(context.Background(), CreateEventRequest{
		Name:           "私人聚会",
		EventSize:      model.EventSizeSmall,
		ExpectedGuests: 80,
	})
	require.NoError(t, err)
	assert.Equal(t, model.EventSizeSmall, event.EventSize)
}
