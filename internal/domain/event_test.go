package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from EventStatus
		to   EventStatus
		want bool
	}{
		{EventStatusDraft, EventStatusPublished, true},
		{EventStatusDraft, EventStatusCancelled, true},
		{EventStatusDraft, EventStatusClosed, false},
		{EventStatusPublished, EventStatusClosed, true},
		{EventStatusPublished, EventStatusCancelled, true},
		{EventStatusPublished, EventStatusDraft, false},
		{EventStatusClosed, EventStatusPublished, true},
		{EventStatusClosed, EventStatusCancelled, false},
		{EventStatusCancelled, EventStatusPublished, false},
		{EventStatusCancelled, EventStatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPriceBand_Matches(t *testing.T) {
	price := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}

	tests := []struct {
		name  string
		band  PriceBand
		price *decimal.Decimal
		want  bool
	}{
		{"all matches anything", PriceAll, price(999999), true},
		{"free matches zero", PriceFree, price(0), true},
		{"free matches missing price", PriceFree, nil, true},
		{"free rejects paid", PriceFree, price(1), false},
		{"low excludes zero", PriceLow, price(0), false},
		{"low includes 99999", PriceLow, price(99999), true},
		{"low excludes 100000", PriceLow, price(100000), false},
		{"medium includes 100000", PriceMedium, price(100000), true},
		{"medium includes 500000", PriceMedium, price(500000), true},
		{"high excludes 500000", PriceHigh, price(500000), false},
		{"high includes 500001", PriceHigh, price(500001), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.band.Matches(tt.price))
		})
	}
}

func TestParsePriceBand(t *testing.T) {
	b, ok := ParsePriceBand("")
	require.True(t, ok)
	assert.Equal(t, PriceAll, b)

	b, ok = ParsePriceBand(" Medium ")
	require.True(t, ok)
	assert.Equal(t, PriceMedium, b)

	_, ok = ParsePriceBand("cheap")
	assert.False(t, ok)
}

func TestEvent_AcceptsRegistrations(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := NewEvent("Run", "Morning run", "Park", "org-1", now.Add(time.Hour), now.Add(2*time.Hour), now, now)

	assert.False(t, ev.AcceptsRegistrations(now), "draft events are closed")

	ev.Status = EventStatusPublished
	assert.True(t, ev.AcceptsRegistrations(now))
	assert.False(t, ev.AcceptsRegistrations(now.Add(3*time.Hour)), "ended events are closed")
}

func TestEvent_IsFull(t *testing.T) {
	ev := &Event{RegistrationsCount: 2}
	assert.False(t, ev.IsFull(), "no capacity means unlimited")

	capacity := 2
	ev.Capacity = &capacity
	assert.True(t, ev.IsFull())

	ev.RegistrationsCount = 1
	assert.False(t, ev.IsFull())
}

func TestEventUpdate_Apply(t *testing.T) {
	now := time.Now()
	ev := NewEvent("Old", "Desc", "Hanoi", "org-1", now, now.Add(time.Hour), now, now)
	title := "New"
	end := now.Add(3 * time.Hour)

	EventUpdate{Title: &title, EndAt: &end, Tags: []string{"music"}}.Apply(ev)

	assert.Equal(t, "New", ev.Title)
	assert.Equal(t, "Desc", ev.Description)
	assert.Equal(t, end, ev.EndAt)
	assert.Equal(t, []string{"music"}, ev.Tags)
	require.NoError(t, ev.CheckSchedule())

	start := now.Add(4 * time.Hour)
	EventUpdate{StartAt: &start}.Apply(ev)
	assert.ErrorIs(t, ev.CheckSchedule(), ErrInvalidInput)
}

func TestEventFilter_CacheKey(t *testing.T) {
	a := EventFilter{Query: " Jazz ", Sort: EventSortUpcoming, PriceBand: PriceAll, Pagination: PaginationParams{Page: 1, PageSize: 20}}
	b := EventFilter{Query: "jazz", Sort: EventSortUpcoming, PriceBand: PriceAll, Pagination: PaginationParams{Page: 1, PageSize: 20}}
	c := EventFilter{Query: "jazz", Sort: EventSortNewest, PriceBand: PriceAll, Pagination: PaginationParams{Page: 1, PageSize: 20}}

	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, b.CacheKey(), c.CacheKey())
}
