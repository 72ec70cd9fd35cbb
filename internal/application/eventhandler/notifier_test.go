package eventhandler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empower-sl/learnhub/internal/domain/shared"
)

var at = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

func TestNotifier_RendersEventsNewestFirst(t *testing.T) {
	n := NewNotifier(nil, DefaultNotifierConfig())

	require.NoError(t, n.Handle(shared.NewBadgeUnlockedEvent("l1", "first-lesson", "First Step", "Fɔs Stɛp", "🎯", "common", 25, at)))
	require.NoError(t, n.Handle(shared.NewLevelUpEvent("l1", 1, 2, 125, at.Add(time.Second))))

	feed := n.Feed("l1", 0)
	require.Len(t, feed, 2)
	assert.Equal(t, NotificationLevelUp, feed[0].Kind)
	assert.Equal(t, NotificationBadge, feed[1].Kind)
	assert.NotEmpty(t, feed[0].ID)

	title, msg := feed[1].Localized(shared.LangKrio)
	assert.Equal(t, "Nyu baj: Fɔs Stɛp", title)
	assert.Equal(t, "+25 XP", msg)

	title, _ = feed[0].Localized(shared.LangEnglish)
	assert.Equal(t, "Level up!", title)

	assert.Empty(t, n.Feed("someone-else", 10))
}

func TestNotifier_FeedIsBounded(t *testing.T) {
	n := NewNotifier(nil, NotifierConfig{FeedSize: 3})
	for lvl := 2; lvl <= 7; lvl++ {
		require.NoError(t, n.Handle(shared.NewLevelUpEvent("l1", lvl-1, lvl, 0, at)))
	}

	feed := n.Feed("l1", 0)
	require.Len(t, feed, 3)
	assert.Equal(t, "You reached level 7.", feed[0].Message)
	assert.Equal(t, "You reached level 5.", feed[2].Message)

	assert.Len(t, n.Feed("l1", 2), 2)
}

func TestNotifier_StreakMilestonesOnly(t *testing.T) {
	n := NewNotifier(nil, DefaultNotifierConfig())
	require.NoError(t, n.Handle(shared.NewDailyStreakUpdatedEvent("l1", 1, 2, "2024-01-02", at)))
	assert.Empty(t, n.Feed("l1", 0))

	require.NoError(t, n.Handle(shared.NewDailyStreakUpdatedEvent("l1", 2, 3, "2024-01-03", at)))
	feed := n.Feed("l1", 0)
	require.Len(t, feed, 1)
	assert.Equal(t, "3-day streak!", feed[0].Title)
}

func TestNotifier_ResetClearsFeed(t *testing.T) {
	n := NewNotifier(nil, DefaultNotifierConfig())
	require.NoError(t, n.Handle(shared.NewLevelUpEvent("l1", 1, 2, 100, at)))
	require.NoError(t, n.Handle(shared.NewProgressResetEvent("l1", at)))
	assert.Empty(t, n.Feed("l1", 0))
}

type recordingSubscriber struct {
	types []shared.EventType
}

func (r *recordingSubscriber) Subscribe(t shared.EventType, _ shared.EventHandler) error {
	r.types = append(r.types, t)
	return nil
}

func (r *recordingSubscriber) SubscribeAll(shared.EventHandler) error { return nil }

func TestNotifier_Register(t *testing.T) {
	sub := &recordingSubscriber{}
	require.NoError(t, NewNotifier(nil, DefaultNotifierConfig()).Register(sub))
	assert.ElementsMatch(t, []shared.EventType{
		shared.EventLevelUp, shared.EventBadgeUnlocked, shared.EventDailyStreakUpdated, shared.EventProgressReset,
	}, sub.types)
}
