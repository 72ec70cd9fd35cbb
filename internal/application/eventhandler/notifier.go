// Package eventhandler contains domain event handlers.
package eventhandler

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/empower-sl/learnhub/internal/domain/shared"
	"github.com/empower-sl/learnhub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// NOTIFIER
// Turns level-ups, badge unlocks and streak milestones into short bilingual
// notifications, keeping the most recent ones per learner. The web client
// polls the feed and renders them as toasts.
// ═══════════════════════════════════════════════════════════════════════════

// NotificationKind classifies a notification.
type NotificationKind string

const (
	NotificationLevelUp NotificationKind = "level_up"
	NotificationBadge   NotificationKind = "badge_unlocked"
	NotificationStreak  NotificationKind = "streak"
)

// Notification is one feed entry.
type Notification struct {
	ID          string           `json:"id"`
	Kind        NotificationKind `json:"kind"`
	Icon        string           `json:"icon"`
	Title       string           `json:"title"`
	TitleKrio   string           `json:"titleKrio"`
	Message     string           `json:"message"`
	MessageKrio string           `json:"messageKrio"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Localized returns the title and message in the requested language.
func (n Notification) Localized(lang shared.Lang) (title, message string) {
	if lang == shared.LangKrio {
		return n.TitleKrio, n.MessageKrio
	}
	return n.Title, n.Message
}

// NotifierConfig contains configuration for the notifier.
type NotifierConfig struct {
	// FeedSize is how many notifications are kept per learner.
	FeedSize int

	// StreakMilestones are streak lengths worth a notification.
	StreakMilestones []int
}

// DefaultNotifierConfig returns the default configuration.
func DefaultNotifierConfig() NotifierConfig {
	return NotifierConfig{
		FeedSize:         20,
		StreakMilestones: []int{3, 7, 14, 30, 60, 100},
	}
}

// Notifier keeps per-learner notification feeds.
type Notifier struct {
	mu     sync.RWMutex
	feeds  map[string][]Notification // oldest first
	config NotifierConfig
	log    *logger.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(log *logger.Logger, config NotifierConfig) *Notifier {
	if config.FeedSize <= 0 {
		config.FeedSize = DefaultNotifierConfig().FeedSize
	}
	if config.StreakMilestones == nil {
		config.StreakMilestones = DefaultNotifierConfig().StreakMilestones
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{
		feeds:  make(map[string][]Notification),
		config: config,
		log:    log.With(logger.Component("notifier")),
	}
}

// Register subscribes the notifier to the events it renders.
func (n *Notifier) Register(bus shared.EventSubscriber) error {
	for _, t := range []shared.EventType{
		shared.EventLevelUp,
		shared.EventBadgeUnlocked,
		shared.EventDailyStreakUpdated,
		shared.EventProgressReset,
	} {
		if err := bus.Subscribe(t, n.Handle); err != nil {
			return fmt.Errorf("notifier: subscribe %s: %w", t, err)
		}
	}
	return nil
}

// Handle implements shared.EventHandler.
func (n *Notifier) Handle(event shared.Event) error {
	switch e := event.(type) {
	case shared.LevelUpEvent:
		n.push(e.LearnerID, Notification{
			Kind:        NotificationLevelUp,
			Icon:        "⭐",
			Title:       "Level up!",
			TitleKrio:   "Yu don go ɔp!",
			Message:     fmt.Sprintf("You reached level %d.", e.NewLevel),
			MessageKrio: fmt.Sprintf("Yu don rich lɛvul %d.", e.NewLevel),
			CreatedAt:   e.OccurredAt(),
		})
	case shared.BadgeUnlockedEvent:
		n.push(e.LearnerID, Notification{
			Kind:        NotificationBadge,
			Icon:        e.Icon,
			Title:       "New badge: " + e.Name,
			TitleKrio:   "Nyu baj: " + e.NameKrio,
			Message:     fmt.Sprintf("+%d XP", e.XPReward),
			MessageKrio: fmt.Sprintf("+%d XP", e.XPReward),
			CreatedAt:   e.OccurredAt(),
		})
	case shared.DailyStreakUpdatedEvent:
		if !n.isMilestone(e.NewStreak) {
			return nil
		}
		n.push(e.LearnerID, Notification{
			Kind:        NotificationStreak,
			Icon:        "🔥",
			Title:       fmt.Sprintf("%d-day streak!", e.NewStreak),
			TitleKrio:   fmt.Sprintf("%d dé strik!", e.NewStreak),
			Message:     "Keep studying every day.",
			MessageKrio: "Kɔntinyu lan ɛvri de.",
			CreatedAt:   e.OccurredAt(),
		})
	case shared.ProgressResetEvent:
		n.Clear(e.LearnerID)
	default:
		n.log.Debug("ignored event", logger.String("event_type", string(event.EventType())))
	}
	return nil
}

func (n *Notifier) isMilestone(streak int) bool {
	for _, m := range n.config.StreakMilestones {
		if streak == m {
			return true
		}
	}
	return false
}

func (n *Notifier) push(learnerID string, note Notification) {
	note.ID = uuid.NewString()

	n.mu.Lock()
	defer n.mu.Unlock()

	feed := append(n.feeds[learnerID], note)
	if over := len(feed) - n.config.FeedSize; over > 0 {
		feed = append([]Notification(nil), feed[over:]...)
	}
	n.feeds[learnerID] = feed

	n.log.Debug("notification queued", logger.LearnerID(learnerID), logger.String("kind", string(note.Kind)))
}

// Feed returns up to limit notifications for a learner, newest first.
// A non-positive limit returns the whole feed.
func (n *Notifier) Feed(learnerID string, limit int) []Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()

	feed := n.feeds[learnerID]
	if limit <= 0 || limit > len(feed) {
		limit = len(feed)
	}
	out := make([]Notification, 0, limit)
	for i := len(feed) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, feed[i])
	}
	return out
}

// Clear drops a learner's feed.
func (n *Notifier) Clear(learnerID string) {
	n.mu.Lock()
	delete(n.feeds, learnerID)
	n.mu.Unlock()
}
