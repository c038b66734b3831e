package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Event names a kind of schedule change
type Event string

const (
	EventCascade      Event = "cascade"
	EventRollover     Event = "rollover"
	EventHoldStarted  Event = "hold_started"
	EventHoldReleased Event = "hold_released"
	EventCompleted    Event = "completed"
)

// Summary is what the UI shows as a toast after a committed change
type Summary struct {
	Event          Event     `json:"event"`
	ConstructionID uint      `json:"construction_id"`
	TaskID         uint      `json:"task_id,omitempty"`
	ChangedTaskIDs []uint    `json:"changed_task_ids"`
	BlockedTaskIDs []uint    `json:"blocked_task_ids,omitempty"`
	BatchID        string    `json:"batch_id,omitempty"`
	Message        string    `json:"message"`
	At             time.Time `json:"at"`
}

// Notifier receives summaries after commit. Implementations must not block
// the caller for long and must swallow their own failures.
type Notifier interface {
	Notify(ctx context.Context, s Summary)
}

// Nop drops every summary
type Nop struct{}

func (Nop) Notify(context.Context, Summary) {}

// LogNotifier writes summaries to a zap logger
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, s Summary) {
	n.Log.Info(s.Message,
		zap.String("event", string(s.Event)),
		zap.Uint("construction_id", s.ConstructionID),
		zap.Uint("task_id", s.TaskID),
		zap.Int("changed", len(s.ChangedTaskIDs)),
		zap.Int("blocked", len(s.BlockedTaskIDs)),
		zap.String("batch_id", s.BatchID),
	)
}

// RedisNotifier publishes summaries as JSON on a pub/sub channel
type RedisNotifier struct {
	client  *redis.Client
	channel string
	timeout time.Duration
	log     *zap.Logger
}

// NewRedisNotifier returns a notifier publishing on channel
func NewRedisNotifier(client *redis.Client, channel string, log *zap.Logger) *RedisNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisNotifier{client: client, channel: channel, timeout: time.Second, log: log}
}

func (n *RedisNotifier) Notify(ctx context.Context, s Summary) {
	payload, err := json.Marshal(s)
	if err != nil {
		n.log.Warn("failed to encode notification", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.log.Warn("failed to publish notification",
			zap.String("channel", n.channel),
			zap.String("event", string(s.Event)),
			zap.Error(err))
	}
}

// Multi fans a summary out to several notifiers
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, s Summary) {
	for _, n := range m {
		n.Notify(ctx, s)
	}
}
