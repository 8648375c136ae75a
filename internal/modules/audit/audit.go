package audit

import (
	"context"
	"time"

	"github.com/SX2s/SX2-Enforcer/internal/storage"

	"go.uber.org/zap"
)

// Entry describes one completed moderation action.
type Entry struct {
	GuildID   string
	ChannelID string
	ActorID   string
	TargetID  string
	Action    string
	Reason    string
	Note      string
	CreatedAt time.Time
}

// Logger persists moderation actions and fans them out to a notifier that
// posts the audit embeds.
type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, Entry)
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

func (l *Logger) SetNotifier(notify func(context.Context, Entry)) {
	l.notify = notify
}

func (l *Logger) Record(ctx context.Context, entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if l.store != nil {
		_ = l.store.AddModAction(ctx, storage.ModAction{
			GuildID:   entry.GuildID,
			ActorID:   entry.ActorID,
			TargetID:  entry.TargetID,
			Action:    entry.Action,
			Reason:    entry.Reason,
			CreatedAt: entry.CreatedAt,
		})
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("moderation action",
		zap.String("guild_id", entry.GuildID),
		zap.String("actor_id", entry.ActorID),
		zap.String("target_id", entry.TargetID),
		zap.String("action", entry.Action),
		zap.String("reason", entry.Reason),
	)
}
