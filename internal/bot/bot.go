package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SX2s/SX2-Enforcer/internal/command"
	"github.com/SX2s/SX2-Enforcer/internal/config"
	"github.com/SX2s/SX2-Enforcer/internal/modules/audit"
	"github.com/SX2s/SX2-Enforcer/internal/modules/grants"
	"github.com/SX2s/SX2-Enforcer/internal/modules/reactionroles"
	"github.com/SX2s/SX2-Enforcer/internal/modules/warnings"
	"github.com/SX2s/SX2-Enforcer/internal/setup"
	"github.com/SX2s/SX2-Enforcer/internal/stats"
	"github.com/SX2s/SX2-Enforcer/internal/storage"
	"github.com/SX2s/SX2-Enforcer/internal/store"
	"github.com/SX2s/SX2-Enforcer/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	docs      *store.Store
	store     *storage.Store
	warnings  *warnings.Ledger
	reactions *reactionroles.Table
	grants    *grants.Scheduler
	sessions  *setup.Manager
	audit     *audit.Logger
	stats     *stats.Service
	registry  *command.Registry
	session   *discordgo.Session

	waiterMu sync.Mutex
	waiters  map[string]chan *discordgo.MessageCreate

	helpMu   sync.Mutex
	helpView map[string]*helpState

	cancelLoops context.CancelFunc
}

// helpViewTTL bounds how long a help message keeps responding to its
// pagination buttons; expired entries are swept whenever a new view opens.
const helpViewTTL = 15 * time.Minute

type helpState struct {
	authorID string
	category string
	page     int
	created  time.Time
}

// pruneHelpViews drops expired entries. Callers must hold helpMu.
func (b *Bot) pruneHelpViews(now time.Time) {
	for id, state := range b.helpView {
		if now.Sub(state.created) > helpViewTTL {
			delete(b.helpView, id)
		}
	}
}

func New(
	cfg config.Config,
	logger *zap.Logger,
	docs *store.Store,
	db *storage.Store,
	warningLedger *warnings.Ledger,
	reactionTable *reactionroles.Table,
	grantScheduler *grants.Scheduler,
	sessionManager *setup.Manager,
	auditLogger *audit.Logger,
	statsService *stats.Service,
) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		docs:      docs,
		store:     db,
		warnings:  warningLedger,
		reactions: reactionTable,
		grants:    grantScheduler,
		sessions:  sessionManager,
		audit:     auditLogger,
		stats:     statsService,
		registry:  command.NewRegistry(),
		session:   session,
		waiters:   make(map[string]chan *discordgo.MessageCreate),
		helpView:  make(map[string]*helpState),
	}

	b.registerCommands()
	if b.grants != nil {
		b.grants.SetRevert(b.revertGrant)
	}
	if b.audit != nil {
		b.audit.SetNotifier(b.notifyAudit)
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberUpdate)
	b.session.AddHandler(b.onReactionAdd)
	b.session.AddHandler(b.onReactionRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.grants.Resume(context.Background()); err != nil {
		b.logger.Warn("grant resume failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancelLoops = cancel
	go b.docs.Run(ctx, time.Duration(b.cfg.SnapshotSeconds)*time.Second)
	go b.statsLoop(ctx)

	return nil
}

func (b *Bot) Close(_ context.Context) {
	if b.cancelLoops != nil {
		b.cancelLoops()
	}
	b.docs.SnapshotAll()
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) statsLoop(ctx context.Context) {
	interval := time.Duration(b.cfg.StatsMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.refreshStats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.refreshStats()
		}
	}
}

func (b *Bot) refreshStats() {
	if b.session == nil || b.session.State == nil {
		return
	}
	guilds := len(b.session.State.Guilds)
	users := 0
	for _, guild := range b.session.State.Guilds {
		if guild != nil {
			users += guild.MemberCount
		}
	}
	b.stats.Update(guilds, users)
}

// awaitMessage blocks until the given author posts in the given channel or
// the timeout passes. Messages consumed here never reach the dispatcher.
func (b *Bot) awaitMessage(channelID, authorID string, timeout time.Duration) (*discordgo.MessageCreate, bool) {
	key := channelID + "|" + authorID
	ch := make(chan *discordgo.MessageCreate, 1)

	b.waiterMu.Lock()
	b.waiters[key] = ch
	b.waiterMu.Unlock()
	defer func() {
		b.waiterMu.Lock()
		if b.waiters[key] == ch {
			delete(b.waiters, key)
		}
		b.waiterMu.Unlock()
	}()

	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(timeout):
		return nil, false
	}
}

func (b *Bot) deliverToWaiter(m *discordgo.MessageCreate) bool {
	key := m.ChannelID + "|" + m.Author.ID
	b.waiterMu.Lock()
	ch, ok := b.waiters[key]
	if ok {
		delete(b.waiters, key)
	}
	b.waiterMu.Unlock()
	if !ok {
		return false
	}
	ch <- m
	return true
}

// guild fetches from state first, falling back to the REST API.
func (b *Bot) guild(guildID string) *discordgo.Guild {
	guild, err := b.session.State.Guild(guildID)
	if err == nil && guild != nil {
		return guild
	}
	guild, _ = b.session.Guild(guildID)
	return guild
}

func (b *Bot) member(guildID, userID string) *discordgo.Member {
	member, err := b.session.State.Member(guildID, userID)
	if err == nil && member != nil {
		return member
	}
	member, _ = b.session.GuildMember(guildID, userID)
	return member
}

func (b *Bot) channelByName(guildID, name string) *discordgo.Channel {
	guild := b.guild(guildID)
	if guild == nil {
		return nil
	}
	name = strings.ToLower(name)
	for _, channel := range guild.Channels {
		if channel != nil && strings.ToLower(channel.Name) == name {
			return channel
		}
	}
	return nil
}

func (b *Bot) roleByName(guildID, name string) *discordgo.Role {
	guild := b.guild(guildID)
	if guild == nil {
		return nil
	}
	for _, role := range guild.Roles {
		if role != nil && strings.EqualFold(role.Name, name) {
			return role
		}
	}
	return nil
}

func (b *Bot) roleByID(guildID, roleID string) *discordgo.Role {
	guild := b.guild(guildID)
	if guild == nil {
		return nil
	}
	for _, role := range guild.Roles {
		if role != nil && role.ID == roleID {
			return role
		}
	}
	return nil
}

// dmUser best-effort delivers a direct message. Closed DMs are not an
// error for the caller.
func (b *Bot) dmUser(userID, content string) bool {
	if !b.cfg.Notifications.DMOnAction {
		return false
	}
	channel, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return false
	}
	_, err = b.session.ChannelMessageSend(channel.ID, content)
	return err == nil
}

func (b *Bot) sendText(channelID, content string) {
	_, _ = b.session.ChannelMessageSend(channelID, content)
}

func (b *Bot) sendEmbed(channelID string, embed *discordgo.MessageEmbed) *discordgo.Message {
	msg, _ := b.session.ChannelMessageSendEmbed(channelID, embed)
	return msg
}

func (b *Bot) sendError(channelID, message string) {
	b.sendEmbed(channelID, &discordgo.MessageEmbed{
		Title:       "Error",
		Description: message,
		Color:       b.cfg.Notifications.EmbedColors.Error,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}

func (b *Bot) sendSuccess(channelID, message string) {
	b.sendEmbed(channelID, &discordgo.MessageEmbed{
		Description: message,
		Color:       b.cfg.Notifications.EmbedColors.Success,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}

func (b *Bot) sendInfo(channelID, title, message string) {
	b.sendEmbed(channelID, &discordgo.MessageEmbed{
		Title:       title,
		Description: message,
		Color:       b.cfg.Notifications.EmbedColors.Info,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}

// notifyAudit posts the audit embed to the invoking channel and,
// independently, to the guild's moderation-log channel.
func (b *Bot) notifyAudit(ctx context.Context, entry audit.Entry) {
	_ = ctx
	embed := b.buildAuditEmbed(entry)
	if entry.ChannelID != "" {
		b.sendEmbed(entry.ChannelID, embed)
	}
	modLog := b.channelByName(entry.GuildID, b.cfg.ModLogChannel)
	if modLog != nil && modLog.ID != entry.ChannelID {
		b.sendEmbed(modLog.ID, embed)
	}
}

func (b *Bot) buildAuditEmbed(entry audit.Entry) *discordgo.MessageEmbed {
	reason := entry.Reason
	if reason == "" {
		reason = "No reason provided"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Member", Value: mention(entry.TargetID), Inline: true},
		{Name: "Moderator", Value: mention(entry.ActorID), Inline: true},
		{Name: "Reason", Value: reason, Inline: false},
	}
	if entry.Note != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Note", Value: entry.Note, Inline: false})
	}
	return &discordgo.MessageEmbed{
		Title:     titleCase(entry.Action),
		Color:     b.cfg.Notifications.EmbedColors.Action,
		Timestamp: entry.CreatedAt.Format(time.RFC3339),
		Fields:    fields,
	}
}

// revertGrant undoes an expired timed grant. Removal of an already
// removed role is a platform no-op, which keeps the reversal idempotent.
func (b *Bot) revertGrant(job storage.ScheduledJob) {
	if err := b.session.GuildMemberRoleRemove(job.GuildID, job.UserID, job.RoleID); err != nil {
		b.logger.Warn("grant reversal failed",
			zap.String("guild_id", job.GuildID),
			zap.String("user_id", job.UserID),
			zap.String("role_id", job.RoleID),
			zap.Error(err))
	}

	action := "temporary role expired"
	if job.Kind == grants.KindMute {
		action = "mute expired"
		b.dmUser(job.UserID, "Your mute has expired.")
	}
	b.audit.Record(context.Background(), audit.Entry{
		GuildID:  job.GuildID,
		ActorID:  b.botUserID(),
		TargetID: job.UserID,
		Action:   action,
		Reason:   "duration elapsed",
	})
}

func (b *Bot) botUserID() string {
	if b.session != nil && b.session.State != nil && b.session.State.User != nil {
		return b.session.State.User.ID
	}
	return ""
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func mention(userID string) string {
	if userID == "" {
		return "system"
	}
	return "<@" + userID + ">"
}

func formatRemaining(d time.Duration) string {
	return utils.FormatDuration(d)
}

// guildResolver resolves raw command tokens against one guild.
type guildResolver struct {
	b       *Bot
	guildID string
}

func (r guildResolver) Member(ref string) (*discordgo.Member, error) {
	id := parseMention(ref, "<@!", "<@")
	if id != "" {
		if member := r.b.member(r.guildID, id); member != nil {
			return member, nil
		}
		return nil, fmt.Errorf("member %q not found", ref)
	}

	guild := r.b.guild(r.guildID)
	if guild == nil {
		return nil, fmt.Errorf("guild unavailable")
	}
	for _, member := range guild.Members {
		if member == nil || member.User == nil {
			continue
		}
		if member.User.Username+"#"+member.User.Discriminator == ref {
			return member, nil
		}
		if strings.EqualFold(member.User.Username, ref) || strings.EqualFold(member.Nick, ref) {
			return member, nil
		}
	}
	return nil, fmt.Errorf("member %q not found", ref)
}

func (r guildResolver) Role(ref string) (*discordgo.Role, error) {
	if id := parseMention(ref, "<@&"); id != "" {
		if role := r.b.roleByID(r.guildID, id); role != nil {
			return role, nil
		}
		return nil, fmt.Errorf("role %q not found", ref)
	}
	if role := r.b.roleByName(r.guildID, ref); role != nil {
		return role, nil
	}
	return nil, fmt.Errorf("role %q not found", ref)
}

func (r guildResolver) Channel(ref string) (*discordgo.Channel, error) {
	if id := parseMention(ref, "<#"); id != "" {
		channel, err := r.b.session.State.Channel(id)
		if err == nil && channel != nil {
			return channel, nil
		}
		channel, err = r.b.session.Channel(id)
		if err == nil && channel != nil {
			return channel, nil
		}
		return nil, fmt.Errorf("channel %q not found", ref)
	}
	if channel := r.b.channelByName(r.guildID, ref); channel != nil {
		return channel, nil
	}
	return nil, fmt.Errorf("channel %q not found", ref)
}

// parseMention extracts the snowflake from a mention wrapped in any of the
// given prefixes, or returns the ref unchanged when it is a bare ID.
func parseMention(ref string, prefixes ...string) string {
	for _, prefix := range prefixes {
		if strings.HasPrefix(ref, prefix) && strings.HasSuffix(ref, ">") {
			return strings.TrimSuffix(strings.TrimPrefix(ref, prefix), ">")
		}
	}
	if isSnowflake(ref) {
		return ref
	}
	return ""
}

func isSnowflake(s string) bool {
	if len(s) < 15 || len(s) > 21 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
