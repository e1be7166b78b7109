package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/polyglot-bot/polyglot/internal/dispatch"
)

const (
	DefaultCommandPrefix = "!"
	DefaultIntroChannel  = "discord-test"

	discordCodeUnknownMessage     = 10008
	discordCodeMissingAccess      = 50001
	discordCodeMissingPermissions = 50013
)

// discordAPI is the part of *discordgo.Session the bot calls over REST.
type discordAPI interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	MessageThreadStartComplex(channelID, messageID string, data *discordgo.ThreadStart, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

// DiscordOptions configures a DiscordBot.
type DiscordOptions struct {
	Token string
	// CommandPrefix marks bot commands such as "!introduce".
	CommandPrefix string
	// IntroChannels are channel names that get the introduction on startup.
	IntroChannels []string
	// Intro is the introduction text.
	Intro string
	// Presence is shown as "Watching <Presence>".
	Presence string
	Logger   *slog.Logger
}

// DiscordBot connects to the Discord gateway, routes guild messages to a
// MessageHandler and implements dispatch.Platform on top of the REST API.
type DiscordBot struct {
	token         string
	prefix        string
	intro         string
	presence      string
	introChannels map[string]struct{}
	logger        *slog.Logger

	handler MessageHandler

	session *discordgo.Session
	api     discordAPI

	startFn func(ctx context.Context) error
	stopFn  func() error

	selfMu sync.RWMutex
	selfID string

	introducedMu sync.Mutex
	introduced   map[string]struct{}
	// pendingIntro holds guilds seen before the bot identity was known.
	pendingIntro map[string]*discordgo.Guild

	runningMu sync.RWMutex
	running   bool

	ctx    context.Context
	cancel context.CancelFunc

	telemetryMu  sync.RWMutex
	lastActivity time.Time
	lastError    time.Time
}

var _ dispatch.Platform = (*DiscordBot)(nil)

func NewDiscordBot(opts DiscordOptions) (*DiscordBot, error) {
	trimmed := strings.TrimSpace(opts.Token)
	if trimmed == "" {
		return nil, errors.New("discord token is required")
	}

	prefix := strings.TrimSpace(opts.CommandPrefix)
	if prefix == "" {
		prefix = DefaultCommandPrefix
	}
	names := opts.IntroChannels
	if names == nil {
		names = []string{DefaultIntroChannel}
	}
	introChannels := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			introChannels[name] = struct{}{}
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &DiscordBot{
		token:         trimmed,
		prefix:        prefix,
		intro:         opts.Intro,
		presence:      opts.Presence,
		introChannels: introChannels,
		logger:        logger.With("channel", "discord"),
		introduced:    make(map[string]struct{}),
		pendingIntro:  make(map[string]*discordgo.Guild),
		ctx:           context.Background(),
	}, nil
}

func (b *DiscordBot) Name() string {
	return "discord"
}

func (b *DiscordBot) SetHandler(handler MessageHandler) {
	b.handler = handler
}

// SetIntro replaces the introduction text. Call before Start.
func (b *DiscordBot) SetIntro(text string) {
	b.intro = text
}

func (b *DiscordBot) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

// LastActivity reports the last time the bot saw a message or successfully sent one.
func (b *DiscordBot) LastActivity() time.Time {
	b.telemetryMu.RLock()
	defer b.telemetryMu.RUnlock()
	return b.lastActivity
}

// LastError reports the last time the bot encountered a channel error.
func (b *DiscordBot) LastError() time.Time {
	b.telemetryMu.RLock()
	defer b.telemetryMu.RUnlock()
	return b.lastError
}

func (b *DiscordBot) markActivity() {
	b.telemetryMu.Lock()
	b.lastActivity = time.Now().UTC()
	b.telemetryMu.Unlock()
}

func (b *DiscordBot) markError() {
	b.telemetryMu.Lock()
	b.lastError = time.Now().UTC()
	b.telemetryMu.Unlock()
}

func (b *DiscordBot) setRunning(running bool) {
	b.runningMu.Lock()
	b.running = running
	b.runningMu.Unlock()
}

func (b *DiscordBot) setSelfID(id string) {
	b.selfMu.Lock()
	b.selfID = id
	b.selfMu.Unlock()
}

func (b *DiscordBot) self() string {
	b.selfMu.RLock()
	defer b.selfMu.RUnlock()
	return b.selfID
}

// learnSelf takes the bot identity from session state, which discordgo
// updates from Ready before any handler runs.
func (b *DiscordBot) learnSelf(s *discordgo.Session) {
	if b.self() != "" || s == nil || s.State == nil {
		return
	}
	s.State.RLock()
	var id string
	if s.State.User != nil {
		id = s.State.User.ID
	}
	s.State.RUnlock()
	if id != "" {
		b.setSelfID(id)
	}
}

func (b *DiscordBot) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	if b.startFn == nil {
		if err := b.initClients(); err != nil {
			return err
		}
	}

	if b.startFn == nil {
		return errors.New("discord start function not configured")
	}

	if err := b.startFn(b.ctx); err != nil {
		b.markError()
		return err
	}

	b.setRunning(true)
	return nil
}

func (b *DiscordBot) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}
	if b.stopFn != nil {
		if err := b.stopFn(); err != nil {
			return err
		}
	}
	b.setRunning(false)
	return nil
}

func (b *DiscordBot) initClients() error {
	if b.api != nil && b.startFn != nil {
		return nil
	}

	session, err := discordgo.New("Bot " + b.token)
	if err != nil {
		return err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onMessageCreate)

	b.session = session
	b.api = session
	b.startFn = b.startGateway
	b.stopFn = b.stopGateway
	return nil
}

func (b *DiscordBot) context() context.Context {
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

func (b *DiscordBot) startGateway(ctx context.Context) error {
	if b.session == nil {
		return errors.New("discord session not initialized")
	}
	go func() {
		<-ctx.Done()
		_ = b.session.Close()
	}()
	return b.session.Open()
}

func (b *DiscordBot) stopGateway() error {
	if b.session != nil {
		return b.session.Close()
	}
	return nil
}

func (b *DiscordBot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if r == nil || r.User == nil {
		return
	}
	b.setSelfID(r.User.ID)
	b.logger.Info("logged in", "user", r.User.Username, "user_id", r.User.ID, "guilds", len(r.Guilds))
	b.introducePending(b.context())
	if b.presence != "" {
		if err := s.UpdateWatchStatus(0, b.presence); err != nil {
			b.markError()
			b.logger.Warn("failed to set presence", "error", err)
		}
	}
}

func (b *DiscordBot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g == nil || g.Guild == nil {
		return
	}
	b.learnSelf(s)
	b.introduceGuild(b.context(), g.Guild)
}

func (b *DiscordBot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.learnSelf(s)
	msg := discordMessageFromEvent(m, b.self())
	if msg == nil {
		return
	}
	b.handleMessageEvent(b.context(), msg)
}

// introducePending introduces guilds that arrived before the bot identity.
func (b *DiscordBot) introducePending(ctx context.Context) {
	b.introducedMu.Lock()
	pending := make([]*discordgo.Guild, 0, len(b.pendingIntro))
	for id, guild := range b.pendingIntro {
		pending = append(pending, guild)
		delete(b.pendingIntro, id)
	}
	b.introducedMu.Unlock()

	for _, guild := range pending {
		b.introduceGuild(ctx, guild)
	}
}

// introduceGuild posts the introduction once per guild per process, in each
// text channel whose name is configured and where the bot may send messages.
func (b *DiscordBot) introduceGuild(ctx context.Context, guild *discordgo.Guild) {
	if strings.TrimSpace(b.intro) == "" || len(b.introChannels) == 0 {
		return
	}
	b.introducedMu.Lock()
	if _, done := b.introduced[guild.ID]; done {
		b.introducedMu.Unlock()
		return
	}
	if b.self() == "" {
		b.pendingIntro[guild.ID] = guild
		b.introducedMu.Unlock()
		b.logger.Debug("introduction deferred until ready", "guild", guild.Name)
		return
	}
	b.introduced[guild.ID] = struct{}{}
	b.introducedMu.Unlock()

	for _, ch := range guild.Channels {
		if ch == nil || ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if _, ok := b.introChannels[strings.ToLower(ch.Name)]; !ok {
			continue
		}
		perms, err := b.api.UserChannelPermissions(b.self(), ch.ID, discordgo.WithContext(ctx))
		if err != nil {
			b.logger.Warn("failed to read channel permissions", "guild", guild.Name, "channel_name", ch.Name, "error", err)
			continue
		}
		if perms&discordgo.PermissionSendMessages == 0 {
			b.logger.Info("no permission to introduce", "guild", guild.Name, "channel_name", ch.Name)
			continue
		}
		if err := b.SendMessage(ctx, ch.ID, b.intro); err != nil {
			b.logger.Warn("failed to send introduction", "guild", guild.Name, "channel_name", ch.Name, "error", err)
			continue
		}
		b.logger.Info("introduction sent", "guild", guild.Name, "channel_name", ch.Name)
	}
}

func (b *DiscordBot) handleMessageEvent(ctx context.Context, msg *dispatch.Inbound) {
	if msg == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.markError()
			b.logger.Error("panic while handling message", "panic", r, "message_id", msg.MessageID, "channel_id", msg.ChannelID)
		}
	}()

	b.markActivity()

	if strings.HasPrefix(strings.TrimSpace(msg.Content), b.prefix) {
		b.handleCommand(ctx, msg)
		return
	}

	if b.handler != nil {
		b.handler.Handle(ctx, *msg)
	}
}

func (b *DiscordBot) handleCommand(ctx context.Context, msg *dispatch.Inbound) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(msg.Content), b.prefix))
	if len(fields) == 0 {
		return
	}

	switch command := strings.ToLower(fields[0]); command {
	case "introduce":
		if err := b.SendMessage(ctx, msg.ChannelID, b.intro); err != nil {
			b.logger.Error("failed to send introduction", "channel_id", msg.ChannelID, "error", err)
		}
	default:
		b.logger.Debug("unknown command", "command", command, "author", msg.AuthorName)
	}
}

// SendMessage posts text to a channel or thread.
func (b *DiscordBot) SendMessage(ctx context.Context, channelID, text string) error {
	if b.api == nil {
		b.markError()
		return errors.New("discord session not initialized")
	}
	if strings.TrimSpace(channelID) == "" {
		b.markError()
		return errors.New("discord channel ID is required")
	}
	if _, err := b.api.ChannelMessageSend(channelID, limitDiscordMessage(text), discordgo.WithContext(ctx)); err != nil {
		b.markError()
		return classifyRESTError(err)
	}
	b.markActivity()
	return nil
}

// FetchMessage returns the content of a message.
func (b *DiscordBot) FetchMessage(ctx context.Context, channelID, messageID string) (string, error) {
	if b.api == nil {
		return "", errors.New("discord session not initialized")
	}
	msg, err := b.api.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return "", classifyRESTError(err)
	}
	if msg == nil {
		return "", dispatch.ErrNotFound
	}
	return msg.Content, nil
}

// CanCreatePublicThreads reports whether the bot holds the thread permission
// in a channel.
func (b *DiscordBot) CanCreatePublicThreads(ctx context.Context, channelID string) (bool, error) {
	if b.api == nil {
		return false, errors.New("discord session not initialized")
	}
	perms, err := b.api.UserChannelPermissions(b.self(), channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, classifyRESTError(err)
	}
	return perms&discordgo.PermissionCreatePublicThreads != 0, nil
}

// StartThread opens a public thread on a message and returns its channel ID.
func (b *DiscordBot) StartThread(ctx context.Context, channelID, messageID, name string) (string, error) {
	if b.api == nil {
		return "", errors.New("discord session not initialized")
	}
	thread, err := b.api.MessageThreadStartComplex(channelID, messageID, &discordgo.ThreadStart{
		Name: name,
		Type: discordgo.ChannelTypeGuildPublicThread,
	}, discordgo.WithContext(ctx))
	if err != nil {
		b.markError()
		return "", classifyRESTError(err)
	}
	if thread == nil || thread.ID == "" {
		return "", errors.New("discord returned no thread")
	}
	return thread.ID, nil
}

// Typing shows the typing indicator in a channel.
func (b *DiscordBot) Typing(ctx context.Context, channelID string) error {
	if b.api == nil {
		return errors.New("discord session not initialized")
	}
	return b.api.ChannelTyping(channelID, discordgo.WithContext(ctx))
}

// classifyRESTError maps Discord REST failures onto the dispatch sentinels.
func classifyRESTError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	status := 0
	if restErr.Response != nil {
		status = restErr.Response.StatusCode
	}
	code := 0
	if restErr.Message != nil {
		code = restErr.Message.Code
	}

	switch {
	case status == http.StatusNotFound || code == discordCodeUnknownMessage:
		return fmt.Errorf("%w: %v", dispatch.ErrNotFound, err)
	case status == http.StatusForbidden || code == discordCodeMissingAccess || code == discordCodeMissingPermissions:
		return fmt.Errorf("%w: %v", dispatch.ErrForbidden, err)
	default:
		return err
	}
}

func discordMessageFromEvent(event *discordgo.MessageCreate, selfID string) *dispatch.Inbound {
	if event == nil || event.Message == nil || event.Author == nil {
		return nil
	}
	if selfID != "" && event.Author.ID == selfID {
		return nil
	}
	if strings.TrimSpace(event.ChannelID) == "" || strings.TrimSpace(event.Author.ID) == "" {
		return nil
	}

	msg := &dispatch.Inbound{
		MessageID:  event.ID,
		ChannelID:  event.ChannelID,
		GuildID:    event.GuildID,
		AuthorID:   event.Author.ID,
		AuthorName: event.Author.Username,
		Content:    event.Content,
	}
	if ref := event.MessageReference; ref != nil {
		msg.ReferenceMessageID = ref.MessageID
		msg.ReferenceChannelID = ref.ChannelID
	}
	return msg
}
