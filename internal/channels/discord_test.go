package channels

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/polyglot-bot/polyglot/internal/dispatch"
)

type discordSendCapture struct {
	channelID string
	text      string
}

type fakeDiscordAPI struct {
	sent []discordSendCapture

	message    *discordgo.Message
	messageErr error

	perms    map[string]int64
	permsErr error

	threadStarts []*discordgo.ThreadStart
	threadErr    error

	typing []string
}

func (f *fakeDiscordAPI) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sent = append(f.sent, discordSendCapture{channelID: channelID, text: content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeDiscordAPI) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return f.message, f.messageErr
}

func (f *fakeDiscordAPI) UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error) {
	return f.perms[channelID], f.permsErr
}

func (f *fakeDiscordAPI) MessageThreadStartComplex(channelID, messageID string, data *discordgo.ThreadStart, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	f.threadStarts = append(f.threadStarts, data)
	return &discordgo.Channel{ID: "thread-" + messageID, Name: data.Name}, nil
}

func (f *fakeDiscordAPI) ChannelTyping(channelID string, options ...discordgo.RequestOption) error {
	f.typing = append(f.typing, channelID)
	return nil
}

type fakeMessageHandler struct {
	calls []dispatch.Inbound
	panic bool
}

func (f *fakeMessageHandler) Handle(ctx context.Context, msg dispatch.Inbound) dispatch.State {
	f.calls = append(f.calls, msg)
	if f.panic {
		panic("boom")
	}
	return dispatch.StateDone
}

func newTestDiscordBot(t *testing.T) (*DiscordBot, *fakeDiscordAPI) {
	t.Helper()
	bot, err := NewDiscordBot(DiscordOptions{Token: "token", Intro: "hello, I translate"})
	if err != nil {
		t.Fatalf("NewDiscordBot: %v", err)
	}
	api := &fakeDiscordAPI{perms: map[string]int64{}}
	bot.api = api
	bot.setSelfID("BOT")
	return bot, api
}

func TestNewDiscordBotRequiresToken(t *testing.T) {
	if _, err := NewDiscordBot(DiscordOptions{Token: "  "}); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestDiscordRoutesMessagesToHandler(t *testing.T) {
	bot, api := newTestDiscordBot(t)
	handler := &fakeMessageHandler{}
	bot.SetHandler(handler)

	bot.handleMessageEvent(context.Background(), &dispatch.Inbound{
		MessageID: "M1",
		ChannelID: "C1",
		AuthorID:  "U1",
		Content:   "@translator en",
	})

	if len(handler.calls) != 1 || handler.calls[0].MessageID != "M1" {
		t.Fatalf("expected handler to receive message, got %v", handler.calls)
	}
	if len(api.sent) != 0 {
		t.Fatalf("expected no direct replies, got %v", api.sent)
	}
	if bot.LastActivity().IsZero() {
		t.Fatal("expected activity to be recorded")
	}
}

func TestDiscordIntroduceCommand(t *testing.T) {
	bot, api := newTestDiscordBot(t)
	handler := &fakeMessageHandler{}
	bot.SetHandler(handler)

	bot.handleMessageEvent(context.Background(), &dispatch.Inbound{ChannelID: "C1", Content: "!introduce"})
	bot.handleMessageEvent(context.Background(), &dispatch.Inbound{ChannelID: "C1", Content: "!dance"})

	if len(api.sent) != 1 || api.sent[0].text != "hello, I translate" || api.sent[0].channelID != "C1" {
		t.Fatalf("expected a single introduction, got %v", api.sent)
	}
	if len(handler.calls) != 0 {
		t.Fatal("prefix commands must not reach the translation handler")
	}
}

func TestDiscordRecoversHandlerPanic(t *testing.T) {
	bot, _ := newTestDiscordBot(t)
	bot.SetHandler(&fakeMessageHandler{panic: true})

	bot.handleMessageEvent(context.Background(), &dispatch.Inbound{ChannelID: "C1", Content: "@translator en"})

	if bot.LastError().IsZero() {
		t.Fatal("expected panic to be recorded as an error")
	}
}

func TestDiscordMessageFromEvent(t *testing.T) {
	event := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "M2",
		ChannelID: "C1",
		GuildID:   "G1",
		Content:   "@translator jp",
		Author:    &discordgo.User{ID: "U1", Username: "alice"},
		MessageReference: &discordgo.MessageReference{
			MessageID: "M1",
			ChannelID: "C1",
		},
	}}

	msg := discordMessageFromEvent(event, "BOT")
	if msg == nil {
		t.Fatal("expected inbound message")
	}
	if !msg.IsReply() || msg.ReferenceMessageID != "M1" || msg.AuthorName != "alice" || msg.GuildID != "G1" {
		t.Fatalf("unexpected inbound: %+v", msg)
	}

	event.Author.ID = "BOT"
	if discordMessageFromEvent(event, "BOT") != nil {
		t.Fatal("expected own messages to be ignored")
	}
}

func TestDiscordFetchMessageClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "unknown message",
			err:  &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}, Message: &discordgo.APIErrorMessage{Code: 10008}},
			want: dispatch.ErrNotFound,
		},
		{
			name: "missing access",
			err:  &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}, Message: &discordgo.APIErrorMessage{Code: 50001}},
			want: dispatch.ErrForbidden,
		},
		{
			name: "missing permissions code only",
			err:  &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusBadRequest}, Message: &discordgo.APIErrorMessage{Code: 50013}},
			want: dispatch.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, api := newTestDiscordBot(t)
			api.messageErr = tt.err
			_, err := bot.FetchMessage(context.Background(), "C1", "M1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	bot, api := newTestDiscordBot(t)
	api.messageErr = errors.New("connection reset")
	_, err := bot.FetchMessage(context.Background(), "C1", "M1")
	if err == nil || errors.Is(err, dispatch.ErrNotFound) || errors.Is(err, dispatch.ErrForbidden) {
		t.Fatalf("expected plain error, got %v", err)
	}
}

func TestDiscordFetchMessageReturnsContent(t *testing.T) {
	bot, api := newTestDiscordBot(t)
	api.message = &discordgo.Message{Content: "Hello"}

	text, err := bot.FetchMessage(context.Background(), "C1", "M1")
	if err != nil || text != "Hello" {
		t.Fatalf("FetchMessage = %q, %v", text, err)
	}
}

func TestDiscordThreadPermission(t *testing.T) {
	bot, api := newTestDiscordBot(t)
	api.perms["C1"] = discordgo.PermissionSendMessages | discordgo.PermissionCreatePublicThreads
	api.perms["C2"] = discordgo.PermissionSendMessages

	if ok, err := bot.CanCreatePublicThreads(context.Background(), "C1"); err != nil || !ok {
		t.Fatalf("expected thread permission in C1, got %v %v", ok, err)
	}
	if ok, err := bot.CanCreatePublicThreads(context.Background(), "C2"); err != nil || ok {
		t.Fatalf("expected no thread permission in C2, got %v %v", ok, err)
	}
}

func TestDiscordStartThread(t *testing.T) {
	bot, api := newTestDiscordBot(t)

	id, err := bot.StartThread(context.Background(), "C1", "M2", "Translation of 'Hello' to JP")
	if err != nil {
		t.Fatalf("StartThread: %v", err)
	}
	if id != "thread-M2" {
		t.Fatalf("unexpected thread id %q", id)
	}
	if len(api.threadStarts) != 1 || api.threadStarts[0].Type != discordgo.ChannelTypeGuildPublicThread {
		t.Fatalf("expected a public thread, got %+v", api.threadStarts)
	}
}

func TestDiscordSendMessageLimitsLength(t *testing.T) {
	bot, api := newTestDiscordBot(t)

	if err := bot.SendMessage(context.Background(), "C1", strings.Repeat("é", 2500)); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got := len([]rune(api.sent[0].text)); got != maxDiscordMessageChars {
		t.Fatalf("expected %d code points, got %d", maxDiscordMessageChars, got)
	}
	if err := bot.SendMessage(context.Background(), " ", "x"); err == nil {
		t.Fatal("expected error for empty channel ID")
	}
}

func TestDiscordIntroduceGuildOnce(t *testing.T) {
	bot, api := newTestDiscordBot(t)
	api.perms["T1"] = discordgo.PermissionSendMessages
	api.perms["T2"] = 0

	guild := &discordgo.Guild{ID: "G1", Name: "guild", Channels: []*discordgo.Channel{
		{ID: "T1", Name: "Discord-Test", Type: discordgo.ChannelTypeGuildText},
		{ID: "T2", Name: "discord-test", Type: discordgo.ChannelTypeGuildText},
		{ID: "T3", Name: "general", Type: discordgo.ChannelTypeGuildText},
		{ID: "V1", Name: "discord-test", Type: discordgo.ChannelTypeGuildVoice},
	}}

	bot.introduceGuild(context.Background(), guild)
	bot.introduceGuild(context.Background(), guild)

	if len(api.sent) != 1 || api.sent[0].channelID != "T1" {
		t.Fatalf("expected one introduction in T1, got %v", api.sent)
	}
}

func TestDiscordIntroduceGuildBeforeReady(t *testing.T) {
	bot, api := newTestDiscordBot(t)
	bot.setSelfID("")
	api.perms["T1"] = discordgo.PermissionSendMessages

	guild := &discordgo.Guild{ID: "G1", Name: "guild", Channels: []*discordgo.Channel{
		{ID: "T1", Name: "discord-test", Type: discordgo.ChannelTypeGuildText},
	}}

	bot.onGuildCreate(nil, &discordgo.GuildCreate{Guild: guild})
	if len(api.sent) != 0 {
		t.Fatalf("expected no introduction before ready, got %v", api.sent)
	}

	bot.onReady(nil, &discordgo.Ready{User: &discordgo.User{ID: "BOT", Username: "translator"}})
	if len(api.sent) != 1 || api.sent[0].channelID != "T1" {
		t.Fatalf("expected introduction after ready, got %v", api.sent)
	}

	bot.onGuildCreate(nil, &discordgo.GuildCreate{Guild: guild})
	if len(api.sent) != 1 {
		t.Fatalf("expected a single introduction, got %d", len(api.sent))
	}
}

func TestDiscordLearnsIdentityFromSessionState(t *testing.T) {
	bot, api := newTestDiscordBot(t)
	bot.setSelfID("")
	api.perms["T1"] = discordgo.PermissionSendMessages
	handler := &fakeMessageHandler{}
	bot.SetHandler(handler)

	session, err := discordgo.New("Bot token")
	if err != nil {
		t.Fatalf("discordgo.New: %v", err)
	}
	session.State.User = &discordgo.User{ID: "BOT"}

	bot.onMessageCreate(session, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "M1", ChannelID: "C1", GuildID: "G1", Content: "@translator jp",
		Author: &discordgo.User{ID: "BOT"},
	}})
	if len(handler.calls) != 0 {
		t.Fatalf("expected own message to be ignored, got %v", handler.calls)
	}
	if got := bot.self(); got != "BOT" {
		t.Fatalf("expected identity from session state, got %q", got)
	}

	guild := &discordgo.Guild{ID: "G1", Name: "guild", Channels: []*discordgo.Channel{
		{ID: "T1", Name: "discord-test", Type: discordgo.ChannelTypeGuildText},
	}}
	bot.onGuildCreate(session, &discordgo.GuildCreate{Guild: guild})
	if len(api.sent) != 1 {
		t.Fatalf("expected introduction, got %v", api.sent)
	}
}

func TestDiscordStartStopWithSeams(t *testing.T) {
	bot, _ := newTestDiscordBot(t)
	started := false
	bot.startFn = func(ctx context.Context) error {
		started = true
		return nil
	}
	bot.stopFn = func() error { return nil }

	if err := bot.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !started || !bot.IsRunning() {
		t.Fatal("expected bot to be running")
	}
	if err := bot.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if bot.IsRunning() {
		t.Fatal("expected bot to be stopped")
	}
}
