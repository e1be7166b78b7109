// Package dispatch handles one "@translator <code>" request end to end:
// validate the command, fetch the replied-to message, translate it and post
// the result in a new thread or, without thread permission, in the channel.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/polyglot-bot/polyglot/internal/chunker"
	"github.com/polyglot-bot/polyglot/internal/languages"
	"github.com/polyglot-bot/polyglot/internal/translate"
)

const (
	DefaultTrigger        = "@translator"
	DefaultHardLimit      = 1800
	DefaultSoftLimit      = 4000
	DefaultThreadNameSize = 20
)

// Options tunes the controller.
type Options struct {
	// Triggers are the prefixes that mark a translation command.
	Triggers []string
	// HardLimit is the largest message the controller sends, in code points.
	HardLimit int
	// SoftLimit is the source length above which users get a warning.
	SoftLimit int
	// ThreadNameSize is how much source text goes into a thread name.
	ThreadNameSize int
}

// DefaultOptions returns the production limits.
func DefaultOptions() Options {
	return Options{
		Triggers:       []string{DefaultTrigger},
		HardLimit:      DefaultHardLimit,
		SoftLimit:      DefaultSoftLimit,
		ThreadNameSize: DefaultThreadNameSize,
	}
}

// Controller is stateless between requests and safe for concurrent use.
type Controller struct {
	platform   Platform
	translator Translator
	registry   *languages.Registry
	logger     *slog.Logger
	opts       Options
	observers  []Observer

	now   func() time.Time
	newID func() string
}

// NewController wires a controller. A nil logger discards output.
func NewController(platform Platform, translator Translator, registry *languages.Registry, logger *slog.Logger, opts Options, observers ...Observer) (*Controller, error) {
	if platform == nil {
		return nil, errors.New("platform is required")
	}
	if translator == nil {
		return nil, errors.New("translator is required")
	}
	if registry == nil {
		return nil, errors.New("language registry is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	triggers := make([]string, 0, len(opts.Triggers))
	for _, trigger := range opts.Triggers {
		if trimmed := strings.TrimSpace(trigger); trimmed != "" {
			triggers = append(triggers, trimmed)
		}
	}
	if len(triggers) == 0 {
		return nil, errors.New("at least one trigger is required")
	}
	opts.Triggers = triggers
	if floor := chunker.Len(widestResultPrefix) + 1; opts.HardLimit < floor {
		return nil, fmt.Errorf("hard limit must be at least %d, got %d", floor, opts.HardLimit)
	}
	if opts.SoftLimit <= 0 {
		opts.SoftLimit = DefaultSoftLimit
	}
	if opts.ThreadNameSize <= 0 {
		opts.ThreadNameSize = DefaultThreadNameSize
	}

	return &Controller{
		platform:   platform,
		translator: translator,
		registry:   registry,
		logger:     logger,
		opts:       opts,
		observers:  observers,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Trigger is the primary trigger, used in help and usage notices.
func (c *Controller) Trigger() string {
	return c.opts.Triggers[0]
}

// IsCommand reports whether content starts with a trigger.
func (c *Controller) IsCommand(content string) bool {
	trimmed := strings.TrimSpace(content)
	for _, trigger := range c.opts.Triggers {
		if strings.HasPrefix(trimmed, trigger) {
			return true
		}
	}
	return false
}

// request is the per-message state owned by one Handle call.
type request struct {
	msg      Inbound
	log      *slog.Logger
	state    State
	started  time.Time
	event    Event
	language string
}

// Handle runs one message through the state machine and returns the
// terminal state. Every failure is reported in the originating channel;
// nothing is returned to the caller.
func (c *Controller) Handle(ctx context.Context, msg Inbound) State {
	if !c.IsCommand(msg.Content) {
		return StateIgnored
	}

	req := &request{
		msg:     msg,
		state:   StateAwaitingReference,
		started: c.now(),
	}
	req.event = Event{
		RequestID: c.newID(),
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		AuthorID:  msg.AuthorID,
	}
	req.log = c.logger.With("request_id", req.event.RequestID, "author", msg.AuthorName, "channel_id", msg.ChannelID)

	c.run(ctx, req)

	req.event.Time = req.started
	req.event.Duration = c.now().Sub(req.started)
	req.event.State = req.state
	req.event.Language = req.language
	c.notify(ctx, req)
	return req.state
}

func (c *Controller) run(ctx context.Context, req *request) {
	msg := req.msg
	if !msg.IsReply() {
		c.reject(ctx, req, mustReplyNotice(c.Trigger()), "translation requested without replying to a message")
		return
	}

	fields := strings.Fields(strings.TrimSpace(msg.Content))
	if len(fields) <= 1 {
		c.reject(ctx, req, noLanguageNotice(c.Trigger(), c.registry), "translation requested without a language")
		return
	}
	req.language = strings.ToLower(fields[1])

	req.state = StateValidating
	source, err := c.platform.FetchMessage(ctx, msg.referenceChannel(), msg.ReferenceMessageID)
	switch {
	case errors.Is(err, ErrNotFound):
		c.reject(ctx, req, noticeNotFound, "referenced message was not found")
		return
	case errors.Is(err, ErrForbidden):
		c.reject(ctx, req, noticeForbidden, "no permission to read the referenced message")
		return
	case err != nil:
		c.fault(ctx, req, fmt.Errorf("fetch referenced message: %w", err))
		return
	}

	if strings.TrimSpace(source) == "" {
		c.reject(ctx, req, noticeNoText, "referenced message has no text")
		return
	}
	req.event.SourceLength = chunker.Len(source)
	if req.event.SourceLength > c.opts.SoftLimit {
		if err := c.platform.SendMessage(ctx, msg.ChannelID, noticeLongInput); err != nil {
			c.fault(ctx, req, err)
			return
		}
	}

	lang, ok := c.registry.Lookup(req.language)
	if !ok {
		c.reject(ctx, req, unsupportedNotice(c.registry), "unsupported language code", "language", req.language)
		return
	}

	req.state = StateTranslating
	if err := c.platform.Typing(ctx, msg.ChannelID); err != nil {
		req.log.Debug("typing indicator failed", "error", err)
	}
	outcome := c.translator.Translate(ctx, source, lang.Code)
	req.event.Outcome = outcome.Kind.String()
	if !outcome.OK() {
		if outcome.Kind == translate.KindEmpty {
			req.log.Warn("empty translation result", "language", lang.Code)
			c.report(ctx, req, outcome.Message(), "empty translation result")
			return
		}
		req.log.Info("translation failed", "outcome", outcome.Kind.String(), "detail", outcome.Detail)
		c.report(ctx, req, outcome.Message(), outcome.Kind.String())
		return
	}

	req.state = StateDelivering
	canThread, err := c.platform.CanCreatePublicThreads(ctx, msg.ChannelID)
	if err != nil {
		c.fault(ctx, req, fmt.Errorf("check thread permission: %w", err))
		return
	}
	if !canThread {
		err = c.deliverInChannel(ctx, req, outcome.Text)
	} else {
		err = c.deliverInThread(ctx, req, source, lang, outcome.Text)
	}
	if err != nil {
		c.fault(ctx, req, err)
		return
	}

	req.state = StateDone
	req.log.Info("translation sent",
		"language", lang.Code,
		"delivery", req.event.Delivery.String(),
		"chunks", req.event.Chunks)
}

// deliverInChannel is the fallback when threads cannot be created. Long
// results are split on line and word boundaries with room for the widest
// "(i/N)" prefix.
func (c *Controller) deliverInChannel(ctx context.Context, req *request, text string) error {
	req.event.Delivery = DeliveryChannel
	channelID := req.msg.ChannelID
	if err := c.platform.SendMessage(ctx, channelID, noticeNoThreadAccess); err != nil {
		return err
	}

	if chunker.Len(text) <= c.opts.HardLimit {
		req.event.Chunks = 1
		return c.platform.SendMessage(ctx, channelID, resultHeader+text)
	}

	parts, err := chunker.Split(text, c.opts.HardLimit-chunker.Len(widestResultPrefix))
	if err != nil {
		return err
	}
	return c.sendChunks(ctx, req, channelID, parts)
}

// deliverInThread posts into a new thread started from the command message.
// Long results are cut into fixed-size slices at the hard limit.
func (c *Controller) deliverInThread(ctx context.Context, req *request, source string, lang languages.Language, text string) error {
	req.event.Delivery = DeliveryThread
	name := ThreadName(source, lang.Code, c.opts.ThreadNameSize)
	threadID, err := c.platform.StartThread(ctx, req.msg.ChannelID, req.msg.MessageID, name)
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	req.event.ThreadID = threadID

	if chunker.Len(text) <= c.opts.HardLimit {
		req.event.Chunks = 1
		return c.platform.SendMessage(ctx, threadID, resultHeader+text)
	}
	return c.sendChunks(ctx, req, threadID, chunker.Slices(text, c.opts.HardLimit))
}

func (c *Controller) sendChunks(ctx context.Context, req *request, channelID string, parts []string) error {
	chunks := chunker.Number(parts)
	req.event.Chunks = len(chunks)
	for _, chunk := range chunks {
		if err := c.platform.SendMessage(ctx, channelID, chunkMessage(chunk)); err != nil {
			return fmt.Errorf("send chunk %d/%d: %w", chunk.Index, chunk.Total, err)
		}
	}
	return nil
}

// reject reports a usage or reference problem at info level.
func (c *Controller) reject(ctx context.Context, req *request, notice, reason string, attrs ...any) {
	req.log.Info(reason, attrs...)
	c.report(ctx, req, notice, reason)
}

// fault reports an unexpected failure with its detail.
func (c *Controller) fault(ctx context.Context, req *request, err error) {
	req.log.Error("translation request failed", "state", req.state.String(), "error", err)
	c.report(ctx, req, faultNotice(err), err.Error())
}

func (c *Controller) report(ctx context.Context, req *request, notice, detail string) {
	req.state = StateErrorReported
	req.event.Detail = detail
	if err := c.platform.SendMessage(ctx, req.msg.ChannelID, notice); err != nil {
		req.log.Error("failed to send notice", "error", err)
	}
}

func (c *Controller) notify(ctx context.Context, req *request) {
	for _, observer := range c.observers {
		if observer == nil {
			continue
		}
		if err := observer.Observe(ctx, req.event); err != nil {
			req.log.Warn("observer failed", "error", err)
		}
	}
}
