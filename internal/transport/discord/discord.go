package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"ideabot/internal/collector"
)

// maxMessageLen is Discord's per-message character limit.
const maxMessageLen = 2000

// Service relays Discord messages to the collector.
type Service struct {
	session   *discordgo.Session
	collector *collector.Collector
	prefix    string
	log       *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates the Discord session. The connection is opened by Start.
func New(token, prefix string, c *collector.Collector, logger *log.Logger) (*Service, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("discord: bot token is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		session:   session,
		collector: c,
		prefix:    prefix,
		log:       logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	session.AddHandler(func(_ *discordgo.Session, event *discordgo.Ready) {
		s.log.Printf("discord: online as %s in %d guild(s)", event.User.Username, len(event.Guilds))
	})
	session.AddHandler(s.messageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	return s, nil
}

// Start opens the gateway websocket.
func (s *Service) Start() error {
	if err := s.session.Open(); err != nil {
		return fmt.Errorf("discord: open connection: %w", err)
	}
	s.log.Printf("discord: listening for %sstart", s.prefix)
	return nil
}

// Stop cancels in-flight evaluations and closes the connection.
func (s *Service) Stop() error {
	s.cancel()
	return s.session.Close()
}

func (s *Service) messageCreate(ds *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	out := channelOutbox{send: ds.ChannelMessageSend, channelID: m.ChannelID, log: s.log}
	ev := classify(m.Content, s.prefix, m.GuildID == "")
	if ev.kind == eventIgnore {
		return
	}
	key := SessionKey(m.Author.ID, m.ChannelID)

	var err error
	switch ev.kind {
	case eventStart:
		err = s.collector.Start(s.ctx, key, m.Author.Mention(), out)
	case eventReset:
		err = s.collector.Reset(s.ctx, key, out)
	case eventText:
		s.showTyping(ds.ChannelTyping, m.ChannelID)
		err = s.collector.Handle(s.ctx, key, ev.text, out)
		if errors.Is(err, collector.ErrNoSession) {
			err = out.Send(s.ctx, fmt.Sprintf("Send `%sstart` to describe your business idea.", s.prefix))
		}
	}
	if err != nil {
		s.log.Printf("discord: session %s: %v", key, err)
	}
}

func (s *Service) showTyping(typing func(channelID string, options ...discordgo.RequestOption) error, channelID string) {
	if err := typing(channelID); err != nil {
		s.log.Printf("discord: typing indicator in %s: %v", channelID, err)
	}
}

// SessionKey identifies a conversation by user and channel.
func SessionKey(userID, channelID string) string {
	return fmt.Sprintf("discord_%s_%s", userID, channelID)
}

type eventKind int

const (
	eventIgnore eventKind = iota
	eventStart
	eventReset
	eventText
)

type event struct {
	kind eventKind
	text string
}

// classify maps message content to a collector event. In guild channels only
// prefixed messages are for the bot; direct messages are always answers.
func classify(content, prefix string, direct bool) event {
	content = strings.TrimSpace(content)
	if prefix != "" && strings.HasPrefix(content, prefix) {
		rest := strings.TrimSpace(content[len(prefix):])
		cmd, arg, _ := strings.Cut(rest, " ")
		switch strings.ToLower(cmd) {
		case "start":
			return event{kind: eventStart}
		case "reset", "cancel":
			return event{kind: eventReset}
		case "idea", "answer":
			return event{kind: eventText, text: strings.TrimSpace(arg)}
		}
		return event{kind: eventIgnore}
	}
	if !direct {
		return event{kind: eventIgnore}
	}
	return event{kind: eventText, text: content}
}

type channelOutbox struct {
	send      func(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	channelID string
	log       *log.Logger
}

// Send posts text to the channel, splitting it to fit the length limit.
func (o channelOutbox) Send(ctx context.Context, text string) error {
	chunks := splitMessage(text, maxMessageLen-100)
	for i, chunk := range chunks {
		if i > 0 {
			// Small delay between messages to avoid rate limiting
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(200 * time.Millisecond):
			}
		}
		if _, err := o.send(o.channelID, chunk); err != nil {
			return fmt.Errorf("discord: send to %s: %w", o.channelID, err)
		}
	}
	return nil
}

// splitMessage splits a message into chunks respecting word boundaries
func splitMessage(message string, maxLength int) []string {
	if len(message) <= maxLength {
		return []string{message}
	}

	var chunks []string
	for len(message) > maxLength {
		// Try to split at a word boundary
		splitIndex := maxLength
		if spaceIndex := strings.LastIndexAny(message[:maxLength], " \n"); spaceIndex > maxLength/2 {
			splitIndex = spaceIndex
		}
		for splitIndex > 0 && !utf8.RuneStart(message[splitIndex]) {
			splitIndex--
		}

		chunks = append(chunks, message[:splitIndex])
		message = strings.TrimLeft(message[splitIndex:], " \n")
	}

	if len(message) > 0 {
		chunks = append(chunks, message)
	}

	return chunks
}
