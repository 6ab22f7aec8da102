// Package widget implements the voice widget session: speech capture, the
// message list, chat submission and spoken replies.
package widget

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/voicewidget/internal/domain"
)

// Options configures a Session.
type Options struct {
	Config   domain.WidgetConfig
	Capture  SpeechCapture
	Playback SpeechPlayback
	Client   ChatClient

	// Embedded sessions run inside a host page frame. Close notifies the
	// host through OnClose instead of hiding the panel.
	Embedded bool
	OnClose  func()

	// OnChange is called after every state change with a fresh snapshot.
	OnChange func(Snapshot)

	Now func() time.Time
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	Open             bool
	Hidden           bool
	Listening        bool
	Processing       bool
	Speaking         bool
	CaptureSupported bool
	Transcript       string
	Error            string
	Notice           string
	Messages         []domain.Message
	Context          *domain.PageContext
}

// Session is one widget conversation. All methods are safe for concurrent
// use; at most one chat request is in flight at a time.
type Session struct {
	cfg      domain.WidgetConfig
	capture  SpeechCapture
	playback SpeechPlayback
	client   ChatClient
	embedded bool
	onClose  func()
	onChange func(Snapshot)
	now      func() time.Time

	mu         sync.Mutex
	open       bool
	hidden     bool
	listening  bool
	processing bool
	speaking   bool
	transcript string
	errText    string
	notice     string
	messages   []domain.Message
	pageCtx    *domain.PageContext
	lastStamp  time.Time
}

// NewSession creates a session and wires the speech callbacks.
func NewSession(opts Options) *Session {
	s := &Session{
		cfg:      opts.Config.Normalize(),
		capture:  opts.Capture,
		playback: opts.Playback,
		client:   opts.Client,
		embedded: opts.Embedded,
		onClose:  opts.OnClose,
		onChange: opts.OnChange,
		now:      opts.Now,
		open:     opts.Embedded,
	}
	if s.capture == nil || !s.capture.Supported() {
		s.capture = UnsupportedCapture{}
		s.notice = UnsupportedNotice
	}
	if s.playback == nil || !s.playback.Supported() {
		s.playback = UnsupportedPlayback{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.capture.OnResult(s.handleResult)
	s.capture.OnError(s.handleCaptureError)
	s.capture.OnEnd(func() {
		s.mu.Lock()
		s.listening = false
		s.mu.Unlock()
		s.notify()
	})
	s.playback.OnStart(func() {
		s.mu.Lock()
		s.speaking = true
		s.mu.Unlock()
		s.notify()
	})
	s.playback.OnEnd(func() {
		s.mu.Lock()
		s.speaking = false
		s.mu.Unlock()
		s.notify()
	})
	return s
}

// Config returns the normalized widget configuration.
func (s *Session) Config() domain.WidgetConfig {
	return s.cfg
}

// Open shows the panel. Embedded sessions are always open.
func (s *Session) Open() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	s.notify()
}

// Close hides the panel, or asks the host page to close the frame when
// embedded.
func (s *Session) Close() {
	if s.embedded {
		if s.onClose != nil {
			s.onClose()
		}
		return
	}
	s.StopListening()
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	s.notify()
}

// StartListening begins speech capture.
func (s *Session) StartListening() error {
	if !s.capture.Supported() {
		return ErrCaptureUnsupported
	}

	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.listening {
		s.mu.Unlock()
		return nil
	}
	s.errText = ""
	s.listening = true
	s.mu.Unlock()

	if err := s.capture.Start(); err != nil {
		s.mu.Lock()
		s.listening = false
		s.errText = err.Error()
		s.mu.Unlock()
		s.notify()
		return fmt.Errorf("start capture: %w", err)
	}
	s.notify()
	return nil
}

// StopListening stops speech capture if it is active.
func (s *Session) StopListening() {
	s.mu.Lock()
	active := s.listening
	s.listening = false
	s.mu.Unlock()

	if active {
		s.capture.Stop()
		s.notify()
	}
}

// Submit sends text as a user message and speaks the reply. Capture is
// stopped first. It returns ErrBusy while another message is in flight.
func (s *Session) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty message: %w", domain.ErrInvalidRequest)
	}

	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return ErrBusy
	}
	s.processing = true
	wasListening := s.listening
	s.listening = false
	s.transcript = ""
	s.errText = ""
	s.appendLocked(domain.Message{Role: domain.RoleUser, Text: text})
	req := ChatRequest{Message: text, Config: &s.cfg}
	if s.pageCtx != nil {
		pc := *s.pageCtx
		req.Context = &pc
	}
	s.mu.Unlock()

	if wasListening {
		s.capture.Stop()
	}
	s.notify()

	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
		s.notify()
	}()

	reply, err := s.client.ShopChat(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("chat request failed")
		s.mu.Lock()
		s.errText = ProcessFailedMessage
		s.mu.Unlock()
		return fmt.Errorf("chat: %w", err)
	}

	s.mu.Lock()
	s.appendLocked(domain.Message{
		Role:        domain.RoleAssistant,
		Text:        reply.Response,
		Intent:      reply.Intent,
		Suggestions: reply.Suggestions,
	})
	s.mu.Unlock()

	s.speak(reply.Response)
	return nil
}

// ChooseSuggestion submits a suggestion chip as if it had been spoken.
func (s *Session) ChooseSuggestion(ctx context.Context, suggestion string) error {
	return s.Submit(ctx, suggestion)
}

// StopSpeaking cancels playback.
func (s *Session) StopSpeaking() {
	s.playback.Cancel()
	s.mu.Lock()
	s.speaking = false
	s.mu.Unlock()
	s.notify()
}

// SetHidden records page visibility. Hiding stops capture and playback.
func (s *Session) SetHidden(hidden bool) {
	s.mu.Lock()
	s.hidden = hidden
	s.mu.Unlock()

	if hidden {
		s.StopListening()
		s.StopSpeaking()
		return
	}
	s.notify()
}

// UpdateContext replaces the page context used for later submissions.
func (s *Session) UpdateContext(pc domain.PageContext) {
	capped := pc.Capped()
	s.mu.Lock()
	s.pageCtx = &capped
	s.mu.Unlock()
	s.notify()
}

// Messages returns a copy of the message list.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Open:             s.open,
		Hidden:           s.hidden,
		Listening:        s.listening,
		Processing:       s.processing,
		Speaking:         s.speaking,
		CaptureSupported: s.capture.Supported(),
		Transcript:       s.transcript,
		Error:            s.errText,
		Notice:           s.notice,
		Messages:         append([]domain.Message(nil), s.messages...),
	}
	if s.pageCtx != nil {
		pc := *s.pageCtx
		snap.Context = &pc
	}
	return snap
}

func (s *Session) handleResult(t Transcript) {
	text := strings.TrimSpace(t.Text)
	if !t.Final {
		s.mu.Lock()
		s.transcript = text
		s.mu.Unlock()
		s.notify()
		return
	}
	if text == "" {
		return
	}
	if err := s.Submit(context.Background(), text); err != nil {
		log.Debug().Err(err).Msg("final transcript not submitted")
	}
}

func (s *Session) handleCaptureError(code string) {
	s.mu.Lock()
	s.listening = false
	s.errText = (&CaptureError{Code: code}).Error()
	s.mu.Unlock()
	s.notify()
}

func (s *Session) speak(text string) {
	if !s.playback.Supported() || text == "" {
		return
	}
	s.mu.Lock()
	hidden := s.hidden
	if !hidden {
		s.speaking = true
	}
	s.mu.Unlock()
	if hidden {
		return
	}

	if err := s.playback.Speak(text); err != nil {
		log.Debug().Err(err).Msg("playback failed")
		s.mu.Lock()
		s.speaking = false
		s.mu.Unlock()
	}
	s.notify()
}

// appendLocked stamps and appends m, keeping timestamps strictly increasing.
func (s *Session) appendLocked(m domain.Message) {
	ts := s.now()
	if !ts.After(s.lastStamp) {
		ts = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = ts
	m.ID = uuid.NewString()
	m.Timestamp = ts
	s.messages = append(s.messages, m)
}

func (s *Session) notify() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.Snapshot())
}
