package main

import (
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/xiaot623/voicewidget/internal/domain"
	"github.com/xiaot623/voicewidget/internal/widget"
)

// LineCapture treats each typed line as a final speech transcript.
type LineCapture struct {
	mu       sync.Mutex
	active   bool
	onResult func(widget.Transcript)
	onError  func(string)
	onEnd    func()
}

func (c *LineCapture) Supported() bool { return true }

func (c *LineCapture) Start() error {
	c.mu.Lock()
	c.active = true
	c.mu.Unlock()
	return nil
}

func (c *LineCapture) Stop() {
	c.mu.Lock()
	wasActive := c.active
	c.active = false
	onEnd := c.onEnd
	c.mu.Unlock()
	if wasActive && onEnd != nil {
		onEnd()
	}
}

func (c *LineCapture) OnResult(fn func(widget.Transcript)) { c.onResult = fn }
func (c *LineCapture) OnError(fn func(string)) { c.onError = fn }
func (c *LineCapture) OnEnd(fn func()) { c.onEnd = fn }

// Emit delivers line as a final transcript. It reports false when capture
// is not started; a blank line ends capture with a no-speech error.
func (c *LineCapture) Emit(line string) bool {
	c.mu.Lock()
	active := c.active
	onResult, onError := c.onResult, c.onError
	if active && strings.TrimSpace(line) == "" {
		c.active = false
	}
	c.mu.Unlock()

	if !active {
		return false
	}
	if strings.TrimSpace(line) == "" {
		if onError != nil {
			onError(widget.CaptureNoSpeech)
		}
		return true
	}
	if onResult != nil {
		onResult(widget.Transcript{Text: line, Final: true})
	}
	return true
}

// CommandPlayback pipes replies to a text-to-speech command such as
// "espeak" or "say". An empty command is unsupported.
type CommandPlayback struct {
	command []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	onStart func()
	onEnd   func()
}

// NewCommandPlayback splits command on whitespace.
func NewCommandPlayback(command string) *CommandPlayback {
	return &CommandPlayback{command: strings.Fields(command)}
}

func (p *CommandPlayback) Supported() bool { return len(p.command) > 0 }

// Speak replaces any reply still playing with text. Only the current
// utterance reports its end.
func (p *CommandPlayback) Speak(text string) error {
	if !p.Supported() {
		return nil
	}

	cmd := exec.Command(p.command[0], p.command[1:]...)
	cmd.Stdin = strings.NewReader(text)

	p.mu.Lock()
	previous := p.cmd
	p.cmd = nil
	p.mu.Unlock()
	kill(previous)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.command[0], err)
	}

	p.mu.Lock()
	p.cmd = cmd
	onStart := p.onStart
	p.mu.Unlock()

	if onStart != nil {
		onStart()
	}
	go func() {
		_ = cmd.Wait()
		p.mu.Lock()
		current := p.cmd == cmd
		if current {
			p.cmd = nil
		}
		onEnd := p.onEnd
		p.mu.Unlock()
		if current && onEnd != nil {
			onEnd()
		}
	}()
	return nil
}

// Cancel stops the reply being spoken, if any, and reports its end.
func (p *CommandPlayback) Cancel() {
	p.mu.Lock()
	cmd := p.cmd
	p.cmd = nil
	onEnd := p.onEnd
	p.mu.Unlock()
	if cmd == nil {
		return
	}
	kill(cmd)
	if onEnd != nil {
		onEnd()
	}
}

func kill(cmd *exec.Cmd) {
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

func (p *CommandPlayback) OnStart(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStart = fn
}

func (p *CommandPlayback) OnEnd(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnd = fn
}

// Printer writes new messages and errors from session snapshots.
type Printer struct {
	out  io.Writer
	name string

	mu        sync.Mutex
	printed   int
	lastError string
}

// NewPrinter creates a printer that labels replies with name.
func NewPrinter(out io.Writer, name string) *Printer {
	return &Printer{out: out, name: name}
}

// Render prints what changed since the previous snapshot.
func (p *Printer) Render(snap widget.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, m := range snap.Messages[min(p.printed, len(snap.Messages)):] {
		if m.Role != domain.RoleAssistant {
			continue
		}
		fmt.Fprintf(p.out, "%s: %s\n", p.name, m.Text)
		for i, s := range m.Suggestions {
			fmt.Fprintf(p.out, "  [%d] %s\n", i+1, s)
		}
	}
	p.printed = len(snap.Messages)

	if snap.Error != "" && snap.Error != p.lastError {
		fmt.Fprintf(p.out, "! %s\n", snap.Error)
	}
	p.lastError = snap.Error
}
