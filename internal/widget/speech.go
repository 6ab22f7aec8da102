package widget

// Transcript is one recognition result. Interim results update the live
// transcript; a final result is submitted as a user message.
type Transcript struct {
	Text  string
	Final bool
}

// SpeechCapture is a continuous speech-to-text source.
type SpeechCapture interface {
	Supported() bool
	Start() error
	Stop()
	OnResult(func(Transcript))
	OnError(func(code string))
	OnEnd(func())
}

// SpeechPlayback speaks assistant replies aloud.
type SpeechPlayback interface {
	Supported() bool
	Speak(text string) error
	Cancel()
	OnStart(func())
	OnEnd(func())
}

// UnsupportedCapture is selected when no speech recognition is available.
type UnsupportedCapture struct{}

func (UnsupportedCapture) Supported() bool { return false }
func (UnsupportedCapture) Start() error { return ErrCaptureUnsupported }
func (UnsupportedCapture) Stop() {}
func (UnsupportedCapture) OnResult(func(Transcript)) {}
func (UnsupportedCapture) OnError(func(string)) {}
func (UnsupportedCapture) OnEnd(func()) {}

// UnsupportedPlayback is selected when no speech synthesis is available.
// Replies are still shown, just not spoken.
type UnsupportedPlayback struct{}

func (UnsupportedPlayback) Supported() bool { return false }
func (UnsupportedPlayback) Speak(string) error { return nil }
func (UnsupportedPlayback) Cancel() {}
func (UnsupportedPlayback) OnStart(func()) {}
func (UnsupportedPlayback) OnEnd(func()) {}
