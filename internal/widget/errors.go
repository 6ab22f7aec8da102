package widget

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a message is submitted while another is in flight.
	ErrBusy = errors.New("a message is already being processed")

	// ErrCaptureUnsupported is returned by StartListening without speech recognition.
	ErrCaptureUnsupported = errors.New("speech recognition not supported")
)

const (
	// UnsupportedNotice replaces the microphone controls when capture is unavailable.
	UnsupportedNotice = "Speech recognition not supported in this browser. Please use Chrome, Edge, or Safari."

	// ProcessFailedMessage is shown when the chat call fails.
	ProcessFailedMessage = "Failed to process your message"
)

// Capture error codes reported by speech recognition.
const (
	CaptureNotAllowed   = "not-allowed"
	CaptureNoSpeech     = "no-speech"
	CaptureAborted      = "aborted"
	CaptureNetwork      = "network"
	CaptureAudioCapture = "audio-capture"
)

var captureHints = map[string]string{
	CaptureNotAllowed:   "Please allow microphone access in your browser settings for this site.",
	CaptureNoSpeech:     "No speech detected. Please try again.",
	CaptureAborted:      "Speech recognition was stopped.",
	CaptureNetwork:      "A network problem interrupted recognition. Check your connection and try again.",
	CaptureAudioCapture: "No microphone was found. Connect one and try again.",
}

// CaptureError is a recoverable speech recognition failure.
type CaptureError struct {
	Code string
}

func (e *CaptureError) Error() string {
	return CaptureErrorMessage(e.Code)
}

// CaptureErrorMessage returns the one-sentence text shown for code.
func CaptureErrorMessage(code string) string {
	msg := fmt.Sprintf("Speech recognition error: %s.", code)
	if hint, ok := captureHints[code]; ok {
		msg += " " + hint
	}
	return msg
}

// CaptureErrorHints returns a copy of the hint table, keyed by error code.
func CaptureErrorHints() map[string]string {
	out := make(map[string]string, len(captureHints))
	for k, v := range captureHints {
		out[k] = v
	}
	return out
}
