package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

var (
	// ErrUnsupported is returned by speech capabilities the environment
	// does not provide.
	ErrUnsupported = errors.New("chat: speech not supported in this environment")
	// ErrNoSpeech is returned when a recording produced no transcript.
	ErrNoSpeech = errors.New("chat: no speech detected")
)

// Recognizer turns one utterance into text.
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
}

// Synthesizer speaks text aloud. A new Speak call supersedes one still
// playing.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// Unsupported stands in for a missing recognizer or synthesizer.
type Unsupported struct{}

func (Unsupported) Recognize(context.Context) (string, error) { return "", ErrUnsupported }
func (Unsupported) Speak(context.Context, string) error       { return ErrUnsupported }

// CommandSynthesizer pipes text to an external text-to-speech program on
// stdin, e.g. "espeak --stdin".
type CommandSynthesizer struct {
	name string
	args []string

	mu      sync.Mutex
	playing *exec.Cmd
}

// NewCommandSynthesizer resolves command on PATH. A missing program
// returns an error wrapping ErrUnsupported.
func NewCommandSynthesizer(command string) (*CommandSynthesizer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no speech command configured", ErrUnsupported)
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return &CommandSynthesizer{name: path, args: fields[1:]}, nil
}

// Speak blocks until playback ends. Starting another Speak kills the
// current one, which then returns nil.
func (s *CommandSynthesizer) Speak(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, s.name, s.args...)
	cmd.Stdin = strings.NewReader(text)

	s.mu.Lock()
	if s.playing != nil && s.playing.Process != nil {
		_ = s.playing.Process.Kill()
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("chat: start speech command: %w", err)
	}
	s.playing = cmd
	s.mu.Unlock()

	err := cmd.Wait()

	s.mu.Lock()
	superseded := s.playing != cmd
	if !superseded {
		s.playing = nil
	}
	s.mu.Unlock()

	if superseded || ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("chat: speech command: %w", err)
	}
	return nil
}

// Stream is an open capture stream. Stop releases the device.
type Stream interface {
	io.Reader
	Stop() error
}

// Device opens audio capture streams.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// DeviceRecognizer records one utterance from a device and transcribes it.
type DeviceRecognizer struct {
	device      Device
	transcriber Transcriber
}

func NewDeviceRecognizer(device Device, transcriber Transcriber) (*DeviceRecognizer, error) {
	if device == nil {
		return nil, errors.New("chat: device must not be nil")
	}
	if transcriber == nil {
		return nil, errors.New("chat: transcriber must not be nil")
	}
	return &DeviceRecognizer{device: device, transcriber: transcriber}, nil
}

// Recognize always stops the capture stream, whether transcription
// succeeds, fails or is cancelled.
func (r *DeviceRecognizer) Recognize(ctx context.Context) (string, error) {
	stream, err := r.device.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("chat: open capture device: %w", err)
	}
	defer func() { _ = stream.Stop() }()

	text, err := r.transcriber.Transcribe(ctx, stream)
	if err != nil {
		return "", fmt.Errorf("chat: transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// CommandDevice captures audio from an external recorder's stdout, e.g.
// "arecord -q -d 5 -f S16_LE -r 16000 -t wav".
type CommandDevice struct {
	name string
	args []string
}

func NewCommandDevice(command string) (*CommandDevice, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no record command configured", ErrUnsupported)
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return &CommandDevice{name: path, args: fields[1:]}, nil
}

func (d *CommandDevice) Open(ctx context.Context) (Stream, error) {
	cmd := exec.CommandContext(ctx, d.name, d.args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &commandStream{cmd: cmd, out: out}, nil
}

type commandStream struct {
	cmd  *exec.Cmd
	out  io.ReadCloser
	once sync.Once
}

func (s *commandStream) Read(p []byte) (int, error) { return s.out.Read(p) }

func (s *commandStream) Stop() error {
	s.once.Do(func() {
		if s.cmd.ProcessState == nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
	})
	return nil
}
