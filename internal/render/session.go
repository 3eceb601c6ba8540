package render

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"talkbot/internal/avatar"
)

// Session is the avatar state of one display surface: the selected
// profile, the animation state and the renderer (with its blink counter)
// for the store's kind. It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	selector *avatar.Selector
	renderer Renderer
	state    State
}

// NewSession selects initial from store, or the store's first profile
// when initial is empty.
func NewSession(store *avatar.Store, initial string) (*Session, error) {
	if store == nil {
		return nil, errors.New("render: store must not be nil")
	}

	var r Renderer
	switch store.Kind() {
	case avatar.KindStylized:
		r = NewStylized()
	case avatar.KindHuman:
		r = NewHuman()
	default:
		return nil, fmt.Errorf("render: no renderer for avatar kind %q", store.Kind())
	}

	sel, err := avatar.NewSelector(store, initial)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	return &Session{
		selector: sel,
		renderer: r,
		state:    State{Emotion: avatar.EmotionNeutral},
	}, nil
}

// SetCurrent selects another profile. An unknown id returns an error
// wrapping avatar.ErrUnknownAvatar and keeps the current selection.
func (s *Session) SetCurrent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.SetCurrent(id)
}

func (s *Session) Current() avatar.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Current()
}

func (s *Session) List() []avatar.Profile {
	return s.selector.Store().List()
}

func (s *Session) SetSpeaking(speaking bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Speaking = speaking
}

func (s *Session) SetEmotion(e avatar.Emotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Emotion = e
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Frame renders the current profile onto surface at time t.
func (s *Session) Frame(surface Surface, t time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderer.Render(surface, s.selector.Current(), s.state, t)
}
