package avatar

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownAvatar is returned when an id is not in the store.
	ErrUnknownAvatar = errors.New("avatar: unknown avatar")
	// ErrDuplicateAvatar is returned when an id is registered twice.
	ErrDuplicateAvatar = errors.New("avatar: duplicate avatar id")
)

// Store is an ordered, read-mostly set of profiles of one kind. The order
// of List is the order in which profiles were added.
type Store struct {
	kind     Kind
	profiles []Profile
	index    map[string]int
}

// NewStore builds a store from profiles in definition order.
func NewStore(kind Kind, profiles ...Profile) (*Store, error) {
	if kind != KindStylized && kind != KindHuman {
		return nil, fmt.Errorf("avatar: unsupported kind %q", kind)
	}
	s := &Store{kind: kind, index: make(map[string]int, len(profiles))}
	for _, p := range profiles {
		if err := s.insert(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Kind reports which variant the store holds.
func (s *Store) Kind() Kind {
	return s.kind
}

// Get returns the profile registered under id.
func (s *Store) Get(id string) (Profile, bool) {
	i, ok := s.index[id]
	if !ok {
		return Profile{}, false
	}
	return s.profiles[i], true
}

// List returns every profile in definition order.
func (s *Store) List() []Profile {
	out := make([]Profile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Len returns the number of profiles.
func (s *Store) Len() int {
	return len(s.profiles)
}

// Add registers a custom profile. Blank descriptive fields are filled with
// the same defaults the built-in catalogue uses.
func (s *Store) Add(p Profile) error {
	return s.insert(withDefaults(s.kind, p))
}

func (s *Store) insert(p Profile) error {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return errors.New("avatar: profile id must not be empty")
	}
	if _, exists := s.index[p.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateAvatar, p.ID)
	}
	p.Kind = s.kind
	s.index[p.ID] = len(s.profiles)
	s.profiles = append(s.profiles, p)
	return nil
}

// checkNew reports the first profile in ps that Add would reject.
func (s *Store) checkNew(ps []Profile) error {
	seen := make(map[string]bool, len(ps))
	for _, p := range ps {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return errors.New("avatar: profile id must not be empty")
		}
		if _, exists := s.index[id]; exists || seen[id] {
			return fmt.Errorf("%w: %q", ErrDuplicateAvatar, id)
		}
		seen[id] = true
	}
	return nil
}

func withDefaults(kind Kind, p Profile) Profile {
	if p.DisplayName == "" {
		p.DisplayName = "Custom Avatar"
	}
	if p.Icon == "" {
		p.Icon = "👤"
	}
	if kind == KindStylized {
		if p.Palette == (Palette{}) {
			p.Palette = Palette{Primary: "#6366f1", Secondary: "#8b5cf6", Accent: "#a78bfa"}
		}
		if p.Features.Head == "" {
			p.Features.Head = HeadCircular
		}
		if p.Features.Eyes == "" {
			p.Features.Eyes = EyesDigital
		}
		if p.Features.Mouth == "" {
			p.Features.Mouth = MouthRobotic
		}
		return p
	}

	h := &p.Human
	if h.Gender == "" {
		h.Gender = "male"
	}
	if h.SkinTone == "" {
		h.SkinTone = "#f4c2a0"
	}
	if h.HairColor == "" {
		h.HairColor = "#2c1810"
	}
	if h.HairStyle == "" {
		h.HairStyle = HairShort
	}
	if h.EyeColor == "" {
		h.EyeColor = "#4a3428"
	}
	if h.Face.Shape == "" {
		h.Face.Shape = FaceOval
	}
	if h.Face.Jawline == "" {
		h.Face.Jawline = "soft"
	}
	if h.Face.Nose == "" {
		h.Face.Nose = NoseMedium
	}
	if h.Face.Lips == "" {
		h.Face.Lips = "medium"
	}
	return p
}

// Selector tracks the current selection within a store. A failed
// SetCurrent leaves the selection unchanged.
type Selector struct {
	store   *Store
	current string
}

// NewSelector selects initial, or the first profile when initial is empty.
func NewSelector(store *Store, initial string) (*Selector, error) {
	if store == nil {
		return nil, errors.New("avatar: store must not be nil")
	}
	if store.Len() == 0 {
		return nil, errors.New("avatar: store is empty")
	}
	sel := &Selector{store: store, current: store.profiles[0].ID}
	if initial != "" {
		if err := sel.SetCurrent(initial); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

// SetCurrent changes the selection. Unknown ids are rejected.
func (s *Selector) SetCurrent(id string) error {
	if _, ok := s.store.Get(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAvatar, id)
	}
	s.current = id
	return nil
}

// Current returns the selected profile.
func (s *Selector) Current() Profile {
	p, _ := s.store.Get(s.current)
	return p
}

// CurrentID returns the selected profile id.
func (s *Selector) CurrentID() string {
	return s.current
}

// Store returns the underlying store.
func (s *Selector) Store() *Store {
	return s.store
}
