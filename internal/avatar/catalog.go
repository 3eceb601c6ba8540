package avatar

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed profiles.toml
var builtinCatalog []byte

// Default selections for a fresh display surface.
const (
	DefaultStylized = "robot"
	DefaultHuman    = "male_professional"
)

type catalogFile struct {
	Stylized []stylizedEntry `toml:"stylized"`
	Human    []humanEntry    `toml:"human"`
}

type stylizedEntry struct {
	ID       string   `toml:"id"`
	Name     string   `toml:"name"`
	Icon     string   `toml:"icon"`
	Colors   Palette  `toml:"colors"`
	Features Features `toml:"features"`
}

type humanEntry struct {
	ID          string       `toml:"id"`
	Name        string       `toml:"name"`
	Gender      string       `toml:"gender"`
	Icon        string       `toml:"icon"`
	SkinTone    string       `toml:"skin_tone"`
	HairColor   string       `toml:"hair_color"`
	HairStyle   HairStyle    `toml:"hair_style"`
	EyeColor    string       `toml:"eye_color"`
	Features    FaceFeatures `toml:"features"`
	Accessories Accessories  `toml:"accessories"`
}

func (e stylizedEntry) profile() Profile {
	return Profile{
		ID:          e.ID,
		Kind:        KindStylized,
		DisplayName: e.Name,
		Icon:        e.Icon,
		Palette:     e.Colors,
		Features:    e.Features,
	}
}

func (e humanEntry) profile() Profile {
	return Profile{
		ID:          e.ID,
		Kind:        KindHuman,
		DisplayName: e.Name,
		Icon:        e.Icon,
		Human: HumanTraits{
			Gender:      e.Gender,
			SkinTone:    e.SkinTone,
			HairColor:   e.HairColor,
			HairStyle:   e.HairStyle,
			EyeColor:    e.EyeColor,
			Face:        e.Features,
			Accessories: e.Accessories,
		},
	}
}

// Catalog groups the stylized and human stores.
type Catalog struct {
	Stylized *Store
	Human    *Store
}

// LoadCatalog decodes the built-in catalogue.
func LoadCatalog() (*Catalog, error) {
	return DecodeCatalog(bytes.NewReader(builtinCatalog))
}

// DecodeCatalog reads a TOML catalogue. Unknown keys are rejected so a
// misspelt field name fails at load time instead of being dropped.
func DecodeCatalog(r io.Reader) (*Catalog, error) {
	file, err := decodeFile(r)
	if err != nil {
		return nil, err
	}

	stylized := make([]Profile, 0, len(file.Stylized))
	for _, e := range file.Stylized {
		stylized = append(stylized, e.profile())
	}
	human := make([]Profile, 0, len(file.Human))
	for _, e := range file.Human {
		human = append(human, e.profile())
	}

	c := &Catalog{}
	if c.Stylized, err = NewStore(KindStylized, stylized...); err != nil {
		return nil, err
	}
	if c.Human, err = NewStore(KindHuman, human...); err != nil {
		return nil, err
	}
	return c, nil
}

// Merge adds the custom profiles found in r, filling defaults for blank
// fields. Ids already present, or repeated within r, are rejected. The file
// is checked as a whole, so a rejected merge leaves the catalogue unchanged.
func (c *Catalog) Merge(r io.Reader) error {
	file, err := decodeFile(r)
	if err != nil {
		return err
	}
	stylized := make([]Profile, 0, len(file.Stylized))
	for _, e := range file.Stylized {
		stylized = append(stylized, e.profile())
	}
	human := make([]Profile, 0, len(file.Human))
	for _, e := range file.Human {
		human = append(human, e.profile())
	}
	if err := c.Stylized.checkNew(stylized); err != nil {
		return err
	}
	if err := c.Human.checkNew(human); err != nil {
		return err
	}

	for _, p := range stylized {
		if err := c.Stylized.Add(p); err != nil {
			return err
		}
	}
	for _, p := range human {
		if err := c.Human.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// Store returns the store for kind.
func (c *Catalog) Store(kind Kind) (*Store, error) {
	switch kind {
	case KindStylized:
		return c.Stylized, nil
	case KindHuman:
		return c.Human, nil
	default:
		return nil, fmt.Errorf("avatar: unsupported kind %q", kind)
	}
}

// Lookup searches both stores, stylized first.
func (c *Catalog) Lookup(id string) (Profile, bool) {
	if p, ok := c.Stylized.Get(id); ok {
		return p, true
	}
	return c.Human.Get(id)
}

func decodeFile(r io.Reader) (catalogFile, error) {
	if r == nil {
		return catalogFile{}, errors.New("avatar: catalogue reader must not be nil")
	}
	var file catalogFile
	meta, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return catalogFile{}, fmt.Errorf("avatar: decode catalogue: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return catalogFile{}, fmt.Errorf("avatar: unknown catalogue keys: %s", strings.Join(keys, ", "))
	}
	return file, nil
}
