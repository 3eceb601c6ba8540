// Package avatar holds the static avatar catalogue: profile descriptors,
// the feature tags that select drawing routines, and the current-selection
// state used by a display surface.
package avatar

import "strings"

// Kind distinguishes the two rendering variants.
type Kind string

const (
	KindStylized Kind = "stylized"
	KindHuman    Kind = "human"
)

// Feature tags. Each value selects one drawing routine; renderers fall back
// to a default routine for values they do not know.
type (
	HeadShape  string
	EyeStyle   string
	MouthStyle string
	HairStyle  string
	FaceShape  string
	NoseStyle  string
	BeardStyle string
)

const (
	HeadCircular HeadShape = "circular"
	HeadRounded  HeadShape = "rounded"
)

const (
	EyesDigital    EyeStyle = "digital"
	EyesHappy      EyeStyle = "happy"
	EyesFocused    EyeStyle = "focused"
	EyesSparkle    EyeStyle = "sparkle"
	EyesMysterious EyeStyle = "mysterious"
	EyesExcited    EyeStyle = "excited"
	EyesSerene     EyeStyle = "serene"
	EyesKawaii     EyeStyle = "kawaii"
)

const (
	MouthRobotic MouthStyle = "robotic"
	MouthSmile   MouthStyle = "smile"
	MouthNeutral MouthStyle = "neutral"
	MouthGrin    MouthStyle = "grin"
	MouthSubtle  MouthStyle = "subtle"
	MouthWide    MouthStyle = "wide"
	MouthGentle  MouthStyle = "gentle"
	MouthCute    MouthStyle = "cute"
)

const (
	HairShort    HairStyle = "short"
	HairLong     HairStyle = "long"
	HairBob      HairStyle = "bob"
	HairPonytail HairStyle = "ponytail"
	HairCurly    HairStyle = "curly"
	HairBuzz     HairStyle = "buzz"
	HairMessy    HairStyle = "messy"
	HairReceding HairStyle = "receding"
)

const (
	FaceOval   FaceShape = "oval"
	FaceRound  FaceShape = "round"
	FaceSquare FaceShape = "square"
	FaceHeart  FaceShape = "heart"
)

const (
	NoseSmall  NoseStyle = "small"
	NoseMedium NoseStyle = "medium"
	NoseLarge  NoseStyle = "large"
	NoseButton NoseStyle = "button"
)

const (
	BeardNone    BeardStyle = ""
	BeardStubble BeardStyle = "stubble"
	BeardShort   BeardStyle = "short"
	BeardFull    BeardStyle = "full"
)

// Emotion selects the static mouth and eyebrow shapes when not speaking.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionAngry     Emotion = "angry"
	EmotionSurprised Emotion = "surprised"
)

// ParseEmotion maps free-form input onto a known emotion. Anything
// unrecognised is neutral.
func ParseEmotion(s string) Emotion {
	switch e := Emotion(strings.ToLower(strings.TrimSpace(s))); e {
	case EmotionHappy, EmotionSad, EmotionAngry, EmotionSurprised:
		return e
	default:
		return EmotionNeutral
	}
}

// Palette is the three-colour scheme of a stylized avatar.
type Palette struct {
	Primary   string `toml:"primary"`
	Secondary string `toml:"secondary"`
	Accent    string `toml:"accent"`
}

// Features are the stylized avatar's feature tags.
type Features struct {
	Head  HeadShape  `toml:"head"`
	Eyes  EyeStyle   `toml:"eyes"`
	Mouth MouthStyle `toml:"mouth"`
}

// FaceFeatures are the human avatar's facial feature tags.
type FaceFeatures struct {
	Shape   FaceShape `toml:"face_shape"`
	Jawline string    `toml:"jawline"`
	Nose    NoseStyle `toml:"nose"`
	Lips    string    `toml:"lips"`
}

// Accessories are the optional layers drawn over a human face.
type Accessories struct {
	Glasses   bool       `toml:"glasses"`
	Beard     BeardStyle `toml:"beard"`
	Mustache  bool       `toml:"mustache"`
	Earrings  bool       `toml:"earrings"`
	Makeup    string     `toml:"makeup"`
	Wrinkles  bool       `toml:"wrinkles"`
	Piercings bool       `toml:"piercings"`
	Athletic  bool       `toml:"athletic"`
}

// HumanTraits describe a human-style avatar.
type HumanTraits struct {
	Gender      string
	SkinTone    string
	HairColor   string
	HairStyle   HairStyle
	EyeColor    string
	Face        FaceFeatures
	Accessories Accessories
}

// Profile is the immutable visual descriptor of one avatar.
type Profile struct {
	ID          string
	Kind        Kind
	DisplayName string
	Icon        string

	// Stylized variant.
	Palette  Palette
	Features Features

	// Human variant.
	Human HumanTraits
}
