package inscription

import (
	"encoding/json"
	"strings"
)

// Kind classifies an inscription's content.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindImage
	KindProfileV1
	KindProfileV2
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindProfileV1:
		return "profileV1"
	case KindProfileV2:
		return "profileV2"
	default:
		return "unknown"
	}
}

// ProfileFields are the recognized fields of a JSON profile inscription.
type ProfileFields struct {
	P        string `json:"p,omitempty"`
	Username string `json:"username,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Content is the classified, displayable form of an inscription payload.
// Exactly one of Text, Profile, or the raw byte fields is meaningful,
// selected by Kind.
type Content struct {
	Kind    Kind
	Text    string
	Profile *ProfileFields
	// Image payloads are not eagerly decoded; rendering is deferred to the
	// detail view. Raw always holds the original payload bytes.
	Raw []byte
}

// Inscription is one discovered inscription output.
type Inscription struct {
	TxID        string
	OutputIndex uint32
	ContentType string
	SizeBytes   int
	Content     Content
}

// Classify maps (contentType, payload) to displayable content.
//
// JSON payloads are routed on the embedded "p" discriminator: "profile2" is
// profileV2, any other parseable JSON is profileV1. Unparseable JSON also
// falls back to profileV1 rather than unknown; this lenient default matches
// the upstream wallet's behavior and is deliberate.
func Classify(contentType string, payload []byte) Content {
	switch {
	case strings.Contains(contentType, "text/plain"):
		return Content{Kind: KindText, Text: string(payload), Raw: payload}

	case strings.Contains(contentType, "application/json"):
		var fields ProfileFields
		if err := json.Unmarshal(payload, &fields); err != nil {
			return Content{Kind: KindProfileV1, Profile: &ProfileFields{}, Raw: payload}
		}
		if fields.P == "profile2" {
			return Content{Kind: KindProfileV2, Profile: &fields, Raw: payload}
		}
		return Content{Kind: KindProfileV1, Profile: &fields, Raw: payload}

	case strings.HasPrefix(contentType, "image/"):
		return Content{Kind: KindImage, Raw: payload}

	default:
		return Content{Kind: KindUnknown, Raw: payload}
	}
}
