package models

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrInvalidRole      = errors.New("invalid message role")
	ErrEmptyContent     = errors.New("message content is empty")
	ErrUnsupportedImage = errors.New("upload a png or jpeg image")
)

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Part is one fragment of a message's content. Only TextPart and ImagePart
// implement it.
type Part interface {
	Kind() string
	isPart()
}

type TextPart struct {
	Text string
}

func (TextPart) Kind() string { return "text" }
func (TextPart) isPart()      {}

// ImagePart holds raw image bytes; they are base64 encoded when sent.
type ImagePart struct {
	MIMEType string
	Data     []byte
}

func (ImagePart) Kind() string { return "image" }
func (ImagePart) isPart()      {}

// NewImagePart sniffs the image type from data.
func NewImagePart(data []byte) (ImagePart, error) {
	mimeType := http.DetectContentType(data)
	if !imageTypes[mimeType] {
		return ImagePart{}, fmt.Errorf("%w: got %s", ErrUnsupportedImage, mimeType)
	}
	return ImagePart{MIMEType: mimeType, Data: data}, nil
}

// DataURL renders the image as a data URL, e.g. data:image/png;base64,iVBOR...
func (p ImagePart) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", p.MIMEType, base64.StdEncoding.EncodeToString(p.Data))
}

type Message struct {
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	CreatedAt time.Time `json:"created_at"`
}

func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// Validate checks that the role is known and the content is non-empty.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
	}
	if len(m.Parts) == 0 {
		return ErrEmptyContent
	}
	for _, p := range m.Parts {
		switch p := p.(type) {
		case TextPart:
			if p.Text == "" {
				return ErrEmptyContent
			}
		case ImagePart:
			if len(p.Data) == 0 {
				return ErrEmptyContent
			}
		default:
			return fmt.Errorf("unknown content part %T", p)
		}
	}
	return nil
}

// Text joins the text parts of the message.
func (m Message) Text() string {
	var texts []string
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			texts = append(texts, t.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func (m Message) HasImage() bool {
	for _, p := range m.Parts {
		if _, ok := p.(ImagePart); ok {
			return true
		}
	}
	return false
}

// wirePart is the JSON shape of a Part.
type wirePart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

type wireMessage struct {
	Role      Role       `json:"role"`
	Parts     []wirePart `json:"parts"`
	CreatedAt time.Time  `json:"created_at"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	parts, err := encodeParts(m.Parts)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{Role: m.Role, Parts: parts, CreatedAt: m.CreatedAt})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	parts, err := decodeParts(w.Parts)
	if err != nil {
		return err
	}
	*m = Message{Role: w.Role, Parts: parts, CreatedAt: w.CreatedAt}
	return nil
}

// MarshalParts encodes only the content of a message.
func MarshalParts(parts []Part) ([]byte, error) {
	w, err := encodeParts(parts)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func UnmarshalParts(b []byte) ([]Part, error) {
	var w []wirePart
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return decodeParts(w)
}

func encodeParts(parts []Part) ([]wirePart, error) {
	w := make([]wirePart, 0, len(parts))
	for _, p := range parts {
		switch p := p.(type) {
		case TextPart:
			w = append(w, wirePart{Type: p.Kind(), Text: p.Text})
		case ImagePart:
			w = append(w, wirePart{Type: p.Kind(), MIMEType: p.MIMEType, Data: p.Data})
		default:
			return nil, fmt.Errorf("unknown content part %T", p)
		}
	}
	return w, nil
}

func decodeParts(w []wirePart) ([]Part, error) {
	parts := make([]Part, 0, len(w))
	for _, p := range w {
		switch p.Type {
		case "text":
			parts = append(parts, TextPart{Text: p.Text})
		case "image":
			parts = append(parts, ImagePart{MIMEType: p.MIMEType, Data: p.Data})
		default:
			return nil, fmt.Errorf("unknown content part type %q", p.Type)
		}
	}
	return parts, nil
}
