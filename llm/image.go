package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DefaultImageModel is the xAI image generation model.
const DefaultImageModel = "grok-2-image"

// ErrImageGeneration reports a missing or undecodable image payload.
var ErrImageGeneration = errors.New("image generation failed")

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// ImagePayload is the image returned by the provider. Exactly one of
// Bytes, Base64 and Pending is set.
type ImagePayload struct {
	Bytes   []byte
	Base64  string
	Pending func(ctx context.Context) ([]byte, error)

	// RevisedPrompt is the prompt the model actually used, when reported.
	RevisedPrompt string
}

// Resolve returns the raw image bytes, decoding or awaiting as needed.
func (p ImagePayload) Resolve(ctx context.Context) ([]byte, error) {
	switch {
	case len(p.Bytes) > 0:
		return p.Bytes, nil
	case p.Base64 != "":
		return DecodeBase64Image(p.Base64)
	case p.Pending != nil:
		data, err := p.Pending(ctx)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty image payload", ErrImageGeneration)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: no image payload", ErrImageGeneration)
	}
}

// DecodeBase64Image decodes base64 image text, stripping a leading
// "data:<mime>;base64," header when present.
func DecodeBase64Image(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "data:") {
		if i := strings.Index(text, ","); i >= 0 {
			text = text[i+1:]
		}
	}

	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageGeneration, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", ErrImageGeneration)
	}
	return data, nil
}

// SniffMimeType reports image/png for PNG magic bytes and image/jpeg otherwise.
func SniffMimeType(data []byte) string {
	if bytes.HasPrefix(data, pngMagic) {
		return "image/png"
	}
	// FF D8 is JPEG, which is also the fallback.
	return "image/jpeg"
}
