package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Logo is the result of a logo generation request.
type Logo struct {
	PNGBase64 string `json:"png_base64"`
	Prompt    string `json:"prompt"`
}

// LogoTool turns a short brand brief into a generated logo image.
type LogoTool struct {
	images ImageClient
}

func NewLogoTool(images ImageClient) *LogoTool {
	return &LogoTool{images: images}
}

// Generate creates a logo for the given brief and optional style hint.
func (t *LogoTool) Generate(ctx context.Context, brief, style string) (*Logo, error) {
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return nil, errors.New("brief is required")
	}

	prompt := logoPrompt(brief, style)
	data, err := t.images.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("image model returned empty data")
	}

	return &Logo{
		PNGBase64: base64.StdEncoding.EncodeToString(data),
		Prompt:    prompt,
	}, nil
}

func logoPrompt(brief, style string) string {
	prompt := fmt.Sprintf("A clean vector-style logo for a culinary business: %s.", brief)
	if s := strings.TrimSpace(style); s != "" {
		prompt += fmt.Sprintf(" Style: %s.", s)
	}
	prompt += " Flat design, plain background, no text artifacts."
	return prompt
}
