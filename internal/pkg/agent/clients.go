package agent

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// ChatClient abstracts the chat completion capability used by agent tools.
type ChatClient interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageClient abstracts image generation used by agent tools.
type ImageClient interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// GeminiClient adapts the genai SDK to the tool client interfaces.
type GeminiClient struct {
	client     *genai.Client
	chatModel  string
	imageModel string
}

// NewGeminiClient creates a Gemini-backed client for both chat and image
// generation.
func NewGeminiClient(ctx context.Context, apiKey, chatModel, imageModel string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required for the agent client")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if chatModel == "" {
		chatModel = "gemini-2.0-flash"
	}
	if imageModel == "" {
		imageModel = "imagen-3.0-generate-002"
	}
	return &GeminiClient{client: client, chatModel: chatModel, imageModel: imageModel}, nil
}

func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.chatModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.7),
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (g *GeminiClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, errors.New("image model returned no image")
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}
