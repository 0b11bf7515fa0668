// Package nano wraps the Gemini image model behind a narrow Generator
// interface so the generation service can be tested against a stub.
package nano

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// Model is the Gemini model used for image generation and editing.
const Model = "gemini-2.5-flash-image-preview"

// DefaultTimeout bounds a single upstream call. The model is slow but a
// minute is enough; anything longer is treated as a failure.
const DefaultTimeout = 60 * time.Second

// InputImage is one user-supplied image attached to an edit request.
type InputImage struct {
	MIMEType string
	Data     []byte
}

// Output is the first image the model returned, plus any accompanying
// text part.
type Output struct {
	MIMEType string
	Data     []byte
	Text     string
}

// UpstreamError wraps any failure of the external model call: transport
// errors, timeouts and responses that contain no image data. The caller
// maps it to a 502 and leaves quota untouched.
type UpstreamError struct {
	Reason string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image model: %s: %v", e.Reason, e.Err)
	}
	return "image model: " + e.Reason
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Generator produces one image from a prompt and optional input images.
type Generator interface {
	Generate(ctx context.Context, apiKey, prompt string, images []InputImage) (*Output, error)
}

// Client calls the Gemini API. A fresh genai client is built per request
// because the API key is admin-rotatable at runtime.
type Client struct {
	Timeout time.Duration
}

func NewClient() *Client {
	return &Client{Timeout: DefaultTimeout}
}

// Generate sends the prompt (and any input images for edit modes) to the
// model and returns the first inline image from the response.
func (c *Client) Generate(ctx context.Context, apiKey, prompt string, images []InputImage) (*Output, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &UpstreamError{Reason: "client init failed", Err: err}
	}

	parts := make([]*genai.Part, 0, len(images)+1)
	parts = append(parts, genai.NewPartFromText(prompt))
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := client.Models.GenerateContent(ctx, Model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return nil, &UpstreamError{Reason: "generate call failed", Err: err}
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, &UpstreamError{Reason: "empty response"}
	}

	out := &Output{}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 && len(out.Data) == 0 {
			out.Data = part.InlineData.Data
			out.MIMEType = part.InlineData.MIMEType
		}
		if part.Text != "" && out.Text == "" {
			out.Text = part.Text
		}
	}
	if len(out.Data) == 0 {
		return nil, &UpstreamError{Reason: "response contained no image data"}
	}
	if out.MIMEType == "" {
		out.MIMEType = "image/png"
	}
	return out, nil
}
