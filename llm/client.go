// xAI Provider implementation using go-openai library.
//
// Information Hiding:
// - Uses OpenAI-compatible API with the xAI base URL
// - HTTP client is pooled and wrapped by the search parameter transport
// - Streaming via go-openai library

package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultBaseURL is the xAI API root.
	DefaultBaseURL = "https://api.x.ai/v1"

	// DefaultTimeout bounds connection setup and response headers.
	DefaultTimeout = 30 * time.Second
)

// ClientConfig configures an XAIProvider.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Pool    PooledTransportConfig
	// Transport replaces the pooled transport. Tests point it at httptest.
	Transport http.RoundTripper
}

// XAIProvider implements the Provider interface for xAI.
type XAIProvider struct {
	client     *openai.Client
	httpClient *http.Client
}

// NewXAIProvider creates a new xAI provider.
func NewXAIProvider(cfg ClientConfig) *XAIProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	base := cfg.Transport
	if base == nil {
		base = NewPooledTransport(timeout, timeout, cfg.Pool)
	}
	httpClient := &http.Client{Transport: NewSearchTransport(base)}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = DefaultBaseURL
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = httpClient

	return &XAIProvider{
		client:     openai.NewClientWithConfig(config),
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (p *XAIProvider) Name() string {
	return "xai"
}

// StreamChat streams a chat completion.
func (p *XAIProvider) StreamChat(ctx context.Context, req openai.ChatCompletionRequest, opts RequestOptions) (ChunkStream, error) {
	req.Stream = true
	stream, err := p.client.CreateChatCompletionStream(WithSearchParameters(ctx, opts.Search), req)
	if err != nil {
		return nil, fmt.Errorf("stream creation failed: %w", err)
	}
	return stream, nil
}

// ListModels returns the ids of the models available to the API key.
func (p *XAIProvider) ListModels(ctx context.Context) ([]string, error) {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models failed: %w", err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// GenerateImage requests one base64 encoded image.
func (p *XAIProvider) GenerateImage(ctx context.Context, req ImageRequest) (ImagePayload, error) {
	model := req.Model
	if model == "" {
		model = DefaultImageModel
	}

	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          model,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return ImagePayload{}, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return ImagePayload{}, fmt.Errorf("%w: no image data returned", ErrImageGeneration)
	}

	data := resp.Data[0]
	switch {
	case data.B64JSON != "":
		return ImagePayload{Base64: data.B64JSON, RevisedPrompt: data.RevisedPrompt}, nil
	case data.URL != "":
		url := data.URL
		return ImagePayload{Pending: func(ctx context.Context) ([]byte, error) {
			return p.download(ctx, url)
		}, RevisedPrompt: data.RevisedPrompt}, nil
	default:
		return ImagePayload{}, fmt.Errorf("%w: empty image payload", ErrImageGeneration)
	}
}

func (p *XAIProvider) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image download returned %s", ErrImageGeneration, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Verify XAIProvider implements Provider
var _ Provider = (*XAIProvider)(nil)
