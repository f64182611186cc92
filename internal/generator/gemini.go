package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wowjjang83/ai-style-synthesis/config"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"

	"google.golang.org/genai"
)

// contentAPI is the subset of *genai.Models used here.
type contentAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements Generator and Classifier on the Gemini API.
type Gemini struct {
	api           contentAPI
	model         string
	classifyModel string
	timeout       time.Duration
}

func NewGemini(ctx context.Context, cfg *config.GeminiConfig) (*Gemini, error) {
	if !cfg.Enabled() {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newGemini(client.Models, cfg), nil
}

func newGemini(api contentAPI, cfg *config.GeminiConfig) *Gemini {
	g := &Gemini{api: api, model: cfg.Model, classifyModel: cfg.ClassifyModel, timeout: cfg.Timeout}
	if g.classifyModel == "" {
		g.classifyModel = g.model
	}
	return g
}

func (g *Gemini) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Gemini) Generate(ctx context.Context, req Request) (*Output, error) {
	if len(req.Base.Data) == 0 {
		return nil, errors.New("base image is empty")
	}
	parts := make([]*genai.Part, 0, len(req.Items)+2)
	parts = append(parts, genai.NewPartFromBytes(req.Base.Data, req.Base.MIMEType))
	for _, it := range req.Items {
		parts = append(parts, genai.NewPartFromBytes(it.Data, it.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Instruction))

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	resp, err := g.api.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return extractOutput(resp)
}

func (g *Gemini) Classify(ctx context.Context, img Image) (string, error) {
	prompt := "Analyze the image and identify the main fashion item shown. " +
		"Choose the most appropriate category ONLY from the following list: " +
		strings.Join(domain.ItemCategories, ", ") + ". " +
		"Respond with ONLY the single category name in lowercase. For example, if it's a t-shirt, respond with 'top'."
	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, img.MIMEType),
		genai.NewPartFromText(prompt),
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	resp, err := g.api.GenerateContent(ctx, g.classifyModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	out, err := extractOutput(resp)
	if err != nil && !errors.Is(err, ErrNoImage) {
		return "", err
	}
	text := ""
	if out != nil {
		text = out.Text
	}
	return NormalizeCategory(text, domain.ItemCategories)
}

// extractOutput takes the first inline image part and joins all text parts.
// Text without an image returns the output together with ErrNoImage.
func extractOutput(resp *genai.GenerateContentResponse) (*Output, error) {
	if resp == nil {
		return nil, ErrEmptyResponse
	}
	out := &Output{}
	var texts []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p == nil {
				continue
			}
			if p.InlineData != nil && out.Image == nil &&
				strings.HasPrefix(p.InlineData.MIMEType, "image/") && len(p.InlineData.Data) > 0 {
				out.Image = p.InlineData.Data
				out.MIMEType = p.InlineData.MIMEType
				continue
			}
			if t := strings.TrimSpace(p.Text); t != "" {
				texts = append(texts, t)
			}
		}
		if out.Image != nil {
			break
		}
	}
	out.Text = strings.Join(texts, "\n")
	switch {
	case out.Image != nil:
		return out, nil
	case out.Text != "":
		return out, ErrNoImage
	default:
		return nil, ErrEmptyResponse
	}
}
