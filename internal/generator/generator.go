// Package generator talks to the external image generation model.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoImage means the model answered with text only.
	ErrNoImage = errors.New("generator returned no image")
	// ErrEmptyResponse means the model answered with neither image nor text.
	ErrEmptyResponse = errors.New("generator returned an empty response")
	// ErrUnavailable means no generator is configured.
	ErrUnavailable = errors.New("generator is not configured")
	// ErrUnknownCategory means the classifier reply was not one of the known labels.
	ErrUnknownCategory = errors.New("unrecognized item category")
)

type Image struct {
	Data     []byte
	MIMEType string
}

type Request struct {
	Base        Image
	Items       []Image // ordered; item k is image k+2 in the instruction
	Instruction string
}

type Output struct {
	Image    []byte
	MIMEType string
	Text     string
}

// Generator produces at most one composite image per call.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Output, error)
}

// Classifier names the kind of fashion item shown in an image.
type Classifier interface {
	Classify(ctx context.Context, img Image) (string, error)
}

// BuildInstruction composes the synthesis instruction for the given item
// types, in the order their images are sent after the base image.
func BuildInstruction(itemTypes []string) string {
	var b strings.Builder
	b.WriteString("Strictly follow these instructions:\n")
	b.WriteString("1. Use the first image (image 1) as the base person model.\n")
	b.WriteString("2. Apply the following items onto the person in the base image (image 1):\n")
	for i, t := range itemTypes {
		fmt.Fprintf(&b, "   - The '%s' item from image %d.\n", t, i+2)
	}
	b.WriteString("3. IMPORTANT: Keep the base person's original face, pose, body shape, and background strictly unchanged.\n")
	b.WriteString("4. Ensure all applied items fit naturally, realistically, and are consistent with each other.\n")
	b.WriteString("5. Maintain a photorealistic style and high quality for the final output image.\n")
	b.WriteString("Provide only the final synthesized image.")
	return b.String()
}

// NormalizeCategory lowercases reply, keeps only letters and checks it
// against allowed.
func NormalizeCategory(reply string, allowed []string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(reply) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	got := b.String()
	for _, a := range allowed {
		if got == a {
			return got, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, strings.TrimSpace(reply))
}

// Disabled is used when no API key is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, Request) (*Output, error) { return nil, ErrUnavailable }
func (Disabled) Classify(context.Context, Image) (string, error)     { return "", ErrUnavailable }
