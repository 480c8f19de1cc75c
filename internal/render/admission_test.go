package render

import (
	"testing"

	"github.com/chromedp/cdproto/network"
)

func TestBlockRequest(t *testing.T) {
	tests := []struct {
		name  string
		kind  network.ResourceType
		url   string
		block bool
	}{
		{"image always blocked", network.ResourceTypeImage, "https://cdn.example.com/logo.png", true},
		{"video media blocked", network.ResourceTypeMedia, "https://cdn.example.com/clip.mp4", true},
		{"webm media blocked", network.ResourceTypeMedia, "https://cdn.example.com/clip.webm?token=abc", true},
		{"audio media passes", network.ResourceTypeMedia, "https://stream.example.com/live.mp3", false},
		{"aac media passes", network.ResourceTypeMedia, "https://stream.example.com/live.aac", false},
		{"extensionless media passes", network.ResourceTypeMedia, "https://stream.example.com/hls/live", false},
		{"script passes", network.ResourceTypeScript, "https://cdn.example.com/app.js", false},
		{"document passes", network.ResourceTypeDocument, "https://example.com/", false},
		{"stylesheet passes", network.ResourceTypeStylesheet, "https://cdn.example.com/site.css", false},
		{"unparseable url passes", network.ResourceTypeMedia, "://bad", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := blockRequest(tt.kind, tt.url); got != tt.block {
				t.Fatalf("blockRequest(%s, %q) = %v, want %v", tt.kind, tt.url, got, tt.block)
			}
		})
	}
}
