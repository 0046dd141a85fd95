// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/concept-engine/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, AnthropicAPIKey, "  sk-ant-123  \n")
				writeFile(t, dir, OpenAIAPIKey, "sk-oai")
				writeFile(t, dir, GeminiAPIKey, "gm-key\n")
				return dir
			},
			want: map[string]string{
				AnthropicAPIKey: "sk-ant-123",
				OpenAIAPIKey:    "sk-oai",
				GeminiAPIKey:    "gm-key",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, AnthropicAPIKey, "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{AnthropicAPIKey: "valid-key"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, OpenAIAPIKey, "sk-real")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{OpenAIAPIKey: "sk-real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	core, logs := observer.New(zap.WarnLevel)
	got, err := Load(dir, zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"good-key": "value123"}, got)
	assert.Equal(t, 1, logs.FilterMessage("could not read secret").Len())
}

func TestApply(t *testing.T) {
	s := map[string]string{
		AnthropicAPIKey: "ant",
		OpenAIAPIKey:    "oai",
		GeminiAPIKey:    "gem",
	}

	tests := []struct {
		name    string
		cfg     types.PipelineConfig
		wantGen string
		wantEmb string
	}{
		{
			name:    "openai provider",
			cfg:     types.PipelineConfig{Embedding: types.EmbeddingConfig{Provider: types.EmbeddingOpenAI}},
			wantGen: "ant",
			wantEmb: "oai",
		},
		{
			name:    "genai provider",
			cfg:     types.PipelineConfig{Embedding: types.EmbeddingConfig{Provider: types.EmbeddingGenAI}},
			wantGen: "ant",
			wantEmb: "gem",
		},
		{
			name:    "ollama needs no key",
			cfg:     types.PipelineConfig{Embedding: types.EmbeddingConfig{Provider: types.EmbeddingOllama}},
			wantGen: "ant",
		},
		{
			name: "configured keys win",
			cfg: types.PipelineConfig{
				Generation: types.GenerationConfig{APIKey: "from-env"},
				Embedding:  types.EmbeddingConfig{Provider: types.EmbeddingOpenAI, APIKey: "from-file"},
			},
			wantGen: "from-env",
			wantEmb: "from-file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			Apply(&cfg, s)
			assert.Equal(t, tt.wantGen, cfg.Generation.APIKey)
			assert.Equal(t, tt.wantEmb, cfg.Embedding.APIKey)
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
