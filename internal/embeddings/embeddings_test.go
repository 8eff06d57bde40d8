package embeddings

import (
	"context"
	"testing"
)

type fixedEmbedder struct {
	vec []float32
}

func (f fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f fixedEmbedder) Dimensions() int { return len(f.vec) }
func (f fixedEmbedder) Name() string    { return "fixed" }

func TestOpenAIDimensions(t *testing.T) {
	tests := []struct {
		model OpenAIModel
		want  int
	}{
		{ModelTextEmbedding3Small, 1536},
		{ModelTextEmbedding3Large, 3072},
		{OpenAIModel("someday-model"), 1536},
	}
	for _, tt := range tests {
		e := NewOpenAIEmbedder("key", tt.model)
		if got := e.Dimensions(); got != tt.want {
			t.Errorf("%s: dimensions = %d, want %d", tt.model, got, tt.want)
		}
	}
}

func TestOllamaDefaults(t *testing.T) {
	e := NewOllamaEmbedder("nomic-embed-text", 0, "")
	if e.Dimensions() != ollamaDefaultDimensions {
		t.Errorf("dimensions = %d, want %d", e.Dimensions(), ollamaDefaultDimensions)
	}
	if e.Name() != "ollama/nomic-embed-text" {
		t.Errorf("name = %q", e.Name())
	}
	if e.url != ollamaDefaultURL {
		t.Errorf("url = %q", e.url)
	}
}

func TestToChromemFunc(t *testing.T) {
	fn := ToChromemFunc(fixedEmbedder{vec: []float32{0.1, 0.2}})
	vec, err := fn(context.Background(), "fix login flow")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("vector = %v", vec)
	}
}
