package embeddings

import (
	"context"

	chromem "github.com/philippgille/chromem-go"
)

// Embedder turns record text (title plus description) into vectors for
// the semantic search index. Implementations batch where the backend
// allows it.
type Embedder interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the width of the vectors this embedder produces.
	Dimensions() int

	// Name identifies the backing model, used to detect index/model
	// mismatches when a persisted index is reloaded.
	Name() string
}

// ToChromemFunc adapts an Embedder to the one-text-at-a-time function
// chromem-go wants.
func ToChromemFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) == 0 {
			return nil, nil
		}
		return vecs[0], nil
	}
}
