package vectorstore

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	chromem "github.com/philippgille/chromem-go"
	"google.golang.org/genai"
)

// NewEmbeddingFunc bridges a Genkit ai.Embedder to chromem-go's EmbeddingFunc.
// chromem-go normalizes vectors itself, so no manual normalization is needed.
func NewEmbeddingFunc(embedder ai.Embedder) chromem.EmbeddingFunc {
	return newEmbeddingFunc(embedder, nil)
}

// NewEmbeddingFuncWithDimensions is NewEmbeddingFunc with the output vector
// width pinned. Models like gemini-embedding-001 emit 3072 dimensions by
// default but support truncation; all stored vectors must share one width.
func NewEmbeddingFuncWithDimensions(embedder ai.Embedder, dimensions int) chromem.EmbeddingFunc {
	return newEmbeddingFunc(embedder, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(dimensions)),
	})
}

func newEmbeddingFunc(embedder ai.Embedder, options any) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := embedder.Embed(ctx, &ai.EmbedRequest{
			Input: []*ai.Document{
				ai.DocumentFromText(text, nil),
			},
			Options: options,
		})
		if err != nil {
			return nil, fmt.Errorf("embed failed: %w", err)
		}

		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}

		return resp.Embeddings[0].Embedding, nil
	}
}
