package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pinecone-io/go-pinecone/pinecone"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex runs a nearest-neighbour query inside a namespace.
type VectorIndex interface {
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.ContextSnippet, error)
}

var _ interfaces.ContextRetriever = (*ContextRetriever)(nil)

// ContextRetriever finds stored notes about a user that relate to a journey request.
// Each user's vectors live in the namespace "user-<id>".
type ContextRetriever struct {
	embedder Embedder
	index    VectorIndex
	budget   *TokenBudget
	topK     int
	logger   *zap.Logger
}

func NewContextRetriever(embedder Embedder, index VectorIndex, budget *TokenBudget, topK int, logger *zap.Logger) *ContextRetriever {
	if topK <= 0 {
		topK = 5
	}
	return &ContextRetriever{
		embedder: embedder,
		index:    index,
		budget:   budget,
		topK:     topK,
		logger:   logger.Named("ContextRetriever"),
	}
}

func UserNamespace(userID uuid.UUID) string {
	return "user-" + userID.String()
}

func (r *ContextRetriever) Retrieve(ctx context.Context, userID uuid.UUID, query string) ([]models.ContextSnippet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed context query: %w", err)
	}
	snippets, err := r.index.Query(ctx, UserNamespace(userID), vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query user context: %w", err)
	}
	trimmed := r.budget.Trim(snippets)
	r.logger.Debug("User context retrieved",
		zap.String("userID", userID.String()), zap.Int("matches", len(snippets)), zap.Int("kept", len(trimmed)))
	return trimmed, nil
}

// OpenAIEmbedder embeds text with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openaigo.Client
	model  openaigo.EmbeddingModel
}

func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: openaigo.NewClient(apiKey), model: openaigo.EmbeddingModel(model)}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openaigo.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response contained no vectors")
	}
	return resp.Data[0].Embedding, nil
}

// PineconeIndex queries a Pinecone serverless index by host.
type PineconeIndex struct {
	client *pinecone.Client
	host   string
}

func NewPineconeIndex(apiKey, host string) (*PineconeIndex, error) {
	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}
	return &PineconeIndex{client: pc, host: host}, nil
}

func (p *PineconeIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.ContextSnippet, error) {
	conn, err := p.client.Index(pinecone.NewIndexConnParams{Host: p.host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pinecone index: %w", err)
	}
	defer conn.Close()

	res, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	snippets := make([]models.ContextSnippet, 0, len(res.Matches))
	for _, match := range res.Matches {
		if match == nil || match.Vector == nil || match.Vector.Metadata == nil {
			continue
		}
		meta := match.Vector.Metadata.AsMap()
		text, _ := meta["text"].(string)
		if strings.TrimSpace(text) == "" {
			continue
		}
		source, _ := meta["source"].(string)
		snippets = append(snippets, models.ContextSnippet{
			ID:     match.Vector.Id,
			Text:   text,
			Score:  match.Score,
			Source: source,
		})
	}
	return snippets, nil
}
