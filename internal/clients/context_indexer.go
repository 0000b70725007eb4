package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

// VectorWriter stores one vector with metadata inside a namespace.
type VectorWriter interface {
	Upsert(ctx context.Context, namespace, id string, vector []float32, metadata map[string]interface{}) error
}

var _ interfaces.ContextIndexer = (*ContextIndexer)(nil)

// ContextIndexer embeds user information into the user's namespace, where
// ContextRetriever later looks for it.
type ContextIndexer struct {
	embedder Embedder
	writer   VectorWriter
	budget   *TokenBudget
	logger   *zap.Logger
}

func NewContextIndexer(embedder Embedder, writer VectorWriter, budget *TokenBudget, logger *zap.Logger) *ContextIndexer {
	return &ContextIndexer{
		embedder: embedder,
		writer:   writer,
		budget:   budget,
		logger:   logger.Named("ContextIndexer"),
	}
}

func (i *ContextIndexer) Index(ctx context.Context, userID uuid.UUID, doc models.ContextDocument) error {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil
	}
	if i.budget != nil {
		text = i.budget.TruncateText(text)
	}
	if doc.StoredAt.IsZero() {
		doc.StoredAt = time.Now()
	}
	if doc.ID == "" {
		doc.ID = fmt.Sprintf("%s-%s-%d", userID, doc.Source, doc.StoredAt.UnixMilli())
	}

	vector, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed %s document: %w", doc.Source, err)
	}
	metadata := map[string]interface{}{
		"text":      text,
		"source":    doc.Source,
		"user_id":   userID.String(),
		"timestamp": doc.StoredAt.UTC().Format(time.RFC3339),
	}
	if err := i.writer.Upsert(ctx, UserNamespace(userID), doc.ID, vector, metadata); err != nil {
		return fmt.Errorf("failed to store %s document: %w", doc.Source, err)
	}
	i.logger.Info("User context stored",
		zap.String("userID", userID.String()), zap.String("source", doc.Source), zap.String("vectorID", doc.ID))
	return nil
}

var _ VectorWriter = (*PineconeIndex)(nil)

func (p *PineconeIndex) Upsert(ctx context.Context, namespace, id string, vector []float32, metadata map[string]interface{}) error {
	meta, err := structpb.NewStruct(metadata)
	if err != nil {
		return fmt.Errorf("invalid vector metadata: %w", err)
	}
	conn, err := p.client.Index(pinecone.NewIndexConnParams{Host: p.host, Namespace: namespace})
	if err != nil {
		return fmt.Errorf("failed to connect to pinecone index: %w", err)
	}
	defer conn.Close()

	_, err = conn.UpsertVectors(ctx, []*pinecone.Vector{{
		Id:       id,
		Values:   vector,
		Metadata: meta,
	}})
	return err
}
