// Package knowledge implements the retrieval-augmented knowledge base over
// an embedded vector collection.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"parley/internal/domain"
)

// Config holds knowledge base settings.
type Config struct {
	// PersistPath keeps the collection on disk; empty keeps it in-memory.
	PersistPath string
	// Collection is the vector collection name.
	Collection string
	// ScoreThreshold is the minimum similarity for a hit to count as
	// relevant in SearchFormatted.
	ScoreThreshold float32
	ChunkSize      int
	ChunkOverlap   int
}

// Store implements domain.KnowledgeStore using chromem-go.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	chunker    *Chunker
	threshold  float32
	logger     *slog.Logger
}

// NewStore creates a knowledge store. The embedding function is injected so
// callers choose the embedding backend.
func NewStore(cfg Config, embed chromem.EmbeddingFunc, logger *slog.Logger) (*Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = "knowledge"
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = 0.3
	}

	var db *chromem.DB
	var err error
	if cfg.PersistPath != "" {
		db, err = chromem.NewPersistentDB(filepath.Join(cfg.PersistPath, "knowledge.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("create persistent knowledge db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("create knowledge collection: %w", err)
	}

	return &Store{
		db:         db,
		collection: collection,
		chunker:    NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		threshold:  cfg.ScoreThreshold,
		logger:     logger,
	}, nil
}

// Add chunks content and stores each chunk with its source. Returns the
// number of chunks stored.
func (s *Store) Add(ctx context.Context, content, source string) (int, error) {
	chunks := s.chunker.Split(content)
	if len(chunks) == 0 {
		return 0, nil
	}

	for i, chunk := range chunks {
		doc := chromem.Document{
			ID:      domain.NewID(),
			Content: chunk,
			Metadata: map[string]string{
				"source": source,
				"chunk":  fmt.Sprintf("%d/%d", i+1, len(chunks)),
			},
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return i, domain.NewDomainError("Store.Add", domain.ErrKnowledge, err.Error())
		}
	}

	s.logger.Debug("knowledge added", "source", source, "chunks", len(chunks))
	return len(chunks), nil
}

// AddFile reads the file at path and stores its chunks under the file name.
func (s *Store) AddFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, domain.NewDomainError("Store.AddFile", domain.ErrKnowledge, err.Error())
	}
	return s.Add(ctx, string(data), filepath.Base(path))
}

// Search returns up to limit hits ranked by similarity. No threshold is
// applied here; callers see raw scores.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]domain.KnowledgeResult, error) {
	if limit <= 0 {
		limit = 5
	}
	if n := s.collection.Count(); n == 0 {
		return nil, nil
	} else if limit > n {
		limit = n
	}

	hits, err := s.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, domain.NewDomainError("Store.Search", domain.ErrKnowledge, err.Error())
	}

	results := make([]domain.KnowledgeResult, 0, len(hits))
	for _, h := range hits {
		meta := make(map[string]any, len(h.Metadata))
		for k, v := range h.Metadata {
			meta[k] = v
		}
		results = append(results, domain.KnowledgeResult{
			Document: h.Content,
			Metadata: meta,
			Score:    float64(h.Similarity),
		})
	}
	return results, nil
}

// SearchFormatted renders relevant hits as a prompt-ready block. When no hit
// clears the score threshold it returns the no-information sentinel so the
// caller can fall back to web search.
func (s *Store) SearchFormatted(ctx context.Context, query string, limit int) (string, error) {
	results, err := s.Search(ctx, query, limit)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, r := range results {
		if r.Score < float64(s.threshold) {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if source, ok := r.Metadata["source"].(string); ok && source != "" {
			fmt.Fprintf(&b, "[%s] ", source)
		}
		b.WriteString(r.Document)
	}

	if b.Len() == 0 {
		return domain.NoRelevantInformation + "。", nil
	}
	return b.String(), nil
}

// Compile-time interface check.
var _ domain.KnowledgeStore = (*Store)(nil)
