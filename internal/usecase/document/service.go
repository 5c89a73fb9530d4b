package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/scholarmesh/paperdex/internal/domain"
	"github.com/scholarmesh/paperdex/internal/domain/batch"
	"github.com/scholarmesh/paperdex/internal/domain/collection/field"
	domdoc "github.com/scholarmesh/paperdex/internal/domain/document"
	"github.com/scholarmesh/paperdex/internal/usecase/embedding"
)

// IngestDoc is one raw document submitted for indexing. An empty ID derives
// a content-hash identifier, so re-submitting identical content is idempotent.
type IngestDoc struct {
	ID       string
	Content  string
	Tags     map[string]string
	Numerics map[string]float64
	Lists    map[string][]string
}

// Service handles document CRUD with weighted vectorization and chunking.
// Writes to one collection are serialized behind a per-collection lock;
// different collections ingest independently.
type Service struct {
	repo            Repository
	colls           CollectionReader
	fields          FieldEmbedder
	maxTokens       int
	maxBatchSize    int
	defaultPageSize int
	maxPageSize     int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a document service.
func New(repo Repository, colls CollectionReader, fields FieldEmbedder) *Service {
	return &Service{
		repo:            repo,
		colls:           colls,
		fields:          fields,
		maxTokens:       embedding.DefaultMaxTokens,
		maxBatchSize:    100,
		defaultPageSize: 20,
		maxPageSize:     100,
		locks:           make(map[string]*sync.Mutex),
	}
}

// WithLimits configures chunking and batch limits.
func (s *Service) WithLimits(maxTokens, maxBatchSize int) *Service {
	if maxTokens > 0 {
		s.maxTokens = maxTokens
	}
	if maxBatchSize > 0 {
		s.maxBatchSize = maxBatchSize
	}
	return s
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

func (s *Service) collectionLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// Ingest indexes a batch of documents with per-item outcomes. Long content is
// split on word boundaries and every chunk becomes its own document carrying
// the parent metadata plus chunk_index/total_chunks. A failed item never
// leaves partial state; provider exhaustion cascades to the remaining items.
func (s *Service) Ingest(ctx context.Context, collectionName string, docs []IngestDoc) ([]batch.Result, error) {
	col, err := s.colls.Get(ctx, collectionName)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	if len(docs) > s.maxBatchSize {
		return nil, fmt.Errorf("batch too large (max %d): %w", s.maxBatchSize, domain.ErrInvalidSchema)
	}

	lock := s.collectionLock(collectionName)
	lock.Lock()
	defer lock.Unlock()

	results := make([]batch.Result, 0, len(docs))
	cascade := false
	var cascadeErr error

	for _, in := range docs {
		if cascade {
			results = append(results, batch.NewError(in.ID, cascadeErr))
			continue
		}

		ids, err := s.ingestOne(ctx, collectionName, col.VectorDim(), col.Fields(), in)
		if err != nil {
			results = append(results, batch.NewError(in.ID, err))
			if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrEmbeddingUnavailable) {
				cascade = true
				cascadeErr = err
			}
			continue
		}
		for _, id := range ids {
			results = append(results, batch.NewOK(id))
		}
	}

	return results, nil
}

// ingestOne chunks, embeds, and stores a single raw document.
// Returns the stored IDs, one per chunk.
func (s *Service) ingestOne(
	ctx context.Context, collectionName string, vectorDim int,
	schema []field.Field, in IngestDoc,
) ([]string, error) {
	if in.Content == "" {
		return nil, fmt.Errorf("content is required: %w", domain.ErrInvalidSchema)
	}
	if err := validateSchemaFields(in.Tags, in.Numerics, in.Lists, schema); err != nil {
		return nil, err
	}

	chunks := embedding.ChunkText(in.Content, s.maxTokens)

	var ids []string
	for i, chunk := range chunks {
		doc, err := s.buildChunkDoc(collectionName, in, chunk, i, len(chunks))
		if err != nil {
			s.rollbackChunks(ctx, collectionName, ids)
			return nil, err
		}

		res, err := s.fields.Build(ctx, s.weightedFields(in, chunk))
		if err != nil {
			s.rollbackChunks(ctx, collectionName, ids)
			return nil, fmt.Errorf("vectorize document: %w", err)
		}
		domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

		if vectorDim > 0 && len(res.Embedding) != vectorDim {
			s.rollbackChunks(ctx, collectionName, ids)
			return nil, fmt.Errorf(
				"vector dimension mismatch: got %d, want %d: %w",
				len(res.Embedding), vectorDim, domain.ErrDimensionMismatch,
			)
		}

		doc.SetVector(res.Embedding)
		if _, err := s.repo.Upsert(ctx, collectionName, &doc); err != nil {
			s.rollbackChunks(ctx, collectionName, ids)
			return nil, fmt.Errorf("upsert document: %w", err)
		}
		ids = append(ids, doc.ID())
	}

	return ids, nil
}

// rollbackChunks removes chunks stored before a mid-document failure so a
// failed item never stays partially indexed.
func (s *Service) rollbackChunks(ctx context.Context, collectionName string, ids []string) {
	for _, id := range ids {
		_ = s.repo.Delete(ctx, collectionName, id)
	}
}

// buildChunkDoc derives the chunk document with its identifier and position metadata.
func (s *Service) buildChunkDoc(
	collectionName string, in IngestDoc, chunk string, index, total int,
) (domdoc.Document, error) {
	id := in.ID
	if total > 1 {
		if id == "" {
			id = domdoc.DeriveChunkID(collectionName, in.Content, index)
		} else {
			id = fmt.Sprintf("%s_c%d", id, index)
		}
	} else if id == "" {
		id = domdoc.DeriveID(collectionName, in.Content)
	}

	doc, err := domdoc.New(id, chunk, in.Tags, in.Numerics, in.Lists)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}
	if total > 1 {
		doc = doc.WithNumerics(map[string]float64{
			"chunk_index":  float64(index),
			"total_chunks": float64(total),
		})
	}
	return doc, nil
}

// weightedFields assembles the field map for the weighted embedding: content
// under "abstract" plus every tag, with list fields joined for embedding.
func (s *Service) weightedFields(in IngestDoc, chunk string) map[string]string {
	fields := make(map[string]string, 1+len(in.Tags)+len(in.Lists))
	fields["abstract"] = chunk
	for k, v := range in.Tags {
		fields[k] = v
	}
	for k, v := range in.Lists {
		fields[k] = strings.Join(v, ", ")
	}
	return fields
}

// Get retrieves a document by collection and ID.
func (s *Service) Get(ctx context.Context, collectionName, id string) (domdoc.Document, error) {
	if _, err := s.colls.Get(ctx, collectionName); err != nil {
		return domdoc.Document{}, fmt.Errorf("get collection: %w", err)
	}

	doc, err := s.repo.Get(ctx, collectionName, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns a paginated list of documents.
func (s *Service) List(
	ctx context.Context, collectionName, cursor string, limit int,
) ([]domdoc.Document, string, error) {
	if _, err := s.colls.Get(ctx, collectionName); err != nil {
		return nil, "", fmt.Errorf("get collection: %w", err)
	}

	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	docs, nextCursor, err := s.repo.List(ctx, collectionName, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list documents: %w", err)
	}
	return docs, nextCursor, nil
}

// Delete removes a document.
func (s *Service) Delete(ctx context.Context, collectionName, id string) error {
	if _, err := s.colls.Get(ctx, collectionName); err != nil {
		return fmt.Errorf("get collection: %w", err)
	}

	lock := s.collectionLock(collectionName)
	lock.Lock()
	defer lock.Unlock()

	if err := s.repo.Delete(ctx, collectionName, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Reset removes every document in a collection, keeping the collection itself.
func (s *Service) Reset(ctx context.Context, collectionName string) (int, error) {
	if _, err := s.colls.Get(ctx, collectionName); err != nil {
		return 0, fmt.Errorf("get collection: %w", err)
	}

	lock := s.collectionLock(collectionName)
	lock.Lock()
	defer lock.Unlock()

	removed, err := s.repo.Reset(ctx, collectionName)
	if err != nil {
		return removed, fmt.Errorf("reset collection: %w", err)
	}
	return removed, nil
}

// Count returns the number of documents in a collection.
func (s *Service) Count(ctx context.Context, collectionName string) (int, error) {
	if _, err := s.colls.Get(ctx, collectionName); err != nil {
		return 0, fmt.Errorf("get collection: %w", err)
	}
	count, err := s.repo.Count(ctx, collectionName)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// validateSchemaFields checks tags, numerics, and lists against the collection schema.
func validateSchemaFields(
	tags map[string]string, numerics map[string]float64, lists map[string][]string,
	fields []field.Field,
) error {
	fieldTypes := make(map[string]field.Type)
	for _, f := range fields {
		fieldTypes[f.Name()] = f.FieldType()
	}

	check := func(key string, want field.Type) error {
		ft, ok := fieldTypes[key]
		if !ok {
			return fmt.Errorf(
				"unknown field %q (not in collection schema): %w",
				key, domain.ErrInvalidSchema,
			)
		}
		if ft != want {
			return fmt.Errorf(
				"field %q is %s, not %s: %w",
				key, ft, want, domain.ErrInvalidSchema,
			)
		}
		return nil
	}

	for k := range tags {
		if err := check(k, field.Tag); err != nil {
			return err
		}
	}
	for k := range numerics {
		if err := check(k, field.Numeric); err != nil {
			return err
		}
	}
	for k := range lists {
		if err := check(k, field.List); err != nil {
			return err
		}
	}

	return nil
}
