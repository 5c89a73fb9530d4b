package document

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/scholarmesh/paperdex/internal/db"
	"github.com/scholarmesh/paperdex/internal/domain"
	domdoc "github.com/scholarmesh/paperdex/internal/domain/document"
)

// store is the consumer interface for documents (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements usecase/document.Repository.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert creates or updates a document with full-replace semantics.
// Returns true if created. DEL before HSET so stale fields never survive.
func (r *Repo) Upsert(ctx context.Context, collectionName string, doc *domdoc.Document) (bool, error) {
	key := docKey(collectionName, doc.ID())
	fields := buildHashFields(doc)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	if exists {
		if err := r.store.Del(ctx, key); err != nil {
			return false, fmt.Errorf("del %s: %w", key, err)
		}
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}

	return !exists, nil
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, collectionName, id string) (domdoc.Document, error) {
	key := docKey(collectionName, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return parseHashFields(id, m), nil
}

// List returns documents with cursor-based pagination.
func (r *Repo) List(ctx context.Context, collectionName, cursor string, limit int) (
	[]domdoc.Document, string, error,
) {
	if limit <= 0 {
		limit = 20
	}

	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor %q: %w: %w", cursor, domain.ErrInvalidSchema, err)
		}
		offset = parsed
	}

	idxName := indexName(collectionName)
	fetchCount := limit + 1

	result, err := r.store.SearchList(ctx, idxName, "*", offset, fetchCount, nil)
	if err != nil {
		return nil, "", fmt.Errorf("search list %s: %w", collectionName, err)
	}

	if result == nil || result.Total == 0 {
		return nil, "", nil
	}

	docs := make([]domdoc.Document, 0, limit)
	for i, entry := range result.Entries {
		if i >= limit {
			break
		}
		docID := extractDocID(entry.Key, collectionName)
		docs = append(docs, parseHashFields(docID, entry.Fields))
	}

	var nextCursor string
	if len(result.Entries) > limit {
		nextCursor = strconv.Itoa(offset + limit)
	}

	return docs, nextCursor, nil
}

// Count returns the number of documents in a collection.
func (r *Repo) Count(ctx context.Context, collectionName string) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName(collectionName), "*")
	if err != nil {
		return 0, fmt.Errorf("search count %s: %w", collectionName, err)
	}
	return n, nil
}

// Delete removes a document.
func (r *Repo) Delete(ctx context.Context, collectionName, id string) error {
	key := docKey(collectionName, id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// Reset deletes every document in a collection. The index and collection
// metadata stay in place. Returns the number of documents removed.
func (r *Repo) Reset(ctx context.Context, collectionName string) (int, error) {
	keys, err := r.store.Scan(ctx, docKey(collectionName, "*"))
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", collectionName, err)
	}

	removed := 0
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return removed, fmt.Errorf("del %s: %w", key, err)
		}
		removed++
	}
	return removed, nil
}

func docKey(collection, id string) string {
	return fmt.Sprintf("%s%s:%s", domain.KeyPrefix, collection, id)
}

func indexName(collection string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, collection)
}

func extractDocID(key, collection string) string {
	prefix := fmt.Sprintf("%s%s:", domain.KeyPrefix, collection)
	return strings.TrimPrefix(key, prefix)
}
