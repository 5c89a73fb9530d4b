package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/scholarmesh/paperdex/internal/db"
	"github.com/scholarmesh/paperdex/internal/domain"
)

// --- Create ---

func TestCreate_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	col := testCollection(t)

	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return false, nil }
	ms.hsetFn = func(_ context.Context, key string, _ map[string]string) error {
		if key != "paperdex:collection:papers" {
			t.Errorf("unexpected key: %s", key)
		}
		return nil
	}
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		if def.Name != "paperdex:papers:idx" {
			t.Errorf("unexpected index name: %s", def.Name)
		}
		return nil
	}

	err := repo.Create(ctx, col)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_IndexSchema(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	col := testCollection(t)

	var def *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, d *db.IndexDefinition) error {
		def = d
		return nil
	}

	if err := repo.Create(ctx, col); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def == nil {
		t.Fatal("expected index creation")
	}

	byName := make(map[string]db.IndexField, len(def.Fields))
	for _, f := range def.Fields {
		byName[f.Name] = f
	}

	if byName["title"].Type != db.IndexFieldTag {
		t.Errorf("expected title indexed as tag, got %v", byName["title"].Type)
	}
	if byName["year"].Type != db.IndexFieldNumeric {
		t.Errorf("expected year indexed as numeric, got %v", byName["year"].Type)
	}
	if byName["authors"].TagSeparator != ListSeparator {
		t.Errorf("expected list field with separator, got %q", byName["authors"].TagSeparator)
	}
	if byName["__text"].Type != db.IndexFieldText {
		t.Error("expected text field for keyword search")
	}

	vec := byName["__vector"]
	if vec.VectorDim != testVectorDim || vec.VectorDistance != db.DistanceCosine {
		t.Errorf("unexpected vector field: %+v", vec)
	}
}

func TestCreate_NoTextFieldWithoutBackendSupport(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.supportsTextSearch = false

	var def *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, d *db.IndexDefinition) error {
		def = d
		return nil
	}

	if err := repo.Create(context.Background(), testCollection(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range def.Fields {
		if f.Name == "__text" {
			t.Fatal("expected no text field when the backend lacks text search")
		}
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	col := testCollection(t)

	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }

	err := repo.Create(ctx, col)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_HSetError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	col := testCollection(t)

	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		return errors.New("connection lost")
	}

	err := repo.Create(ctx, col)
	if err == nil {
		t.Fatal("expected error on HSET failure")
	}
}

func TestCreate_IndexError_RollbackOK(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	col := testCollection(t)

	var delCalled bool
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return errors.New("index limit reached")
	}
	ms.delFn = func(_ context.Context, key string) error {
		delCalled = true
		if key != "paperdex:collection:papers" {
			t.Errorf("unexpected DEL key: %s", key)
		}
		return nil
	}

	err := repo.Create(ctx, col)
	if err == nil {
		t.Fatal("expected error on index creation failure")
	}
	if !delCalled {
		t.Error("expected DEL to be called for rollback")
	}
}

// --- Get ---

func TestGet_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "paperdex:collection:papers" {
			t.Errorf("unexpected key: %s", key)
		}
		return map[string]string{
			"name":        "papers",
			"fields_json": `[{"name":"title","type":"tag"},{"name":"authors","type":"list"}]`,
			"vector_dim":  "1536",
			"created_at":  "1700000000000",
			"revision":    "1",
		}, nil
	}

	col, err := repo.Get(ctx, "papers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Name() != "papers" {
		t.Fatalf("expected name papers, got %s", col.Name())
	}
	if col.VectorDim() != 1536 {
		t.Fatalf("expected vector_dim 1536, got %d", col.VectorDim())
	}
	if len(col.Fields()) != 2 || col.Fields()[1].Name() != "authors" {
		t.Fatalf("unexpected fields: %+v", col.Fields())
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{}, nil
	}

	_, err := repo.Get(ctx, "nonexistent")
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

// --- List ---

func TestList_SortedByCreation(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return []string{"paperdex:collection:papers", "paperdex:collection:faculty"}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		return []map[string]string{
			{
				"name": "papers", "fields_json": "[]",
				"vector_dim": "1536", "created_at": "1700000000002",
			},
			{
				"name": "faculty", "fields_json": "[]",
				"vector_dim": "1536", "created_at": "1700000000001",
			},
		}, nil
	}

	cols, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(cols))
	}
	if cols[0].Name() != "faculty" {
		t.Fatalf("expected earlier collection first, got %s", cols[0].Name())
	}
}

func TestList_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return nil, nil
	}

	cols, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 0 {
		t.Fatalf("expected empty list, got %d", len(cols))
	}
}

// --- Delete ---

func TestDelete_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{
			"name": "papers", "fields_json": "[]",
			"vector_dim": "1536", "created_at": "1700000000000",
		}, nil
	}
	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }

	err := repo.Delete(ctx, "papers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{}, nil
	}

	err := repo.Delete(ctx, "nonexistent")
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestDelete_DropIndexError_RestoresMetadata(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	meta := map[string]string{
		"name": "papers", "fields_json": "[]",
		"vector_dim": "1536", "created_at": "1700000000000",
	}
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return meta, nil
	}
	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.dropIndexFn = func(_ context.Context, _ string) error {
		return errors.New("index busy")
	}

	var restored bool
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		restored = true
		if key != "paperdex:collection:papers" {
			t.Errorf("unexpected restore key: %s", key)
		}
		if fields["name"] != "papers" {
			t.Errorf("expected metadata backup restored, got %v", fields)
		}
		return nil
	}

	err := repo.Delete(ctx, "papers")
	if err == nil {
		t.Fatal("expected error on index drop failure")
	}
	if !restored {
		t.Error("expected metadata restored after drop failure")
	}
}
