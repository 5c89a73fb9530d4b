package document

import (
	"fmt"
	"regexp"
)

var (
	idRegex     = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	reservedIDs = map[string]bool{"search": true, "collections": true, "ask": true}
)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 163840 // 160KB

// Document is the document aggregate (immutable value object).
// Lists hold multi-valued metadata such as authors or categories.
type Document struct {
	id       string
	content  string
	tags     map[string]string
	numerics map[string]float64
	lists    map[string][]string
	vector   []float32
	revision int
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars, not reserved.
// Content: non-empty, max 160KB. Field schema validation happens in the service layer.
func New(id, content string, tags map[string]string, numerics map[string]float64, lists map[string][]string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if reservedIDs[id] {
		return Document{}, fmt.Errorf("document ID %q is reserved", id)
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}

	return Document{
		id:       id,
		content:  content,
		tags:     cloneStringMap(tags),
		numerics: cloneFloat64Map(numerics),
		lists:    cloneListMap(lists),
		revision: 1,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, content string,
	tags map[string]string, numerics map[string]float64, lists map[string][]string,
	vector []float32, revision int,
) Document {
	return Document{id: id, content: content, tags: tags, numerics: numerics, lists: lists, vector: vector, revision: revision}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the document text content.
func (d *Document) Content() string { return d.content }

// Tags returns the tag metadata fields.
func (d *Document) Tags() map[string]string { return d.tags }

// Numerics returns the numeric metadata fields.
func (d *Document) Numerics() map[string]float64 { return d.numerics }

// Lists returns the multi-valued metadata fields.
func (d *Document) Lists() map[string][]string { return d.lists }

// Vector returns the embedding vector.
func (d *Document) Vector() []float32 { return d.vector }

// Revision returns the document revision number.
func (d *Document) Revision() int { return d.revision }

// WithVector returns a copy with the given vector set.
func (d *Document) WithVector(v []float32) Document {
	return Document{
		id: d.id, content: d.content,
		tags: d.tags, numerics: d.numerics, lists: d.lists,
		vector: v, revision: d.revision,
	}
}

// SetVector sets the vector in place (mutation).
func (d *Document) SetVector(v []float32) { d.vector = v }

// WithNumerics returns a copy with extra numeric fields merged in.
// Used by the chunker to attach chunk position metadata.
func (d *Document) WithNumerics(extra map[string]float64) Document {
	merged := make(map[string]float64, len(d.numerics)+len(extra))
	for k, v := range d.numerics {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return Document{
		id: d.id, content: d.content,
		tags: d.tags, numerics: merged, lists: d.lists,
		vector: d.vector, revision: d.revision,
	}
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneFloat64Map(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	c := make(map[string]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneListMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	c := make(map[string][]string, len(m))
	for k, v := range m {
		vv := make([]string, len(v))
		copy(vv, v)
		c[k] = vv
	}
	return c
}
