package collection

import (
	"fmt"

	"github.com/scholarmesh/paperdex/internal/db"
	"github.com/scholarmesh/paperdex/internal/domain/collection/field"
)

// ListSeparator joins multi-valued field elements in hash storage. The tag
// index uses the same separator so each element matches exactly.
const ListSeparator = "|"

// buildIndex creates an IndexDefinition from domain collection fields.
// textSearchEnabled adds a TEXT field for __text (BM25 keyword search over
// the denormalized content-plus-metadata blob).
func buildIndex(
	name string, fields []field.Field, vectorDim int,
	textSearchEnabled bool, hnsw HNSWConfig,
) (*db.IndexDefinition, error) {
	extraFields := 1 // vector
	if textSearchEnabled {
		extraFields = 2 // vector + text
	}

	def := &db.IndexDefinition{
		Name:     indexName(name),
		Prefixes: []string{collectionPrefix(name)},
		Fields:   make([]db.IndexField, 0, len(fields)+extraFields),
	}

	for _, f := range fields {
		switch f.FieldType() {
		case field.Tag:
			def.Fields = append(def.Fields, db.IndexField{
				Name: f.Name(),
				Type: db.IndexFieldTag,
			})
		case field.Numeric:
			def.Fields = append(def.Fields, db.IndexField{
				Name: f.Name(),
				Type: db.IndexFieldNumeric,
			})
		case field.List:
			def.Fields = append(def.Fields, db.IndexField{
				Name:         f.Name(),
				Type:         db.IndexFieldTag,
				TagSeparator: ListSeparator,
			})
		default:
			return nil, fmt.Errorf("unknown field type: %s", f.FieldType())
		}
	}

	// TEXT field for BM25 keyword search (backend must support it)
	if textSearchEnabled {
		def.Fields = append(def.Fields, db.IndexField{
			Name: "__text",
			Type: db.IndexFieldText,
		})
	}

	def.Fields = append(def.Fields, db.IndexField{
		Name:              "__vector",
		Alias:             "vector",
		Type:              db.IndexFieldVector,
		VectorAlgo:        db.VectorHNSW,
		VectorDim:         vectorDim,
		VectorDistance:    db.DistanceCosine,
		VectorM:           hnsw.M,
		VectorEFConstruct: hnsw.EFConstruct,
	})

	return def, nil
}
