package document

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	domdoc "github.com/scholarmesh/paperdex/internal/domain/document"
)

// ListSeparator joins multi-valued field elements for tag indexing.
const ListSeparator = "|"

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
// List fields are stored twice: separator-joined under the field name for the
// tag index, and as JSON under __lists for lossless hydration. __text carries
// the denormalized keyword-search blob.
func buildHashFields(doc *domdoc.Document) map[string]string {
	m := make(map[string]string, 4+len(doc.Tags())+len(doc.Numerics())+len(doc.Lists()))
	m["__content"] = doc.Content()
	m["__text"] = searchText(doc)
	m["__vector"] = vectorToBytes(doc.Vector())
	for k, v := range doc.Tags() {
		m[k] = v
	}
	for k, v := range doc.Numerics() {
		m[k] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if len(doc.Lists()) > 0 {
		for k, v := range doc.Lists() {
			m[k] = strings.Join(v, ListSeparator)
		}
		if data, err := json.Marshal(doc.Lists()); err == nil {
			m["__lists"] = string(data)
		}
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Document.
func parseHashFields(id string, m map[string]string) domdoc.Document {
	var content string
	var vector []float32
	tags := make(map[string]string)
	numerics := make(map[string]float64)
	var lists map[string][]string

	if raw, ok := m["__lists"]; ok && raw != "" {
		_ = json.Unmarshal([]byte(raw), &lists)
	}

	for k, v := range m {
		switch k {
		case "__content":
			content = v
		case "__vector":
			vector = bytesToVector(v)
		case "__text", "__lists":
		default:
			if lists != nil {
				if _, isList := lists[k]; isList {
					continue
				}
			}
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				numerics[k] = f
			} else {
				tags[k] = v
			}
		}
	}

	return domdoc.Reconstruct(id, content, tags, numerics, lists, vector, 0)
}

// searchText composes the text the keyword index scans: content plus every
// tag and list value, so a term that appears only in a title or an author
// name still matches the document.
func searchText(doc *domdoc.Document) string {
	parts := make([]string, 0, 1+len(doc.Tags())+len(doc.Lists()))
	parts = append(parts, doc.Content())
	for _, k := range sortedKeys(doc.Tags()) {
		parts = append(parts, doc.Tags()[k])
	}
	for _, k := range sortedKeys(doc.Lists()) {
		parts = append(parts, strings.Join(doc.Lists()[k], " "))
	}
	return strings.Join(parts, "\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
