// Package main provides the ingestion and demo CLI for the paperdex index.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/scholarmesh/paperdex/internal/domain"
	"github.com/scholarmesh/paperdex/internal/domain/batch"
	"github.com/scholarmesh/paperdex/internal/domain/collection/field"
	documentuc "github.com/scholarmesh/paperdex/internal/usecase/document"
)

var rootCmd = &cobra.Command{
	Use:   "paperdex-ingest",
	Short: "Paperdex dataset ingestion and demo tool",
	Long:  "CLI tool for loading paper and faculty datasets into the paperdex index and asking one-shot questions",
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the paper and faculty collections",
	RunE:  runSetup,
}

var papersCmd = &cobra.Command{
	Use:   "papers <file>",
	Short: "Ingest a papers JSON dataset",
	Long: `Ingests a JSON array of papers. Each entry:
  {"id": "...", "title": "...", "summary": "...", "authors": [...], "categories": [...], "published": "2024-01-15"}

Long abstracts are chunked on word boundaries; each chunk is indexed
separately with chunk position metadata.`,
	Args: cobra.ExactArgs(1),
	RunE: runPapers,
}

var facultyCmd = &cobra.Command{
	Use:   "faculty <file>",
	Short: "Ingest a faculty JSON dataset",
	Long: `Ingests a JSON array of faculty profiles. Each entry:
  {"name": "...", "title": "...", "department": "...", "research_areas": [...], "bio": "..."}`,
	Args: cobra.ExactArgs(1),
	RunE: runFaculty,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a one-shot question against the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(papersCmd)
	rootCmd.AddCommand(facultyCmd)
	rootCmd.AddCommand(askCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSetup(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	paperFields := mustFields([]fieldSpec{
		{"title", field.Tag},
		{"published", field.Tag},
		{"year", field.Numeric},
		{"authors", field.List},
		{"categories", field.List},
		{"chunk_index", field.Numeric},
		{"total_chunks", field.Numeric},
	})
	facultyFields := mustFields([]fieldSpec{
		{"name", field.Tag},
		{"title", field.Tag},
		{"department", field.Tag},
		{"research_areas", field.List},
	})

	for _, c := range []struct {
		name   string
		fields []field.Field
	}{
		{app.cfg.Retrieval.PaperCollection, paperFields},
		{app.cfg.Retrieval.FacultyCollection, facultyFields},
	} {
		if _, err := app.collections.Create(ctx, c.name, c.fields); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				fmt.Printf("Collection %q already exists\n", c.name)
				continue
			}
			return fmt.Errorf("create collection %q: %w", c.name, err)
		}
		fmt.Printf("Created collection %q\n", c.name)
	}

	return nil
}

// paperEntry matches the papers dataset JSON shape.
type paperEntry struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Authors    []string `json:"authors"`
	Categories []string `json:"categories"`
	Published  string   `json:"published"`
}

func runPapers(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	var papers []paperEntry
	if err := readJSONFile(args[0], &papers); err != nil {
		return err
	}
	fmt.Printf("Ingesting %d papers...\n", len(papers))

	docs := make([]documentuc.IngestDoc, 0, len(papers))
	for _, p := range papers {
		if p.Summary == "" {
			continue
		}

		numerics := map[string]float64{}
		if year := publishedYear(p.Published); year > 0 {
			numerics["year"] = float64(year)
		}

		docs = append(docs, documentuc.IngestDoc{
			ID:      sanitizeID(p.ID),
			Content: p.Summary,
			Tags: map[string]string{
				"title":     p.Title,
				"published": p.Published,
			},
			Numerics: numerics,
			Lists: map[string][]string{
				"authors":    p.Authors,
				"categories": p.Categories,
			},
		})
	}

	return ingestInBatches(app, app.cfg.Retrieval.PaperCollection, docs)
}

// facultyEntry matches the faculty dataset JSON shape. research_interests is
// accepted as a legacy alias for research_areas.
type facultyEntry struct {
	Name              string   `json:"name"`
	Title             string   `json:"title"`
	Department        string   `json:"department"`
	ResearchAreas     []string `json:"research_areas"`
	ResearchInterests []string `json:"research_interests"`
	Bio               string   `json:"bio"`
}

func runFaculty(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	var faculty []facultyEntry
	if err := readJSONFile(args[0], &faculty); err != nil {
		return err
	}
	fmt.Printf("Ingesting %d faculty profiles...\n", len(faculty))

	docs := make([]documentuc.IngestDoc, 0, len(faculty))
	for _, f := range faculty {
		areas := f.ResearchAreas
		if len(areas) == 0 {
			areas = f.ResearchInterests
		}

		content := f.Bio
		if content == "" {
			content = f.Name
		}

		docs = append(docs, documentuc.IngestDoc{
			Content: content,
			Tags: map[string]string{
				"name":       f.Name,
				"title":      f.Title,
				"department": f.Department,
			},
			Lists: map[string][]string{
				"research_areas": areas,
			},
		})
	}

	return ingestInBatches(app, app.cfg.Retrieval.FacultyCollection, docs)
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	start := time.Now()
	resp, err := app.answer.Ask(context.Background(), askRequest(args[0]))
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Println(resp.Answer)
	fmt.Println()
	fmt.Printf("Status: %s | Papers: %d | Faculty: %d | Tokens: %d in / %d out | Cost: $%.6f | Took: %s\n",
		resp.Status, len(resp.Papers), len(resp.Faculty),
		resp.InputTokens, resp.OutputTokens, resp.EstimatedCost,
		time.Since(start).Round(time.Millisecond))

	return nil
}

func ingestInBatches(app *app, collection string, docs []documentuc.IngestDoc) error {
	ctx := context.Background()
	batchSize := app.cfg.Retrieval.MaxBatchSize

	indexed, failed := 0, 0
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		results, err := app.documents.Ingest(ctx, collection, docs[i:end])
		if err != nil {
			return fmt.Errorf("ingest batch %d-%d: %w", i, end, err)
		}

		for _, res := range results {
			if res.Status() == batch.StatusOK {
				indexed++
			} else {
				failed++
				fmt.Printf("  failed %s: %v\n", res.ID(), res.Err())
			}
		}
		fmt.Printf("  %d/%d documents processed\n", end, len(docs))
	}

	fmt.Printf("Done: %d indexed, %d failed\n", indexed, failed)
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

type fieldSpec struct {
	name string
	typ  field.Type
}

func mustFields(specs []fieldSpec) []field.Field {
	fields := make([]field.Field, len(specs))
	for i, s := range specs {
		f, err := field.New(s.name, s.typ)
		if err != nil {
			panic(err)
		}
		fields[i] = f
	}
	return fields
}

// invalidIDChars matches everything a document identifier cannot contain.
var invalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// sanitizeID rewrites dataset identifiers (e.g. arXiv "2301.12345v2") into
// valid document IDs. An empty input stays empty so the service derives a
// content-hash ID.
func sanitizeID(id string) string {
	return invalidIDChars.ReplaceAllString(id, "_")
}

func publishedYear(published string) int {
	if len(published) < 4 {
		return 0
	}
	year, err := strconv.Atoi(published[:4])
	if err != nil {
		return 0
	}
	return year
}
