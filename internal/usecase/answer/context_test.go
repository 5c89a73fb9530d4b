package answer

import (
	"strings"
	"testing"

	"github.com/scholarmesh/paperdex/internal/domain/search/result"
)

func TestBuildContext_PaperEntry(t *testing.T) {
	papers := []result.Result{
		paperResult("p1", "Attention Is All You Need", "the transformer architecture", 0.912,
			[]string{"vaswani", "shazeer", "parmar", "uszkoreit"}, 2017),
	}

	got := buildContext(papers, nil)

	want := "## Relevant Research Papers:\n\n" +
		"1. **Attention Is All You Need**\n" +
		"   Authors: vaswani, shazeer, parmar et al.\n" +
		"   Year: 2017\n" +
		"   Abstract: the transformer architecture\n" +
		"   Relevance: 0.91\n\n"
	if got != want {
		t.Errorf("unexpected context block:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildContext_FacultyEntry(t *testing.T) {
	faculty := []result.Result{
		facultyResult("f1", "Dana Kim", "studies sequence models", 0.7,
			[]string{"nlp", "deep learning", "speech", "vision"}),
	}

	got := buildContext(nil, faculty)

	if !strings.Contains(got, "1. **Dana Kim**\n") {
		t.Errorf("expected faculty name heading, got:\n%s", got)
	}
	if !strings.Contains(got, "   Professor, Computer Science\n") {
		t.Errorf("expected title and department line, got:\n%s", got)
	}
	// areas cap at three with no suffix
	if !strings.Contains(got, "   Research Areas: nlp, deep learning, speech\n") {
		t.Errorf("expected first three research areas, got:\n%s", got)
	}
	if !strings.Contains(got, "   Bio: studies sequence models\n") {
		t.Errorf("expected bio line, got:\n%s", got)
	}
}

func TestBuildContext_ShortAuthorListNoSuffix(t *testing.T) {
	papers := []result.Result{
		paperResult("p1", "GANs", "generative nets", 0.8, []string{"goodfellow", "mirza"}, 2014),
	}

	got := buildContext(papers, nil)
	if strings.Contains(got, "et al.") {
		t.Errorf("two authors must not get an et al. suffix:\n%s", got)
	}
	if !strings.Contains(got, "   Authors: goodfellow, mirza\n") {
		t.Errorf("expected full author list, got:\n%s", got)
	}
}

func TestBuildContext_OmitsEmptySections(t *testing.T) {
	if got := buildContext(nil, nil); got != "" {
		t.Errorf("expected empty context for no results, got %q", got)
	}

	papers := []result.Result{paperResult("p1", "T", "a", 0.5, nil, 2020)}
	got := buildContext(papers, nil)
	if strings.Contains(got, "Faculty") {
		t.Errorf("expected no faculty section, got:\n%s", got)
	}
	if strings.Contains(got, "Authors:") {
		t.Errorf("expected no authors line without authors, got:\n%s", got)
	}
}

func TestBuildContext_NumbersEntriesIndependently(t *testing.T) {
	papers := []result.Result{
		paperResult("p1", "First", "a", 0.9, nil, 2020),
		paperResult("p2", "Second", "b", 0.8, nil, 2021),
	}
	faculty := []result.Result{
		facultyResult("f1", "Dana Kim", "bio", 0.7, nil),
	}

	got := buildContext(papers, faculty)
	if !strings.Contains(got, "2. **Second**") {
		t.Errorf("expected second paper numbered 2, got:\n%s", got)
	}
	// faculty numbering restarts
	if !strings.Contains(got, "1. **Dana Kim**") {
		t.Errorf("expected faculty numbering to restart at 1, got:\n%s", got)
	}
}
