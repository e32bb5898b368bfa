package formindex

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/core/textutil"
)

// Index resolves form and document requests against a YAML-maintained
// inventory. The inventory is small and curated by hand, so it is loaded
// whole at startup.
type Index struct {
	entries []Entry
}

type Entry struct {
	DocumentID string   `yaml:"document_id"`
	Filename   string   `yaml:"filename"`
	Title      string   `yaml:"title"`
	Keywords   []string `yaml:"keywords"`
}

type inventoryFile struct {
	Forms []Entry `yaml:"forms"`
}

func Load(r io.Reader) (*Index, error) {
	var file inventoryFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode form inventory: %w", err)
	}

	entries := make([]Entry, 0, len(file.Forms))
	for i, entry := range file.Forms {
		if entry.DocumentID == "" || entry.Filename == "" {
			return nil, fmt.Errorf("form inventory entry %d missing document_id or filename", i)
		}
		normalized := make([]string, 0, len(entry.Keywords))
		for _, kw := range entry.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				normalized = append(normalized, kw)
			}
		}
		entry.Keywords = normalized
		entries = append(entries, entry)
	}
	return &Index{entries: entries}, nil
}

func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open form inventory: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Resolve scores every inventory entry by the share of its keywords found in
// the query terms. Entries with no keyword hit are omitted.
func (idx *Index) Resolve(_ context.Context, terms []string) ([]domain.DocumentRef, error) {
	termSet := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		termSet[term] = struct{}{}
		for _, token := range textutil.Tokenize(term) {
			termSet[token] = struct{}{}
		}
	}
	if len(termSet) == 0 {
		return nil, nil
	}

	refs := make([]domain.DocumentRef, 0, 4)
	for _, entry := range idx.entries {
		if len(entry.Keywords) == 0 {
			continue
		}
		matched := 0
		for _, kw := range entry.Keywords {
			if keywordMatches(kw, termSet) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		refs = append(refs, domain.DocumentRef{
			DocumentID: entry.DocumentID,
			Filename:   entry.Filename,
			Title:      entry.Title,
			Score:      float64(matched) / float64(len(entry.Keywords)),
		})
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Score != refs[j].Score {
			return refs[i].Score > refs[j].Score
		}
		return refs[i].DocumentID < refs[j].DocumentID
	})
	return refs, nil
}

// keywordMatches accepts a keyword when the term set carries the keyword
// itself or every token of a multi-word keyword.
func keywordMatches(keyword string, termSet map[string]struct{}) bool {
	if _, ok := termSet[keyword]; ok {
		return true
	}
	tokens := textutil.Tokenize(keyword)
	if len(tokens) == 0 {
		return false
	}
	for _, token := range tokens {
		if _, ok := termSet[token]; !ok {
			return false
		}
	}
	return true
}
