package tools

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/starford/muninn/internal/fulltext"
	"github.com/starford/muninn/internal/models"
)

const defaultContentHits = 20

func searchTools(env Env) []Tool {
	return []Tool{
		{
			Name:        "search_files",
			Description: "Search vault files. mode 'name' (default) matches file names and paths; mode 'content' searches file text.",
			Params: []Param{
				{Name: "query", Type: TypeString, Description: "Text to search for", Required: true, Aliases: []string{"q", "term", "search", "keyword", "text"}},
				{Name: "mode", Type: TypeString, Description: "'name' or 'content'", Enum: []string{"name", "content"}, Aliases: []string{"type", "search_type"}},
				{Name: "limit", Type: TypeInteger, Description: "Maximum content hits", Aliases: []string{"max_results", "maxResults"}},
			},
			Trust: Immediate,
			Run: func(_ context.Context, args Args) Result {
				query, err := args.String("query")
				if err != nil {
					return errResult(err)
				}
				if strings.EqualFold(args.OptionalString("mode", "name"), "content") {
					return searchContent(env, query, args.Int("limit", defaultContentHits))
				}
				files := env.Index.SearchByNameOrPath(query)
				if len(files) == 0 {
					return NewSuccessResultWithData(fmt.Sprintf("No files match %q.", query), []string{})
				}
				found := make([]string, len(files))
				for i, f := range files {
					found[i] = f.Path
				}
				return NewSuccessResultWithData(strings.Join(found, "\n"), found)
			},
		},
		{
			Name:        "get_backlinks",
			Description: "List the files that link to the given file with [[wikilinks]].",
			Params:      []Param{pathParam},
			Trust:       Immediate,
			Run: func(_ context.Context, args Args) Result {
				p, err := pathArg(args)
				if err != nil {
					return errResult(err)
				}
				var sources []string
				if env.Fulltext != nil {
					sources, err = env.Fulltext.Backlinks(p)
					if err != nil {
						return errResult(err)
					}
				} else {
					sources = scanBacklinks(env.Index.All(), p)
				}
				if len(sources) == 0 {
					return NewSuccessResultWithData(fmt.Sprintf("No files link to %s.", p), []string{})
				}
				return NewSuccessResultWithData(strings.Join(sources, "\n"), sources)
			},
		},
		{
			Name:        "get_vault_structure",
			Description: "Describe the vault: folders, file counts and sample file names.",
			Trust:       Immediate,
			Run: func(context.Context, Args) Result {
				return NewSuccessResultWithData(env.Index.StructureSummary(), env.Index.AllFolderPaths())
			},
		},
	}
}

func searchContent(env Env, query string, limit int) Result {
	if limit <= 0 {
		limit = defaultContentHits
	}
	var hits []fulltext.Hit
	if env.Fulltext != nil {
		var err error
		if hits, err = env.Fulltext.Search(query, limit); err != nil {
			return errResult(err)
		}
	} else {
		hits = scanContent(env.Index.All(), query, limit)
	}
	if len(hits) == 0 {
		return NewSuccessResultWithData(fmt.Sprintf("No file content matches %q.", query), []fulltext.Hit{})
	}
	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "%s: %s\n", h.Path, strings.TrimSpace(h.Snippet))
	}
	return NewSuccessResultWithData(b.String(), hits)
}

// scanContent is the index-only content search used without a fulltext store.
func scanContent(files []models.IndexedFile, query string, limit int) []fulltext.Hit {
	q := strings.ToLower(query)
	var hits []fulltext.Hit
	for _, f := range files {
		if !f.HasContent() {
			continue
		}
		lower := strings.ToLower(*f.Content)
		i := strings.Index(lower, q)
		if i < 0 {
			continue
		}
		start := max(0, i-60)
		end := min(len(*f.Content), i+len(query)+140)
		hits = append(hits, fulltext.Hit{Path: f.Path, Title: f.Title, Snippet: (*f.Content)[start:end]})
		if len(hits) == limit {
			break
		}
	}
	return hits
}

// scanBacklinks finds files whose links resolve to target.
func scanBacklinks(files []models.IndexedFile, target string) []string {
	stem := strings.TrimSuffix(target, path.Ext(target))
	base := path.Base(stem)
	var out []string
	for _, f := range files {
		if f.Path == target {
			continue
		}
		for _, l := range f.Links {
			t := fulltext.LinkTarget(l)
			if t == target || t == stem || t == base {
				out = append(out, f.Path)
				break
			}
		}
	}
	return out
}
