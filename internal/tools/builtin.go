package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/starford/muninn/internal/fulltext"
	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/storage"
)

// Fulltext is the content search used by search_files and get_backlinks.
type Fulltext interface {
	Search(query string, limit int) ([]fulltext.Hit, error)
	Backlinks(path string) ([]string, error)
}

// Opener shows a vault file to the user.
type Opener interface {
	Open(path string) error
}

// Env holds what the built-in tools work against. Fulltext and Opener are
// optional.
type Env struct {
	Store    storage.Provider
	Index    *index.VaultIndex
	Fulltext Fulltext
	Memory   *Memory
	Opener   Opener
	Now      func() time.Time
}

var pathParam = Param{
	Name:        "path",
	Type:        TypeString,
	Description: "Vault-relative path of the file, e.g. 'Projects/Plan.md'",
	Required:    true,
	Aliases:     []string{"file_path", "filePath", "filepath", "file", "filename", "note", "notePath", "target"},
}

var contentParam = Param{
	Name:        "content",
	Type:        TypeString,
	Description: "Full text content of the file",
	Required:    true,
	Aliases:     []string{"text", "body", "data", "new_content", "newContent"},
}

// RegisterBuiltins registers every built-in tool.
func RegisterBuiltins(r *Registry, env Env) error {
	if env.Now == nil {
		env.Now = time.Now
	}
	groups := [][]Tool{
		fileTools(env),
		searchTools(env),
		miscTools(env),
		kanbanTools(env),
		latexTools(env),
	}
	for _, g := range groups {
		for _, t := range g {
			if err := r.Register(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// cleanPath normalises a model-supplied vault path.
func cleanPath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

// readText reads a vault file as text.
func readText(env Env, p string) (string, error) {
	data, err := env.Store.Read(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("file not found: %s", p)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// pathArg resolves the path argument.
func pathArg(args Args) (string, error) {
	p, err := args.String("path")
	if err != nil {
		return "", err
	}
	p = cleanPath(p)
	if p == "" || p == "." {
		return "", fmt.Errorf("path must not be empty")
	}
	return p, nil
}

func errResult(err error) Result {
	return NewErrorResult(err.Error())
}

