package tools

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/muninn/internal/changes"
)

const maxListed = 200

func fileTools(env Env) []Tool {
	return []Tool{
		{
			Name:        "read_file",
			Description: "Read the full text content of a file in the vault.",
			Params:      []Param{pathParam},
			Trust:       Immediate,
			Run: func(_ context.Context, args Args) Result {
				p, err := pathArg(args)
				if err != nil {
					return errResult(err)
				}
				if !env.Index.IsText(p) {
					return NewErrorResult(fmt.Sprintf("%s is not a text file", p))
				}
				text, err := readText(env, p)
				if err != nil {
					return errResult(err)
				}
				return NewSuccessResultWithData(text, map[string]any{"path": p, "size": len(text)})
			},
		},
		{
			Name:        "list_files",
			Description: "List vault files, optionally limited to a folder and filtered by a glob pattern such as '**/*.md'.",
			Params: []Param{
				{Name: "folder", Type: TypeString, Description: "Folder to list; empty for the whole vault", Aliases: []string{"directory", "dir", "path"}},
				{Name: "pattern", Type: TypeString, Description: "Optional glob matched against the path", Aliases: []string{"glob", "filter"}},
			},
			Trust: Immediate,
			Run: func(_ context.Context, args Args) Result {
				folder := cleanPath(args.OptionalString("folder", ""))
				if folder == "." {
					folder = ""
				}
				prefix := ""
				if folder != "" {
					prefix = folder + "/"
				}
				pattern := args.OptionalString("pattern", "")
				if pattern != "" && !doublestar.ValidatePattern(pattern) {
					return NewErrorResult(fmt.Sprintf("invalid glob pattern: %s", pattern))
				}

				var listed []string
				for _, f := range env.Index.ByFolderPrefix(prefix) {
					if pattern != "" && !globMatch(pattern, f.Path) {
						continue
					}
					listed = append(listed, f.Path)
				}
				total := len(listed)
				if total == 0 {
					return NewSuccessResultWithData("No files found.", []string{})
				}
				shown := listed[:min(total, maxListed)]
				content := strings.Join(shown, "\n")
				if total > len(shown) {
					content += fmt.Sprintf("\n... and %d more", total-len(shown))
				}
				return NewSuccessResultWithData(content, shown)
			},
		},
		{
			Name:        "create_file",
			Description: "Create a new file with the given content. The user must approve the change.",
			Params:      []Param{pathParam, contentParam},
			Trust:       Deferred,
			Run: func(_ context.Context, args Args) Result {
				p, err := pathArg(args)
				if err != nil {
					return errResult(err)
				}
				if path.Ext(p) == "" {
					p += ".md"
				}
				content, err := args.String("content")
				if err != nil {
					return errResult(err)
				}
				if _, err := env.Store.Stat(p); err == nil {
					return NewErrorResult(fmt.Sprintf("file already exists: %s (use modify_file)", p))
				}
				return NewApprovalResult(changes.Create(p, content))
			},
		},
		{
			Name:        "modify_file",
			Description: "Replace the content of an existing file. The user must approve the change.",
			Params:      []Param{pathParam, contentParam},
			Trust:       Deferred,
			Run: func(_ context.Context, args Args) Result {
				p, err := pathArg(args)
				if err != nil {
					return errResult(err)
				}
				content, err := args.String("content")
				if err != nil {
					return errResult(err)
				}
				return proposeModify(env, p, func(string) (string, error) { return content, nil })
			},
		},
		{
			Name:        "delete_file",
			Description: "Delete a file from the vault. The user must approve the change.",
			Params:      []Param{pathParam},
			Trust:       Deferred,
			Run: func(_ context.Context, args Args) Result {
				p, err := pathArg(args)
				if err != nil {
					return errResult(err)
				}
				old, err := readText(env, p)
				if err != nil {
					return errResult(err)
				}
				return NewApprovalResult(changes.Delete(p, old))
			},
		},
	}
}

// proposeModify reads p, applies edit and wraps the result as a modify change.
func proposeModify(env Env, p string, edit func(old string) (string, error)) Result {
	old, err := readText(env, p)
	if err != nil {
		return errResult(err)
	}
	updated, err := edit(old)
	if err != nil {
		return errResult(err)
	}
	if updated == old {
		return NewSuccessResult(fmt.Sprintf("%s already has this content; nothing to change", p))
	}
	return NewApprovalResult(changes.Modify(p, old, updated))
}

// globMatch matches pattern against the full path or, for patterns without
// a slash, against the file name.
func globMatch(pattern, p string) bool {
	if ok, _ := doublestar.Match(pattern, p); ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		ok, _ := doublestar.Match(pattern, path.Base(p))
		return ok
	}
	return false
}

