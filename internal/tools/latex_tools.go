package tools

import (
	"context"
	"fmt"
	"strings"
)

func latexTools(env Env) []Tool {
	return []Tool{
		{
			Name:        "insert_latex",
			Description: "Insert a LaTeX formula into a note, as a display block by default or inline. The user must approve the change.",
			Params: []Param{
				pathParam,
				{Name: "latex", Type: TypeString, Description: "LaTeX source without surrounding $ delimiters", Required: true, Aliases: []string{"formula", "equation", "expression", "math", "tex"}},
				{Name: "display", Type: TypeBoolean, Description: "true for a $$ block (default), false for inline $...$", Aliases: []string{"block"}},
				{Name: "after", Type: TypeString, Description: "Insert after the first line containing this text; appended at the end when omitted", Aliases: []string{"anchor", "after_text", "afterText"}},
			},
			Trust: Deferred,
			Run: func(_ context.Context, args Args) Result {
				p, err := pathArg(args)
				if err != nil {
					return errResult(err)
				}
				src, err := args.String("latex")
				if err != nil {
					return errResult(err)
				}
				snippet := FormatLatex(src, args.Bool("display", true))
				anchor := args.OptionalString("after", "")
				return proposeModify(env, p, func(old string) (string, error) {
					return insertAfter(old, anchor, snippet)
				})
			},
		},
	}
}

// FormatLatex wraps src in math delimiters, replacing any it already has.
func FormatLatex(src string, display bool) string {
	s := strings.TrimSpace(src)
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "$$"), "$$"))
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "$"), "$"))
	if display {
		return "$$\n" + s + "\n$$"
	}
	return "$" + s + "$"
}

// insertAfter places snippet on its own line after the first line containing
// anchor, or at the end of text when anchor is empty.
func insertAfter(text, anchor, snippet string) (string, error) {
	if anchor == "" {
		if text != "" && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		return text + snippet + "\n", nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !strings.Contains(line, anchor) {
			continue
		}
		out := append([]string{}, lines[:i+1]...)
		out = append(out, snippet)
		out = append(out, lines[i+1:]...)
		return strings.Join(out, "\n"), nil
	}
	return "", fmt.Errorf("anchor text not found: %q", anchor)
}
