package tools

import (
	"context"
	"fmt"
)

func miscTools(env Env) []Tool {
	return []Tool{
		{
			Name:        "get_current_date",
			Description: "Get the current local date and time.",
			Trust:       Immediate,
			Run: func(context.Context, Args) Result {
				now := env.Now()
				return NewSuccessResultWithData(now.Format("Monday, 2006-01-02 15:04 MST"), map[string]any{
					"date":    now.Format("2006-01-02"),
					"time":    now.Format("15:04"),
					"weekday": now.Weekday().String(),
				})
			},
		},
		{
			Name:        "save_memory",
			Description: "Remember a fact or preference about the user for future conversations.",
			Params: []Param{
				{Name: "content", Type: TypeString, Description: "What to remember", Required: true, Aliases: []string{"memory", "fact", "text", "note"}},
				{Name: "key", Type: TypeString, Description: "Optional short label", Aliases: []string{"title", "topic", "category"}},
			},
			Trust: Immediate,
			Run: func(_ context.Context, args Args) Result {
				if env.Memory == nil {
					return NewErrorResult("memory is not configured")
				}
				content, err := args.String("content")
				if err != nil {
					return errResult(err)
				}
				if err := env.Memory.Save(args.OptionalString("key", ""), content); err != nil {
					return errResult(err)
				}
				return NewSuccessResult("Saved to memory.")
			},
		},
		{
			Name:        "open_file",
			Description: "Open a vault file in the user's editor.",
			Params:      []Param{pathParam},
			Trust:       Immediate,
			Run: func(_ context.Context, args Args) Result {
				p, err := pathArg(args)
				if err != nil {
					return errResult(err)
				}
				if _, err := env.Store.Stat(p); err != nil {
					return NewErrorResult(fmt.Sprintf("file not found: %s", p))
				}
				if env.Opener == nil {
					return NewErrorResult("no editor is attached")
				}
				if err := env.Opener.Open(p); err != nil {
					return errResult(err)
				}
				return NewSuccessResult(fmt.Sprintf("Opened %s.", p))
			},
		},
	}
}
