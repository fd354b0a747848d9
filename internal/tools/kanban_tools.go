package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/muninn/internal/kanban"
)

var laneParam = Param{
	Name:        "lane",
	Type:        TypeString,
	Description: "Lane (column) title",
	Required:    true,
	Aliases:     []string{"column", "list", "lane_name", "laneName", "to_lane", "toLane", "to", "target_lane"},
}

var cardParam = Param{
	Name:        "card",
	Type:        TypeString,
	Description: "Card text",
	Required:    true,
	Aliases:     []string{"text", "title", "task", "content", "card_text", "cardText"},
}

// boardSummary is the JSON shape returned for one board.
type boardSummary struct {
	Path  string        `json:"path"`
	Lanes []kanban.Lane `json:"lanes,omitempty"`
}

func kanbanTools(env Env) []Tool {
	return []Tool{
		{
			Name:        "list_kanban_boards",
			Description: "List the kanban boards in the vault with their lanes.",
			Trust:       Immediate,
			Run: func(context.Context, Args) Result {
				var boards []boardSummary
				var b strings.Builder
				for _, f := range env.Index.ByExtension("md") {
					if !f.HasContent() || !kanban.IsBoard([]byte(*f.Content)) {
						continue
					}
					board, err := kanban.Parse([]byte(*f.Content))
					if err != nil {
						continue
					}
					boards = append(boards, boardSummary{Path: f.Path, Lanes: board.Lanes})
					titles := make([]string, len(board.Lanes))
					for i, l := range board.Lanes {
						titles[i] = l.Title
					}
					fmt.Fprintf(&b, "%s: %s\n", f.Path, strings.Join(titles, ", "))
				}
				if len(boards) == 0 {
					return NewSuccessResultWithData("No kanban boards found.", []boardSummary{})
				}
				return NewSuccessResultWithData(b.String(), boards)
			},
		},
		{
			Name:        "get_kanban_board",
			Description: "Read a kanban board: its lanes and cards.",
			Params:      []Param{pathParam},
			Trust:       Immediate,
			Run: func(_ context.Context, args Args) Result {
				p, err := pathArg(args)
				if err != nil {
					return errResult(err)
				}
				board, err := loadBoard(env, p)
				if err != nil {
					return errResult(err)
				}
				var b strings.Builder
				for _, l := range board.Lanes {
					fmt.Fprintf(&b, "## %s\n", l.Title)
					for _, c := range l.Cards {
						mark := " "
						if c.Done {
							mark = "x"
						}
						fmt.Fprintf(&b, "- [%s] %s\n", mark, c.Text)
					}
				}
				return NewSuccessResultWithData(b.String(), boardSummary{Path: p, Lanes: board.Lanes})
			},
		},
		{
			Name:        "add_kanban_card",
			Description: "Add a card to a lane of a kanban board. The user must approve the change.",
			Params:      []Param{pathParam, laneParam, cardParam},
			Trust:       Deferred,
			Run: func(_ context.Context, args Args) Result {
				p, err := pathArg(args)
				if err != nil {
					return errResult(err)
				}
				lane, err := args.String("lane")
				if err != nil {
					return errResult(err)
				}
				card, err := args.String("card")
				if err != nil {
					return errResult(err)
				}
				return proposeModify(env, p, func(old string) (string, error) {
					board, err := kanban.Parse([]byte(old))
					if err != nil {
						return "", err
					}
					if err := board.AddCard(lane, card); err != nil {
						return "", err
					}
					return board.Render(), nil
				})
			},
		},
		{
			Name:        "move_kanban_card",
			Description: "Move a card to another lane of a kanban board. The user must approve the change.",
			Params:      []Param{pathParam, cardParam, laneParam},
			Trust:       Deferred,
			Run: func(_ context.Context, args Args) Result {
				p, err := pathArg(args)
				if err != nil {
					return errResult(err)
				}
				card, err := args.String("card")
				if err != nil {
					return errResult(err)
				}
				lane, err := args.String("lane")
				if err != nil {
					return errResult(err)
				}
				return proposeModify(env, p, func(old string) (string, error) {
					board, err := kanban.Parse([]byte(old))
					if err != nil {
						return "", err
					}
					if err := board.MoveCard(card, lane); err != nil {
						return "", err
					}
					return board.Render(), nil
				})
			},
		},
	}
}

func loadBoard(env Env, p string) (*kanban.Board, error) {
	text, err := readText(env, p)
	if err != nil {
		return nil, err
	}
	return kanban.Parse([]byte(text))
}
