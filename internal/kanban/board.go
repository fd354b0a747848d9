// Package kanban reads and edits Markdown kanban boards: a frontmatter flag
// "kanban-plugin", one "## " heading per lane and "- [ ] " task items.
package kanban

import (
	"fmt"
	"strings"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/parser"
)

const (
	frontmatterKey = "kanban-plugin"
	settingsMarker = "%% kanban:settings"
)

// Card is one task item.
type Card struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Lane is a named column of cards. Other lines in the lane, such as the
// "**Complete**" marker, are kept verbatim before or after the cards.
type Lane struct {
	Title string `json:"title"`
	Cards []Card `json:"cards"`

	head []string
	tail []string
}

// Board is a parsed kanban file.
type Board struct {
	Lanes []Lane `json:"lanes"`

	frontmatter string
	preamble    string
	settings    string
}

// IsBoard reports whether data is a kanban board.
func IsBoard(data []byte) bool {
	fm, _ := parser.SplitFrontmatter(data)
	_, ok := fm[frontmatterKey]
	return ok
}

// Parse reads a board. Text before the first lane, unrecognised lane lines
// and the settings block are kept verbatim for Render.
func Parse(data []byte) (*Board, error) {
	if !IsBoard(data) {
		return nil, fmt.Errorf("kanban: missing %s frontmatter: %w", frontmatterKey, apperr.ErrInvalidArgument)
	}
	fm, body := splitRaw(string(data))
	b := &Board{frontmatter: fm}

	if i := strings.Index(body, settingsMarker); i >= 0 {
		b.settings = strings.TrimSpace(body[i:])
		body = body[:i]
	}

	var (
		lane     *Lane
		preamble []string
	)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "## "):
			b.Lanes = append(b.Lanes, Lane{Title: strings.TrimSpace(trimmed[3:]), Cards: []Card{}})
			lane = &b.Lanes[len(b.Lanes)-1]
		case lane == nil:
			preamble = append(preamble, line)
		case trimmed == "":
		case strings.HasPrefix(trimmed, "- [ ] "):
			lane.Cards = append(lane.Cards, Card{Text: trimmed[6:]})
		case strings.HasPrefix(trimmed, "- [x] "), strings.HasPrefix(trimmed, "- [X] "):
			lane.Cards = append(lane.Cards, Card{Text: trimmed[6:], Done: true})
		case len(lane.Cards) > 0 && len(lane.tail) == 0 && line != trimmed:
			c := &lane.Cards[len(lane.Cards)-1]
			c.Text += "\n" + trimmed
		case len(lane.Cards) == 0:
			lane.head = append(lane.head, line)
		default:
			lane.tail = append(lane.tail, line)
		}
	}
	b.preamble = strings.TrimSpace(strings.Join(preamble, "\n"))
	return b, nil
}

// Lane returns the lane with the given title, case-insensitively.
func (b *Board) Lane(title string) (*Lane, error) {
	for i := range b.Lanes {
		if strings.EqualFold(b.Lanes[i].Title, strings.TrimSpace(title)) {
			return &b.Lanes[i], nil
		}
	}
	return nil, fmt.Errorf("kanban: lane %q: %w", title, apperr.ErrNotFound)
}

// AddCard appends a card to the named lane.
func (b *Board) AddCard(lane, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("kanban: empty card: %w", apperr.ErrInvalidArgument)
	}
	l, err := b.Lane(lane)
	if err != nil {
		return err
	}
	l.Cards = append(l.Cards, Card{Text: text})
	return nil
}

// MoveCard moves the first card whose text matches (case-insensitively) to
// the end of the target lane.
func (b *Board) MoveCard(text, toLane string) error {
	to, err := b.Lane(toLane)
	if err != nil {
		return err
	}
	want := strings.TrimSpace(text)
	for li := range b.Lanes {
		from := &b.Lanes[li]
		for ci, c := range from.Cards {
			if !strings.EqualFold(c.Text, want) {
				continue
			}
			from.Cards = append(from.Cards[:ci:ci], from.Cards[ci+1:]...)
			to.Cards = append(to.Cards, c)
			return nil
		}
	}
	return fmt.Errorf("kanban: card %q: %w", text, apperr.ErrNotFound)
}

// Render serialises the board back to Markdown.
func (b *Board) Render() string {
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString(b.frontmatter)
	sb.WriteString("---\n\n")
	if b.preamble != "" {
		sb.WriteString(b.preamble)
		sb.WriteString("\n\n")
	}
	for _, l := range b.Lanes {
		sb.WriteString("## ")
		sb.WriteString(l.Title)
		sb.WriteString("\n\n")
		writeLines(&sb, l.head)
		for _, c := range l.Cards {
			box := "[ ]"
			if c.Done {
				box = "[x]"
			}
			lines := strings.Split(c.Text, "\n")
			fmt.Fprintf(&sb, "- %s %s\n", box, lines[0])
			for _, cont := range lines[1:] {
				sb.WriteString("  ")
				sb.WriteString(cont)
				sb.WriteByte('\n')
			}
		}
		if len(l.tail) > 0 {
			sb.WriteByte('\n')
			writeLines(&sb, l.tail)
		}
		sb.WriteString("\n\n")
	}
	if b.settings != "" {
		sb.WriteString("\n")
		sb.WriteString(b.settings)
		sb.WriteString("\n")
	}
	return sb.String()
}

// writeLines writes lines followed by a blank line.
func writeLines(sb *strings.Builder, lines []string) {
	if len(lines) == 0 {
		return
	}
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
}

// splitRaw returns the frontmatter text (with trailing newline) and body.
func splitRaw(s string) (string, string) {
	trimmed := strings.TrimLeft(s, "\r\n")
	rest := strings.TrimPrefix(trimmed, "---")
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", s
	}
	fm := strings.TrimLeft(rest[:end+1], "\r\n")
	body := rest[end+len("\n---"):]
	return fm, body
}
