package llm

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/starford/muninn/internal/models"
)

// AttachmentText wraps the text of an attached file so the model can tell it
// apart from the conversation.
func AttachmentText(name, text string) string {
	return fmt.Sprintf("--- Attached file: %s ---\n%s\n--- End of %s ---", name, text, name)
}

// ConvertMessages translates a conversation into model contents. System
// messages are joined into the returned system instruction. A user message
// becomes one text part followed by one part per attachment: binary
// attachments as inline data, text attachments as wrapped text.
func ConvertMessages(msgs []models.Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))

	for _, m := range msgs {
		switch m.Role {
		case models.RoleSystem:
			if s := strings.TrimSpace(m.Content); s != "" {
				system = append(system, s)
			}

		case models.RoleUser:
			parts := []*genai.Part{genai.NewPartFromText(m.Content)}
			for _, a := range m.Attachments {
				if a.IsBinary() {
					parts = append(parts, genai.NewPartFromBytes(a.Data, a.MediaType))
					continue
				}
				parts = append(parts, genai.NewPartFromText(AttachmentText(a.Name, a.Text)))
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})

		case models.RoleAssistant:
			if m.Content == "" {
				continue
			}
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
			})
		}
	}
	return strings.Join(system, "\n\n"), contents
}
