package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
)

// Request is one chat turn. Context holds the retrieved chunk texts and
// History the prior messages, oldest first.
type Request struct {
	System  string
	Context []string
	History []commonModels.ChatMessage
	Query   string
}

type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// UserPrompt renders the retrieved context and the question as one user message.
func UserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Context information is below.\n---------------------\n")
	b.WriteString(strings.Join(req.Context, "\n\n"))
	b.WriteString("\n---------------------\n")
	fmt.Fprintf(&b, "Given the context information and the chat so far, answer the question: %s", req.Query)
	return b.String()
}

// RoleName maps a chat role onto the user/assistant roles chat APIs expect.
func RoleName(role commonModels.ChatRole) string {
	if role == commonModels.RoleAI {
		return "assistant"
	}
	return "user"
}
