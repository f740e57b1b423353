package llm

import "context"

// ImageAttachment is a reference image attached to a vision-capable chat
// call, encoded as a base64 data URL by the provider adapter.
type ImageAttachment struct {
	Data     []byte
	MIMEType string
}

// Message is one turn in a chat request. The nine agent roles never call
// tools and never stream, so Message carries only what a single-shot
// request/response pair needs: role, text, and optional image attachments
// on user turns.
type Message struct {
	Role   string // "system" | "user" | "assistant"
	Content string
	Images []ImageAttachment
}

// SamplingParams controls generation behavior for one Chat call. Creative
// roles (Story Director, Scene Writer) use high temperature and a large
// token budget; critic and structured-output roles use low temperature.
type SamplingParams struct {
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Provider is the narrow interface every LLM backend (Anthropic, OpenAI,
// Google) implements. A single suspending call, one request in and one
// response out.
type Provider interface {
	Chat(ctx context.Context, msgs []Message, params SamplingParams) (Message, error)
}
