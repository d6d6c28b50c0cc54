package genai

import "context"

// Request carries one generation call's inputs: persona instructions, the
// grounded prompt, and sampling parameters.
type Request struct {
	// System is the persona / output-format contract for the call.
	System string

	// Prompt is the user-facing prompt, including the grounding block.
	Prompt string

	// Temperature controls randomness (0.0 to 2.0). Zero means provider
	// default.
	Temperature float64

	// MaxTokens limits the generated output. Zero means provider default.
	MaxTokens int
}

// Usage tracks token consumption for a request.
type Usage struct {
	// InputTokens is the number of tokens in the input/prompt.
	InputTokens int

	// OutputTokens is the number of tokens generated in the response.
	OutputTokens int

	// TotalTokens is the sum of input and output tokens.
	TotalTokens int
}

// Response is the raw generation output. Downstream code must treat the
// content as untrusted until it has passed citation verification.
type Response struct {
	// Content is the generated text.
	Content string

	// Usage contains token usage statistics, when the provider reports them.
	Usage Usage
}

// Generator is the opaque external generation collaborator. The engine
// only ever sees this single function-call boundary, which keeps the
// verification pipeline independently testable with synthetic generators.
//
// Implementations must honor context cancellation and deadlines; a
// cancelled call returns ctx.Err() and no content.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Func adapts a plain function to the Generator interface.
type Func func(ctx context.Context, req Request) (Response, error)

// Generate implements Generator.
func (fn Func) Generate(ctx context.Context, req Request) (Response, error) {
	return fn(ctx, req)
}
