// Package llm talks to chat-completion backends.
//
// A Client sends a transcript plus tool schemas and returns exactly one reply
// message. OpenAIClient speaks the OpenAI-compatible wire format used by
// OpenRouter, OpenAI, Gemini, Zhipu and vLLM; AnthropicClient adapts the same
// transcript to the Messages API.
//
// Failures are typed: NetworkError when the backend cannot be reached,
// ProtocolError when the reply cannot be understood and ProviderError when the
// backend answers with an error object.
package llm
