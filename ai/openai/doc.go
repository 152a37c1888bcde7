// Package openai provides an ai.Embedder backed by any OpenAI-compatible
// embeddings endpoint (OpenAI, Ollama, LocalAI, vLLM).
package openai
