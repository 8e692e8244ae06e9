// Package llmhint implements the opt-in strategy that asks an
// OpenAI-compatible chat model where a directory came from. Answers are
// capped well below exact-match confidence.
package llmhint
