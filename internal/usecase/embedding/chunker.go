package embedding

import "strings"

// charsPerToken is the rough character-per-token estimate used to convert a
// token budget into a character budget without a tokenizer dependency.
const charsPerToken = 3

// DefaultMaxTokens caps a single chunk at the embedding model's input window.
const DefaultMaxTokens = 512

// ChunkText splits text into word-boundary chunks that fit the token budget.
// Words are never split; a chunk closes when the next word would push it past
// maxTokens*charsPerToken characters. Text that fits yields a single chunk.
func ChunkText(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	budget := maxTokens * charsPerToken

	words := strings.Fields(text)
	if len(words) == 0 {
		if len(text) > budget {
			return []string{text[:budget]}
		}
		return []string{text}
	}

	var chunks []string
	var current []string
	currentLen := 0

	for _, word := range words {
		wordLen := len(word) + 1 // +1 for space
		if currentLen+wordLen > budget && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = []string{word}
			currentLen = wordLen
		} else {
			current = append(current, word)
			currentLen += wordLen
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}
