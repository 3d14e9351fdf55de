package ingest

import "strings"

// MaxChunks bounds the number of chunks per document to cap downstream
// embedding cost. Longer documents are truncated, not rejected.
const MaxChunks = 200

// ChunkWords splits text into overlapping word-count windows. Windows hold
// wordsPerChunk words and advance by max(1, wordsPerChunk-overlapWords)
// words; the trailing partial window is kept. Blank input yields nil.
// Output is deterministic and covers every word of the input at least once.
func ChunkWords(text string, wordsPerChunk, overlapWords int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if wordsPerChunk <= 0 {
		wordsPerChunk = 1
	}

	step := wordsPerChunk - overlapWords
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if len(chunks) >= MaxChunks {
			break
		}
		if end == len(words) {
			break
		}
	}
	return chunks
}
