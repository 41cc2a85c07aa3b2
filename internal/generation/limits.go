package generation

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// DefaultMaxMessageTokens caps a chat message before it is sent upstream.
const DefaultMaxMessageTokens = 1024

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
	codecErr  error
)

// CountTokens estimates the token length of text with the cl100k encoding.
func CountTokens(text string) (int, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	if codecErr != nil {
		return 0, fmt.Errorf("load tokenizer: %w", codecErr)
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode message: %w", err)
	}
	return len(ids), nil
}
