// Package tokenizer provides a cache-aside registry of tokenizers keyed by
// model name, so repeated token counts for the same model reuse one loaded
// encoding.
package tokenizer

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/wilhg/ghostd/pkg/errmodel"
)

// Cache loads and retains one tokenizer per model name. Loading happens
// while the lock is held so a second request for the same model never
// starts a duplicate load.
type Cache struct {
	mu       sync.Mutex
	rewrites map[string]string
	encoders map[string]*tiktoken.Tiktoken
}

// NewCache builds an empty cache. rewrites maps served model names to the
// tokenizer model actually loaded, for models that share an encoding under
// a different name; it may be nil.
func NewCache(rewrites map[string]string) *Cache {
	return &Cache{
		rewrites: rewrites,
		encoders: make(map[string]*tiktoken.Tiktoken),
	}
}

// CountTokens tokenizes text with the model's encoding and returns the
// token count.
func (c *Cache) CountTokens(model, text string) (int, error) {
	enc, err := c.encoder(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Loaded reports how many distinct encodings the cache holds.
func (c *Cache) Loaded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoders)
}

func (c *Cache) encoder(model string) (*tiktoken.Tiktoken, error) {
	if model == "" {
		return nil, errmodel.Tokenizer("missing_model", "model name is empty", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	name := model
	if rewritten, ok := c.rewrites[model]; ok {
		name = rewritten
	}
	if enc, ok := c.encoders[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		return nil, errmodel.Tokenizer("unknown_model", err.Error(), map[string]any{"model": model})
	}
	c.encoders[name] = enc
	return enc, nil
}
