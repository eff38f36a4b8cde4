// Package tokencount estimates prompt token counts for telemetry.
//
// Upstreams usually report usage themselves; this estimate is only recorded
// when the response carries no usage block. It is never returned to callers.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/FrankDu1/psychologist-chatbot/internal/config"
	"github.com/FrankDu1/psychologist-chatbot/internal/provider"
)

var (
	mu        sync.Mutex
	encodings = map[string]*tiktoken.Tiktoken{}
)

// Estimate counts the tokens in a message list. Models without a known
// tiktoken encoding fall back to the chars/4 heuristic.
func Estimate(model string, messages []provider.Message) int {
	enc := encodingFor(model)
	total := 0
	for _, m := range messages {
		if enc != nil {
			total += len(enc.Encode(m.Content, nil, nil))
			continue
		}
		total += len(m.Content) / config.TokenEstimateRatio
	}
	return total
}

func encodingFor(model string) *tiktoken.Tiktoken {
	mu.Lock()
	defer mu.Unlock()

	if enc, ok := encodings[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Qwen and friends have no registered encoding; cl100k_base is
		// close enough for telemetry purposes.
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			encodings[model] = nil
			return nil
		}
	}
	encodings[model] = enc
	return enc
}
