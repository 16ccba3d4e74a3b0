package llm

import (
	"fmt"

	"github.com/zoofam/mchili/internal/config"
)

// New builds the completion client named by cfg.Provider.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg), nil
	case "zai", "":
		return NewZai(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
