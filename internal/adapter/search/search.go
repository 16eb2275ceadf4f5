package search

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"parley/internal/domain"
)

// New selects a backend by name: "duckduckgo" (default, keyless) or
// "tavily" (reads TAVILY_API_KEY).
func New(backend, baseURL string, timeout time.Duration, logger *slog.Logger) (domain.WebSearcher, error) {
	switch backend {
	case "", "duckduckgo":
		return NewDuckDuckGo(baseURL, timeout, logger), nil
	case "tavily":
		return NewTavily(os.Getenv("TAVILY_API_KEY"), baseURL, timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q", backend)
	}
}
