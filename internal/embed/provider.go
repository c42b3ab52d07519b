package embed

import (
	"os"

	"codeatlas/internal/config"
)

// FromConfig maps the embeddings config onto a Provider. The "none"
// provider is nil, which leaves indexes inert: builds are skipped and
// searches report embeddings as unavailable.
func FromConfig(cfg config.EmbeddingsConfig) Provider {
	switch cfg.Provider {
	case "command":
		command := cfg.Command
		args := append([]string(nil), cfg.Args...)
		return func() (Embedder, error) {
			return NewCommandEmbedder(command, args...), nil
		}
	case "http":
		endpoint, model, keyEnv := cfg.Endpoint, cfg.Model, cfg.APIKeyEnv
		return func() (Embedder, error) {
			apiKey := ""
			if keyEnv != "" {
				apiKey = os.Getenv(keyEnv)
			}
			return NewHTTPEmbedder(endpoint, model, apiKey), nil
		}
	default:
		return nil
	}
}
