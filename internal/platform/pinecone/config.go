package pinecone

import "fmt"

type Config struct {
	APIKey    string
	IndexHost string
	Namespace string
}

func ValidateConfig(cfg Config) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("pinecone: APIKey is required")
	}
	if cfg.IndexHost == "" {
		return fmt.Errorf("pinecone: IndexHost is required")
	}
	return nil
}
