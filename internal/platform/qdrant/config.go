package qdrant

import "fmt"

type Config struct {
	URL        string
	Collection string
	VectorDim  int
}

func ValidateConfig(cfg Config) error {
	if cfg.URL == "" {
		return fmt.Errorf("qdrant: URL is required")
	}
	if cfg.Collection == "" {
		return fmt.Errorf("qdrant: Collection is required")
	}
	if cfg.VectorDim <= 0 {
		return fmt.Errorf("qdrant: VectorDim must be > 0")
	}
	return nil
}
