package stchunk

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Options controls chunk extraction.
type Options struct {
	// Namespace is prepended to every top-level FQN. It comes from the
	// project layout, not from the file content, so the caller supplies it.
	Namespace string `yaml:"namespace"`
	// BlockChunks enables chunk emission for control-flow blocks. Disabled
	// blocks are still parsed to validate nesting.
	BlockChunks *bool `yaml:"block_chunks"` // Pointer to distinguish between unset and false. If nil, blocks are emitted
	// CommentChunks enables chunk emission for comments.
	CommentChunks bool `yaml:"comment_chunks"`
	// MaxBlockDepth limits how deep nested blocks are emitted as chunks.
	// 0 means unlimited.
	MaxBlockDepth int `yaml:"max_block_depth"`
}

// EmitBlocks returns true unless block chunks are explicitly disabled
func (o Options) EmitBlocks() bool {
	return o.BlockChunks == nil || *o.BlockChunks
}

// DefaultOptions returns the options used when no config file exists.
func DefaultOptions() Options {
	return Options{MaxBlockDepth: 1}
}

// LoadOptions loads extraction options from a YAML file. A missing file
// yields the defaults. Environment variables are loaded from .env first,
// and STCHUNK_NAMESPACE overrides the namespace from either source.
func LoadOptions(path string) (Options, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return Options{}, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	opts := DefaultOptions()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return Options{}, fmt.Errorf("failed to read options file: %w", err)
		}

		if err := yaml.UnmarshalWithOptions(data, &opts, yaml.Strict()); err != nil {
			return Options{}, fmt.Errorf("failed to parse options file: %w", err)
		}
	}

	if ns := os.Getenv("STCHUNK_NAMESPACE"); ns != "" {
		opts.Namespace = ns
	}

	return opts, nil
}
