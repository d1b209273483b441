package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"

	"github.com/e91d82c73/stchunk"
)

// ChunksCmd represents the chunks command
type ChunksCmd struct {
	Files     []string `arg:"" name:"file" help:"TwinCAT files to parse (.TcPOU, .TcGVL, .TcDUT, .st)" type:"existingfile"`
	Format    string   `help:"Output format" enum:"yaml,json" default:"yaml"`
	Namespace string   `help:"Namespace prefix for all FQNs" short:"n"`
	NoBlocks  bool     `help:"Do not emit chunks for control-flow blocks"`
	Comments  bool     `help:"Emit chunks for comments"`
}

// Run executes the chunks command
func (cmd *ChunksCmd) Run(ctx *Context) error {
	opts, err := stchunk.LoadOptions(ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to load options: %w", err)
	}
	if cmd.Namespace != "" {
		opts.Namespace = cmd.Namespace
	}
	if cmd.NoBlocks {
		disabled := false
		opts.BlockChunks = &disabled
	}
	if cmd.Comments {
		opts.CommentChunks = true
	}

	output := make(map[string]*stchunk.ParseResult, len(cmd.Files))

	for _, file := range cmd.Files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		result, err := stchunk.Parse(file, data, opts)
		if err != nil {
			color.Red("%s: %v", file, err)
			continue
		}

		if ctx.Verbose {
			color.Cyan("%s: %d chunks, %d warnings", file, len(result.Chunks), len(result.Warnings))
		}
		output[file] = result
	}

	var out []byte
	if cmd.Format == "json" {
		out, err = json.MarshalIndent(output, "", "  ")
	} else {
		out, err = yaml.Marshal(output)
	}
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}

	fmt.Println(string(out))
	return nil
}
