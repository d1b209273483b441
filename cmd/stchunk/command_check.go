package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/e91d82c73/stchunk"
)

// CheckCmd represents the check command
type CheckCmd struct {
	Files     []string `arg:"" name:"file" help:"TwinCAT files to check" type:"existingfile"`
	Namespace string   `help:"Namespace prefix for all FQNs" short:"n"`
}

// Run executes the check command
func (cmd *CheckCmd) Run(ctx *Context) error {
	opts, err := stchunk.LoadOptions(ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to load options: %w", err)
	}
	if cmd.Namespace != "" {
		opts.Namespace = cmd.Namespace
	}

	failed := 0

	for _, file := range cmd.Files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		result, err := stchunk.Parse(file, data, opts)
		if err != nil {
			color.Red("%s: %v", file, err)
			failed++
			continue
		}

		for _, w := range result.Warnings {
			color.Yellow("%s:%s", file, w)
		}
		if !ctx.Quiet {
			color.Green("%s: %d chunks", file, len(result.Chunks))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(cmd.Files))
	}
	return nil
}
