package config

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/rulegridgo/internal/ctxlog"
	"github.com/vk/rulegridgo/internal/evaluator"
	"github.com/vk/rulegridgo/internal/fsutil"
	"github.com/vk/rulegridgo/internal/schema"
)

// Loader reads grid files and merges them into a single configuration. It
// owns the evaluator registry used to turn decoded blocks into runnable
// evaluators.
type Loader struct {
	registry *evaluator.Registry
}

// NewLoader creates a configuration loader with the built-in evaluator kinds
// registered.
func NewLoader() *Loader {
	return &Loader{registry: evaluator.NewRegistry()}
}

// Registry exposes the loader's evaluator registry so callers can add kinds
// before building.
func (l *Loader) Registry() *evaluator.Registry {
	return l.registry
}

// Load discovers every .hcl file under the given paths, parses each and
// merges all blocks into one GridConfig. Files and the blocks within them
// merge in discovery order; a second `engine` or `bindings` block is an
// error because there is nothing sensible to merge them into.
func (l *Loader) Load(ctx context.Context, paths ...string) (*schema.GridConfig, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuration loader started.", "path_count", len(paths))

	files, err := l.findGridFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl grid files found under %v", paths)
	}
	logger.Debug("Discovered grid files.", "count", len(files))

	merged := &schema.GridConfig{}
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse %s: %w", file, diags)
		}

		var root schema.GridConfig
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode %s: %w", file, diags)
		}

		if root.Engine != nil {
			if merged.Engine != nil {
				return nil, fmt.Errorf("%s: duplicate engine block", file)
			}
			merged.Engine = root.Engine
		}
		if root.Bindings != nil {
			if merged.Bindings != nil {
				return nil, fmt.Errorf("%s: duplicate bindings block", file)
			}
			merged.Bindings = root.Bindings
		}
		merged.Logics = append(merged.Logics, root.Logics...)
		merged.Gates = append(merged.Gates, root.Gates...)
		merged.Collections = append(merged.Collections, root.Collections...)
	}

	logger.Debug("Grid loading complete.",
		"logic", len(merged.Logics),
		"gates", len(merged.Gates),
		"collections", len(merged.Collections),
	)
	return merged, nil
}

// findGridFiles walks the given paths and returns every .hcl file found, in
// a stable order. A path naming a single file is taken as-is.
func (l *Loader) findGridFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			add(p)
		}
	}
	return files, nil
}
