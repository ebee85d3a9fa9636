package hcl

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/opcompile/internal/config"
	"github.com/specialistvlad/opcompile/internal/ctxlog"
	"github.com/specialistvlad/opcompile/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL plan loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under the given paths and merges them
// into one model. Blocks may be spread across files in any order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, errors.New("no .hcl plan files found")
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	nodeIDs := make(map[string]string)
	scopeNames := make(map[string]string)
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, b := range root.Schedulers {
			if model.Scheduler != nil {
				return nil, nil, fmt.Errorf("%s: only one scheduler block is allowed per plan", file)
			}
			if model.Scheduler, err = translateScheduler(b); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", file, err)
			}
		}
		for _, b := range root.Backends {
			if model.Backend != nil {
				return nil, nil, fmt.Errorf("%s: only one backend block is allowed per plan, already have %q", file, model.Backend.Type)
			}
			if model.Backend, err = translateBackend(b); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", file, err)
			}
		}
		for _, b := range root.Nodes {
			n, err := translateNode(b)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", file, err)
			}
			id := n.Type + "." + n.Name
			if prev, dup := nodeIDs[id]; dup {
				return nil, nil, fmt.Errorf("%s: node %s already declared in %s", file, id, prev)
			}
			nodeIDs[id] = file
			model.Nodes = append(model.Nodes, n)
		}
		for _, b := range root.Scopes {
			s, err := translateScope(b)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", file, err)
			}
			if prev, dup := scopeNames[s.Name]; dup {
				return nil, nil, fmt.Errorf("%s: scope %q already declared in %s", file, s.Name, prev)
			}
			scopeNames[s.Name] = file
			model.Scopes = append(model.Scopes, s)
		}
	}

	logger.Debug("HCL loading complete.", "nodes", len(model.Nodes), "scopes", len(model.Scopes), "has_backend", model.Backend != nil)
	return model, NewConverter(), nil
}
