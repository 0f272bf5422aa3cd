package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/starmirror/internal/ctxlog"
)

// fileRoot decodes the top-level blocks of one file.
type fileRoot struct {
	Devices []*deviceBlock `hcl:"device,block"`
	UIs     []*uiBlock     `hcl:"ui,block"`
	Remain  hcl.Body       `hcl:",remain"`
}

// Load reads every .hcl file found under paths, in order, on top of the
// defaults. Paths that do not exist are skipped.
func Load(ctx context.Context, paths ...string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	cfg := Default()
	parser := hclparse.NewParser()
	evalCtx := EvalContext(os.Environ())

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := decode(hclFile.Body, evalCtx, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
	}

	logger.Debug("HCL loading complete.", "files", len(files), "url", cfg.Device.URL, "transport", cfg.Device.Transport)
	return cfg, nil
}

// Parse decodes a single in-memory HCL document on top of the defaults.
func Parse(ctx context.Context, filename string, src []byte, environ []string) (*Config, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	cfg := Default()
	if err := decode(hclFile.Body, EvalContext(environ), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, err)
	}
	ctxlog.FromContext(ctx).Debug("HCL document decoded.", "file", filename)
	return cfg, nil
}

func decode(body hcl.Body, evalCtx *hcl.EvalContext, cfg *Config) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, evalCtx, &root); diags.HasErrors() {
		return diags
	}
	for _, d := range root.Devices {
		if err := d.apply(&cfg.Device); err != nil {
			return err
		}
	}
	for _, u := range root.UIs {
		u.apply(&cfg.UI)
	}
	return nil
}

// EvalContext exposes environ, a list of KEY=value pairs, as the `env`
// object.
func EvalContext(environ []string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return allFiles, nil
}
