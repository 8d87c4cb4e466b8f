package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAML loads tickers from a watchlist file, or from every .yaml/.yml file
// under a directory. Accepted shapes:
//
//	watchlist:            # map form, groups may nest
//	  - sym: AAPL
//	  - name: Tech
//	    watchlist: [ {sym: MSFT}, GOOG ]
//
//	- sym: AAPL           # top-level list of items or plain symbols
//	- MSFT
type YAML struct {
	Path string
}

func (s YAML) Load(ctx context.Context) ([]string, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return loadYAMLFile(s.Path)
	}

	var files []string
	err = filepath.WalkDir(s.Path, func(p string, d os.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		case d.IsDir() && p != s.Path && strings.HasPrefix(d.Name(), "."):
			return filepath.SkipDir
		case !d.IsDir() && isYAML(d.Name()):
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var all []string
	for _, f := range files {
		syms, err := loadYAMLFile(f)
		if err != nil {
			return nil, err
		}
		all = append(all, syms...)
	}
	return all, nil
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func loadYAMLFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	syms, err := parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return syms, nil
}

// parseYAML collects symbols depth-first in document order.
func parseYAML(data []byte) ([]string, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	var syms []string
	var walk func(node any)
	walk = func(node any) {
		switch n := node.(type) {
		case []any:
			for _, e := range n {
				walk(e)
			}
		case map[string]any:
			if child, ok := n["watchlist"]; ok {
				walk(child)
				return
			}
			if sym, ok := n["sym"]; ok && sym != nil {
				syms = append(syms, strings.TrimSpace(fmt.Sprint(sym)))
			}
		case string:
			syms = append(syms, strings.TrimSpace(n))
		}
	}

	switch r := root.(type) {
	case map[string]any:
		list, ok := r["watchlist"]
		if !ok || list == nil {
			return nil, fmt.Errorf("invalid yaml: missing 'watchlist'")
		}
		walk(list)
	case []any:
		walk(r)
	default:
		return nil, fmt.Errorf("invalid yaml: expected a list or a map with 'watchlist'")
	}
	return syms, nil
}
