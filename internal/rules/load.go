package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/solatis/cdiscengine/internal/types"
)

/*
 * Rule file loading.
 *
 * A rule file holds one rule object or an array of rules, as JSON (.json) or
 * YAML (.yaml, .yml). YAML is decoded to a generic tree and re-encoded as
 * JSON so both syntaxes go through the same Rule decoder, including the
 * condition tree parser.
 */

// LoadFile reads every rule in path.
func LoadFile(path string) ([]types.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		data, err = json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", path, err)
		}
	case ".json":
	default:
		return nil, fmt.Errorf("unsupported rule file extension: %s", path)
	}

	rules, err := decodeRules(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return rules, nil
}

func decodeRules(data []byte) ([]types.Rule, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rules []types.Rule
		if err := json.Unmarshal(trimmed, &rules); err != nil {
			return nil, err
		}
		return rules, nil
	}
	var rule types.Rule
	if err := json.Unmarshal(trimmed, &rule); err != nil {
		return nil, err
	}
	return []types.Rule{rule}, nil
}

// LoadPaths loads rules from files and directories. Directories are scanned
// one level deep for rule files in name order.
func LoadPaths(paths []string) ([]types.Rule, error) {
	var out []types.Rule
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		files := []string{p}
		if info.IsDir() {
			files, err = ruleFiles(p)
			if err != nil {
				return nil, err
			}
		}
		for _, f := range files {
			rules, err := LoadFile(f)
			if err != nil {
				return nil, err
			}
			out = append(out, rules...)
		}
	}
	return out, nil
}

func ruleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// FilterByStandard keeps rules declaring the given standard. An empty version
// matches any version. Names compare case-insensitively.
func FilterByStandard(rules []types.Rule, standard, version string) []types.Rule {
	if standard == "" {
		return rules
	}
	var out []types.Rule
	for _, r := range rules {
		for _, s := range r.Standards {
			if !strings.EqualFold(s.Name, standard) {
				continue
			}
			if version == "" || strings.EqualFold(s.Version, version) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
