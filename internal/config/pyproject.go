package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type pyproject struct {
	Tool struct {
		Doccov map[string]any `toml:"doccov"`
	} `toml:"tool"`
}

// readPyproject returns the [tool.doccov] table of a pyproject.toml with
// snake_case and kebab-case keys folded so they match viper's keys.
// A missing file yields an empty map.
func readPyproject(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var doc pyproject
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, err
	}
	return foldKeys(doc.Tool.Doccov), nil
}

func foldKeys(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = foldKeys(nested)
		}
		out[foldKey(k)] = v
	}
	return out
}

// foldKey maps max_file_size_bytes and max-file-size-bytes to maxfilesizebytes;
// viper compares keys case-insensitively.
func foldKey(k string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(k))
}
