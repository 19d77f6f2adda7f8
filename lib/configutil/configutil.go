package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// localName turns "dir/config.json5" into "dir/config.local.json5".
func localName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// ReadConfig reads a json5 configuration file on top of defaults. Fields
// set in "<name>.local.<ext>" next to it take precedence over both.
//
// os.ErrNotExist is returned when neither file exists.
func ReadConfig[T any](name string, defaults T) (T, error) {
	out := defaults
	found := false

	contents, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return defaults, err
	}
	if len(contents) > 0 {
		err = json5.Unmarshal(contents, &out)
		if err != nil {
			return defaults, fmt.Errorf("parse %s: %w", name, err)
		}
		found = true
	}

	local := localName(name)
	contents, err = os.ReadFile(local)
	if err != nil && !os.IsNotExist(err) {
		return defaults, err
	}
	if len(contents) > 0 {
		var override T
		err = json5.Unmarshal(contents, &override)
		if err != nil {
			return defaults, fmt.Errorf("parse %s: %w", local, err)
		}
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return defaults, err
		}
		slog.Info("merging config with local overrides", "local", local)
		found = true
	}

	if !found {
		return defaults, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively is ReadConfig but it goes up the filesystem from the
// working directory until it finds a configuration file matching name.
func ReadRecursively[T any](name string, defaults T) (T, error) {
	current, err := os.Getwd()
	if err != nil {
		return defaults, err
	}

	for {
		config, err := ReadConfig(filepath.Join(current, name), defaults)
		if err == nil {
			return config, nil
		}
		if !os.IsNotExist(err) {
			return defaults, err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return defaults, os.ErrNotExist
		}
		current = parent
	}
}
