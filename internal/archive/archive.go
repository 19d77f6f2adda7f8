// Package archive bundles downloaded flight logs into a zip.
package archive

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

type File struct {
	Name string
	Data []byte
}

// uniqueName returns name, or name with a -2, -3... suffix before the
// extension when it was already used.
func uniqueName(used map[string]int, name string) string {
	if name == "" {
		name = "file"
	}
	count := used[name]
	used[name] = count + 1
	if count == 0 {
		return name
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := count + 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		if used[candidate] == 0 {
			used[candidate] = 1
			return candidate
		}
	}
}

// WriteZip streams files into w as a zip archive in the given order, entry
// names are made unique.
func WriteZip(w io.Writer, files []File) error {
	zw := zip.NewWriter(w)
	used := map[string]int{}
	for _, file := range files {
		entry, err := zw.Create(uniqueName(used, file.Name))
		if err != nil {
			return fmt.Errorf("create entry %s: %w", file.Name, err)
		}
		_, err = entry.Write(file.Data)
		if err != nil {
			return fmt.Errorf("write entry %s: %w", file.Name, err)
		}
	}
	return zw.Close()
}
