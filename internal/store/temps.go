package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// tempMarker separates a store path from the unique suffix of its temp files.
const tempMarker = ".tmp-"

// TempInfo describes a leftover temp file.
type TempInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// FindTemps lists temp files in dir left behind by interrupted writes,
// oldest first.
func FindTemps(dir string) ([]TempInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var temps []TempInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), tempMarker) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		temps = append(temps, TempInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(temps, func(i, j int) bool {
		return temps[i].ModTime.Before(temps[j].ModTime)
	})
	return temps, nil
}
