package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ExportExtensions are the local spreadsheet export formats the loaders read.
var ExportExtensions = []string{".xlsx", ".xlsm", ".csv"}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds spreadsheet exports below a base directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// IsExport reports whether name has a supported export extension.
func IsExport(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ExportExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindExports lists the spreadsheet exports in dir, oldest first.
// Lock files left behind by spreadsheet editors (~$name.xlsx) are skipped.
func (d *Discovery) FindExports(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "~$") || !IsExport(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// LatestExport returns the most recently modified export in dir.
func (d *Discovery) LatestExport(dir string) (FileInfo, error) {
	files, err := d.FindExports(dir)
	if err != nil {
		return FileInfo{}, err
	}
	if len(files) == 0 {
		return FileInfo{}, fmt.Errorf("no spreadsheet export (%s) found in %s",
			strings.Join(ExportExtensions, ", "), d.resolve(dir))
	}
	return files[len(files)-1], nil
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
