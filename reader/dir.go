package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vegasq/sheetql/logging"
	"github.com/vegasq/sheetql/sqlerr"
	"github.com/vegasq/sheetql/table"
)

// supportedExtensions in probe order when a source omits its extension.
var supportedExtensions = []string{".xlsx", ".xlsm", ".csv", ".parquet"}

// DirProvider resolves table references against files in one directory.
// Loaded relations are cached keyed by file identity (size and mtime), so
// repeated queries against an unchanged file skip the disk entirely.
type DirProvider struct {
	dir     string
	log     *logging.Logger
	noCache bool

	mu    sync.RWMutex
	cache map[string]*cacheEntry
}

type cacheEntry struct {
	rel     *table.Relation
	size    int64
	modTime time.Time
}

// NewDirProvider serves relations from files under dir.
func NewDirProvider(dir string) *DirProvider {
	return &DirProvider{
		dir:   dir,
		log:   logging.New("reader"),
		cache: make(map[string]*cacheEntry),
	}
}

// SetCaching toggles the relation cache. Disabling it also drops what is
// already cached.
func (p *DirProvider) SetCaching(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.noCache = !enabled
	if p.noCache {
		p.cache = make(map[string]*cacheEntry)
	}
}

// Relation resolves (source, sheet) to a file and loads it, consulting the
// cache first. Source may carry its extension or omit it; a "sheet" that
// is really a file extension (data.csv parses as source "data", sheet
// "csv") is folded back into the file name.
func (p *DirProvider) Relation(source, sheet string) (*table.Relation, error) {
	path, innerSheet, err := p.resolve(source, sheet)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, sqlerr.RelationNotFound(source, sheet).WithCause(err)
	}

	key := path + "\x00" + innerSheet
	p.mu.RLock()
	entry, ok := p.cache[key]
	noCache := p.noCache
	p.mu.RUnlock()
	if !noCache && ok && entry.size == stat.Size() && entry.modTime.Equal(stat.ModTime()) {
		p.log.Debugf("cache hit for %s sheet=%q", path, innerSheet)
		return entry.rel, nil
	}

	rel, err := loadFile(path, innerSheet)
	if err != nil {
		return nil, err
	}
	p.log.Infof("loaded %s sheet=%q: %d rows", path, innerSheet, len(rel.Rows))

	if !noCache {
		p.mu.Lock()
		p.cache[key] = &cacheEntry{rel: rel, size: stat.Size(), modTime: stat.ModTime()}
		p.mu.Unlock()
	}
	return rel, nil
}

// ListRelations returns the relation names inside one source: sheet names
// for workbooks, the base name for single-relation files.
func (p *DirProvider) ListRelations(source string) ([]string, error) {
	path, _, err := p.resolve(source, "")
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ListXLSXSheets(path)
	default:
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return []string{base}, nil
	}
}

// ListSources returns the loadable files in the provider's directory,
// sorted by name.
func (p *DirProvider) ListSources() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", p.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, known := range supportedExtensions {
			if ext == known {
				names = append(names, e.Name())
				break
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// ClearCache drops every cached relation.
func (p *DirProvider) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[string]*cacheEntry)
	p.log.Infof("cache cleared")
}

// CacheLen returns the number of cached relations.
func (p *DirProvider) CacheLen() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cache)
}

// resolve maps (source, sheet) to a concrete file path plus the sheet to
// read within it.
func (p *DirProvider) resolve(source, sheet string) (string, string, error) {
	// Source already carries a known extension: staff.xlsx.people.
	if hasSupportedExtension(source) {
		path := filepath.Join(p.dir, source)
		if fileExists(path) {
			return path, normalizeSheet(path, sheet), nil
		}
		return "", "", sqlerr.RelationNotFound(source, sheet)
	}
	// The "sheet" is really an extension: data.csv.
	if sheet != "" && hasSupportedExtension(source+"."+sheet) {
		path := filepath.Join(p.dir, source+"."+sheet)
		if fileExists(path) {
			return path, "", nil
		}
	}
	// Probe known extensions.
	for _, ext := range supportedExtensions {
		path := filepath.Join(p.dir, source+ext)
		if fileExists(path) {
			return path, normalizeSheet(path, sheet), nil
		}
	}
	return "", "", sqlerr.RelationNotFound(source, sheet).
		WithSuggestion("use SHOW DB to list loadable files")
}

// normalizeSheet folds the sheet name away for single-relation files.
// ListRelations reports such files under their base name, so a round trip
// through it yields Relation("people.csv", "people").
func normalizeSheet(path, sheet string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".parquet":
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if strings.EqualFold(sheet, base) {
			return ""
		}
	}
	return sheet
}

func loadFile(path, sheet string) (*table.Relation, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, sheet)
	case ".csv":
		if sheet != "" {
			return nil, sqlerr.RelationNotFound(filepath.Base(path), sheet).
				WithSuggestion("CSV files hold a single relation, drop the sheet name")
		}
		return ReadCSV(path)
	case ".parquet":
		if sheet != "" {
			return nil, sqlerr.RelationNotFound(filepath.Base(path), sheet).
				WithSuggestion("parquet files hold a single relation, drop the sheet name")
		}
		return ReadParquet(path)
	default:
		return nil, fmt.Errorf("unsupported file type %s", path)
	}
}

func hasSupportedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range supportedExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && !stat.IsDir()
}
