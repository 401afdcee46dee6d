// Package content holds the localised text catalogs of the journey. Steps
// select catalog keys; this package turns keys into text.
package content

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Supported locales.
const (
	LocaleEnglish = "en"
	LocaleWelsh   = "cy"
)

// CommonStep holds keys shared by every step, such as error messages.
const CommonStep = "common"

//go:embed catalog
var embedded embed.FS

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Catalog maps locale → step → key → text. Catalog files live at
// <locale>/<Step>.yaml; nested YAML maps flatten to dotted keys.
type Catalog struct {
	fsys   fs.FS
	logger *slog.Logger

	mu    sync.RWMutex
	texts map[string]map[string]map[string]string
}

// Load reads every catalog file under fsys.
func Load(fsys fs.FS, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{fsys: fsys, logger: logger}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded(logger *slog.Logger) (*Catalog, error) {
	sub, err := fs.Sub(embedded, "catalog")
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return Load(sub, logger)
}

// Reload re-reads the catalog files. On failure the previous texts stay in
// place.
func (c *Catalog) Reload() error {
	files, err := doublestar.Glob(c.fsys, "**/*.yaml")
	if err != nil {
		return fmt.Errorf("glob catalog files: %w", err)
	}
	sort.Strings(files)

	texts := make(map[string]map[string]map[string]string)
	for _, file := range files {
		locale, step, ok := splitCatalogPath(file)
		if !ok {
			c.logger.Debug("Skipping catalog file outside <locale>/<step>.yaml", "file", file)
			continue
		}

		data, err := fs.ReadFile(c.fsys, file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}

		if texts[locale] == nil {
			texts[locale] = make(map[string]map[string]string)
		}
		flat := make(map[string]string)
		flatten("", doc, flat)
		texts[locale][step] = flat
	}

	c.mu.Lock()
	c.texts = texts
	c.mu.Unlock()

	c.logger.Debug("Content catalog loaded", "files", len(files), "locales", len(texts))
	return nil
}

func splitCatalogPath(file string) (locale, step string, ok bool) {
	dir, base := path.Split(file)
	dir = strings.Trim(dir, "/")
	if dir == "" || strings.Contains(dir, "/") {
		return "", "", false
	}
	return dir, strings.TrimSuffix(base, path.Ext(base)), true
}

func flatten(prefix string, v any, out map[string]string) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flatten(join(k), child, out)
		}
	case []any:
		for i, child := range t {
			flatten(join(strconv.Itoa(i)), child, out)
		}
	case nil:
		out[prefix] = ""
	case string:
		out[prefix] = t
	default:
		out[prefix] = fmt.Sprint(t)
	}
}

func (c *Catalog) text(locale, step, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.texts[locale][step][key]
	return s, ok
}

// Lookup returns the text of key for a step. It falls back to the shared
// common catalog of the same locale, then to English, and finally to the key
// itself.
func (c *Catalog) Lookup(locale, step, key string) string {
	for _, try := range [][2]string{
		{locale, step},
		{locale, CommonStep},
		{LocaleEnglish, step},
		{LocaleEnglish, CommonStep},
	} {
		if s, ok := c.text(try[0], try[1], key); ok {
			return s
		}
	}
	return key
}

// Has reports whether key exists for step in locale or English.
func (c *Catalog) Has(locale, step, key string) bool {
	if _, ok := c.text(locale, step, key); ok {
		return true
	}
	_, ok := c.text(LocaleEnglish, step, key)
	return ok
}

// Render looks up every key and fills {{ name }} placeholders from values.
// Unknown placeholders are left empty.
func (c *Catalog) Render(locale, step string, keys []string, values map[string]string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		out[key] = Interpolate(c.Lookup(locale, step, key), values)
	}
	return out
}

// Locales returns the loaded locales.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.texts))
	for l := range c.texts {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Interpolate replaces {{ name }} placeholders in s with values[name].
func Interpolate(s string, values map[string]string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		return values[name]
	})
}
