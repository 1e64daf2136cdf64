// Package fonts keeps the process-wide set of fonts the conversion module may
// use. Faces are keyed by family and style as recorded in the font's name
// table, so the Regular and Bold files of one family live side by side.
// Lookups are case-insensitive.
package fonts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/image/font/sfnt"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
)

// ErrFontNotFound is returned by Lookup for unknown families and styles.
var ErrFontNotFound = errors.New("wordsdk: font not found")

// DefaultStyle is the style assumed for fonts without a subfamily name, and
// the one Lookup prefers.
const DefaultStyle = "Regular"

// Face names one registered face.
type Face struct {
	Family string `json:"family"`
	Style  string `json:"style"`
}

// Font is one registered face.
type Font struct {
	Face
	Path string // empty for fonts registered from memory

	data []byte
}

// Data returns the font file contents, reading Path on demand.
func (f *Font) Data() ([]byte, error) {
	if f.data != nil {
		return f.data, nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, &sdkerrors.IOError{Op: "read", Path: f.Path, Err: err}
	}
	return data, nil
}

// Registry is a concurrency-safe set of fonts.
type Registry struct {
	mu    sync.RWMutex
	fonts map[string]*Font
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{fonts: make(map[string]*Font)}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a font from memory. The family and style are taken from the
// font's name table; fallback is used when the table has no family. A later
// registration of the same family and style replaces the earlier one.
func (r *Registry) Register(fallback string, data []byte) (string, error) {
	face, err := faceOf(data)
	if err != nil {
		return "", fmt.Errorf("parsing font %q: %w", fallback, err)
	}
	if face.Family == "" {
		face.Family = fallback
	}
	if face.Family == "" {
		return "", fmt.Errorf("font has no family name")
	}

	r.put(&Font{Face: face, data: slices.Clone(data)})
	return face.Family, nil
}

// RegisterFile adds the font stored at path. The file is read once to learn
// its family; its contents are read again when the module asks for it.
func (r *Registry) RegisterFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &sdkerrors.IOError{Op: "read", Path: path, Err: err}
	}
	face, err := faceOf(data)
	if err != nil {
		return "", fmt.Errorf("parsing font %s: %w", path, err)
	}
	if face.Family == "" {
		face.Family = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	r.put(&Font{Face: face, Path: path})
	return face.Family, nil
}

// LoadSystemFonts registers every TrueType and OpenType file below dirs, or
// below SystemFontDirs when dirs is empty. Missing directories and files
// that do not parse are skipped. It returns the number of fonts registered.
func (r *Registry) LoadSystemFonts(dirs ...string) (int, error) {
	if len(dirs) == 0 {
		dirs = SystemFontDirs()
	}

	var n int
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir && errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !isFontFile(path) {
				return nil
			}
			if _, err := r.RegisterFile(path); err == nil {
				n++
			}
			return nil
		})
		if err != nil {
			return n, &sdkerrors.IOError{Op: "scan", Path: dir, Err: err}
		}
	}
	return n, nil
}

// Lookup returns the font data for the Regular face of family. Families
// without a Regular face resolve to their first style in sort order.
func (r *Registry) Lookup(family string) ([]byte, error) {
	return r.LookupStyle(family, "")
}

// LookupStyle returns the font data for one face of family. An empty style
// behaves like Lookup.
func (r *Registry) LookupStyle(family, style string) ([]byte, error) {
	r.mu.RLock()
	f, ok := r.fonts[key(family, style)]
	if !ok && style == "" {
		f, ok = r.fonts[key(family, DefaultStyle)]
		if !ok {
			f, ok = r.firstFace(family)
		}
	}
	r.mu.RUnlock()
	if !ok {
		if style != "" {
			return nil, fmt.Errorf("%w: %s %s", ErrFontNotFound, family, style)
		}
		return nil, fmt.Errorf("%w: %s", ErrFontNotFound, family)
	}
	return f.Data()
}

// firstFace must be called with r.mu held.
func (r *Registry) firstFace(family string) (*Font, bool) {
	var first *Font
	for _, f := range r.fonts {
		if !strings.EqualFold(f.Family, family) {
			continue
		}
		if first == nil || compareFold(f.Style, first.Style) < 0 {
			first = f
		}
	}
	return first, first != nil
}

// Faces returns every registered face, sorted by family then style.
func (r *Registry) Faces() []Face {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Face, 0, len(r.fonts))
	for _, f := range r.fonts {
		out = append(out, f.Face)
	}
	slices.SortFunc(out, func(a, b Face) int {
		if c := compareFold(a.Family, b.Family); c != 0 {
			return c
		}
		return compareFold(a.Style, b.Style)
	})
	return out
}

// Families returns the registered family names, sorted. A family with
// several faces appears once.
func (r *Registry) Families() []string {
	var out []string
	for _, f := range r.Faces() {
		if n := len(out); n == 0 || !strings.EqualFold(out[n-1], f.Family) {
			out = append(out, f.Family)
		}
	}
	return out
}

// Len returns the number of registered faces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fonts)
}

// Reset removes every font.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.fonts)
}

func (r *Registry) put(f *Font) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fonts[key(f.Family, f.Style)] = f
}

func key(family, style string) string {
	return strings.ToLower(family) + "\x00" + strings.ToLower(style)
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// SystemFontDirs returns the usual font directories for the running OS.
func SystemFontDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		dirs := []string{filepath.Join(os.Getenv("WINDIR"), "Fonts")}
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			dirs = append(dirs, filepath.Join(local, "Microsoft", "Windows", "Fonts"))
		}
		return dirs
	case "darwin":
		return []string{
			"/System/Library/Fonts",
			"/Library/Fonts",
			filepath.Join(home, "Library", "Fonts"),
		}
	default:
		return []string{
			"/usr/share/fonts",
			"/usr/local/share/fonts",
			filepath.Join(home, ".local", "share", "fonts"),
			filepath.Join(home, ".fonts"),
		}
	}
}

func isFontFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttf", ".otf":
		return true
	default:
		return false
	}
}

func faceOf(data []byte) (Face, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return Face{}, err
	}
	var buf sfnt.Buffer
	family, err := name(f, &buf, sfnt.NameIDTypographicFamily, sfnt.NameIDFamily)
	if err != nil {
		return Face{}, err
	}
	style, err := name(f, &buf, sfnt.NameIDTypographicSubfamily, sfnt.NameIDSubfamily)
	if err != nil {
		return Face{}, err
	}
	if style == "" {
		style = DefaultStyle
	}
	return Face{Family: family, Style: style}, nil
}

// name returns the first non-empty name table entry among ids.
func name(f *sfnt.Font, buf *sfnt.Buffer, ids ...sfnt.NameID) (string, error) {
	for _, id := range ids {
		s, err := f.Name(buf, id)
		if errors.Is(err, sfnt.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
	}
	return "", nil
}
