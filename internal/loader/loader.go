// Package loader reads raw blueprint templates from definition files.
//
// Three formats are understood: the game's own XML object definitions, and a
// YAML or JSONC document form that spells attribute operations out
// explicitly. A path may name a single file or a directory; directories are
// walked in lexical order and every recognised file contributes templates.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/qudex/internal/blueprint"
	"github.com/cory-johannsen/qudex/internal/observability"
)

// Format names a definition file format.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatXML   Format = "xml"
	FormatYAML  Format = "yaml"
	FormatJSONC Format = "jsonc"
)

// ParseFormat validates a format name. The empty string means FormatAuto.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatXML, FormatYAML, FormatJSONC:
		return f, nil
	default:
		return "", fmt.Errorf("unknown content format %q", name)
	}
}

// FormatForPath picks a format from a file extension.
//
// Postcondition: Returns the format and true, or "" and false for
// extensions no source understands.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json", ".jsonc":
		return FormatJSONC, true
	default:
		return "", false
	}
}

// Source parses one definition file's bytes into templates.
//
// Postcondition: Returns the templates in document order, or a non-nil error.
type Source interface {
	Parse(data []byte) ([]blueprint.RawTemplate, error)
}

// Sources returns the source for each concrete format.
func Sources() map[Format]Source {
	return map[Format]Source{
		FormatXML:   XMLSource{},
		FormatYAML:  YAMLSource{},
		FormatJSONC: JSONCSource{},
	}
}

// Loader reads templates from files and directories.
type Loader struct {
	sources map[Format]Source
	logger  *zap.Logger
}

// New constructs a Loader over the built-in sources. A nil logger is silent.
func New(logger *zap.Logger) *Loader {
	return &Loader{sources: Sources(), logger: observability.Component(logger, "loader")}
}

// Load reads every template under path. With FormatAuto each file's format
// comes from its extension; otherwise every file is parsed with format.
//
// Precondition: path names an existing file or directory.
// Postcondition: Returns the concatenated templates of every file in lexical
// path order, or the first error met.
func (l *Loader) Load(path string, format Format) ([]blueprint.RawTemplate, error) {
	files, err := l.files(path, format)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no blueprint files found in %s", path)
	}

	var all []blueprint.RawTemplate
	for _, file := range files {
		f := format
		if f == FormatAuto {
			f, _ = FormatForPath(file)
		}
		templates, err := l.LoadFile(file, f)
		if err != nil {
			return nil, err
		}
		all = append(all, templates...)
	}
	l.logger.Info("loaded blueprint templates",
		zap.String("path", path),
		zap.Int("files", len(files)),
		zap.Int("templates", len(all)),
	)
	return all, nil
}

// LoadFile parses a single file with the given concrete format.
func (l *Loader) LoadFile(path string, format Format) ([]blueprint.RawTemplate, error) {
	src, ok := l.sources[format]
	if !ok {
		return nil, fmt.Errorf("no source for format %q (file %s)", format, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading blueprint file %s: %w", path, err)
	}
	templates, err := src.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing blueprint file %s: %w", path, err)
	}
	l.logger.Debug("parsed blueprint file",
		zap.String("file", path),
		zap.String("format", string(format)),
		zap.Int("templates", len(templates)),
	)
	return templates, nil
}

// files lists the definition files under path. A single file is returned as
// is, even when its extension is unknown, provided format is concrete.
func (l *Loader) files(path string, format Format) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("content path %s not accessible: %w", path, err)
	}
	if !info.IsDir() {
		if format == FormatAuto {
			if _, ok := FormatForPath(path); !ok {
				return nil, fmt.Errorf("cannot infer format of %s; set the content format explicitly", path)
			}
		}
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		f, ok := FormatForPath(p)
		if !ok {
			return nil
		}
		if format == FormatAuto || format == f {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking content directory %s: %w", path, err)
	}
	return files, nil
}
