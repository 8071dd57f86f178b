// internal/loader/file.go
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/tamzrod/modem-monitor/internal/entity"
)

// Fleet is the layout of a fleet file.
type Fleet struct {
	Conversions []entity.ConversionRecord `yaml:"conversions"`
	Modems      []entity.ModemRecord      `yaml:"modems"`
}

// File serves fleet metadata from a YAML file, re-read on every pull.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

// LoadModems returns the modems of type typ; type 0 selects every modem.
func (l *File) LoadModems(_ context.Context, typ int) ([]entity.ModemRecord, error) {
	f, err := l.read()
	if err != nil {
		return nil, err
	}
	if typ == 0 {
		return f.Modems, nil
	}

	out := make([]entity.ModemRecord, 0, len(f.Modems))
	for _, m := range f.Modems {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out, nil
}

func (l *File) LoadConversions(_ context.Context) ([]entity.ConversionRecord, error) {
	f, err := l.read()
	if err != nil {
		return nil, err
	}
	return f.Conversions, nil
}

func (l *File) read() (Fleet, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return Fleet{}, fmt.Errorf("%w: %w", ErrRead, err)
	}

	var f Fleet
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fleet{}, fmt.Errorf("%w: %s: %w", ErrDecode, l.path, err)
	}
	return f, nil
}

// Watch calls onChange whenever the fleet file is written, created or
// renamed into place, until ctx is done.
// The parent directory is watched so editors that replace the file are seen.
func (l *File) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(l.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	const mask = fsnotify.Write | fsnotify.Create | fsnotify.Rename

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) == target && ev.Op&mask != 0 {
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
