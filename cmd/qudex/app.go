package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/qudex/internal/blueprint"
	"github.com/cory-johannsen/qudex/internal/config"
	"github.com/cory-johannsen/qudex/internal/loader"
	"github.com/cory-johannsen/qudex/internal/snapshot"
)

// app carries the state shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	out    io.Writer
	styles styles

	loaded    *blueprint.Tree
	templates []blueprint.RawTemplate
}

func newApp(cfg config.Config, logger *zap.Logger, out io.Writer) *app {
	return &app{cfg: cfg, logger: logger, out: out, styles: newStyles(out)}
}

// resolved returns the resolved tree, loading it on first use.
//
// When a snapshot path is configured, was built from the configured content
// path, and is newer than that content, the snapshot is read instead of the
// content. Any other snapshot is rebuilt from the content.
func (a *app) resolved() (*blueprint.Tree, error) {
	if a.loaded != nil {
		return a.loaded, nil
	}

	if path := a.cfg.Snapshot.Path; path != "" {
		tree, err := a.readSnapshot(path)
		if err == nil {
			a.loaded = tree
			return tree, nil
		}
		a.logger.Info("snapshot unusable, loading content", zap.String("snapshot", path), zap.Error(err))
	}

	templates, err := a.raw()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	tree, err := blueprint.Resolve(templates,
		blueprint.WithSource(a.cfg.Content.Path),
		blueprint.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	a.logger.Info("resolved blueprints",
		zap.Int("objects", tree.Len()),
		zap.String("fingerprint", tree.Fingerprint().Short()),
		zap.Duration("elapsed", time.Since(start)),
	)

	if path := a.cfg.Snapshot.Path; path != "" {
		if err := a.writeSnapshot(path, tree); err != nil {
			a.logger.Warn("writing snapshot cache", zap.String("snapshot", path), zap.Error(err))
		}
	}
	a.loaded = tree
	return tree, nil
}

// raw returns the unresolved templates read from the configured content.
func (a *app) raw() ([]blueprint.RawTemplate, error) {
	if a.templates != nil {
		return a.templates, nil
	}
	format, err := loader.ParseFormat(a.cfg.Content.Format)
	if err != nil {
		return nil, err
	}
	templates, err := loader.New(a.logger).Load(a.cfg.Content.Path, format)
	if err != nil {
		return nil, err
	}
	a.templates = templates
	return templates, nil
}

func (a *app) readSnapshot(path string) (*blueprint.Tree, error) {
	snap, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	newest, err := newestModTime(a.cfg.Content.Path)
	if err != nil {
		return nil, err
	}
	if newest.After(snap.ModTime()) {
		return nil, errors.New("snapshot is older than content")
	}
	tree, err := snapshot.ReadFile(path, blueprint.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	if filepath.Clean(tree.Source()) != filepath.Clean(a.cfg.Content.Path) {
		return nil, fmt.Errorf("snapshot was built from %q, not %q", tree.Source(), a.cfg.Content.Path)
	}
	a.logger.Info("loaded snapshot",
		zap.String("snapshot", path),
		zap.Int("objects", tree.Len()),
		zap.String("fingerprint", tree.Fingerprint().Short()),
	)
	return tree, nil
}

func (a *app) writeSnapshot(path string, tree *blueprint.Tree) error {
	c, err := snapshot.ParseCompression(a.cfg.Snapshot.Compression)
	if err != nil {
		return err
	}
	return snapshot.WriteFile(path, tree, c)
}

// newestModTime returns the latest modification time of path or, for a
// directory, of anything beneath it.
func newestModTime(path string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("checking content: %w", err)
	}
	return newest, nil
}

// object resolves the tree and looks up one object in it.
func (a *app) object(name string) (*blueprint.Object, error) {
	tree, err := a.resolved()
	if err != nil {
		return nil, err
	}
	return tree.Get(name)
}
