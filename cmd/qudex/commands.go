package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/qudex/internal/blueprint"
	"github.com/cory-johannsen/qudex/internal/loader"
	"github.com/cory-johannsen/qudex/internal/observability"
	"github.com/cory-johannsen/qudex/internal/props"
	"github.com/cory-johannsen/qudex/internal/scripting"
	"github.com/cory-johannsen/qudex/internal/snapshot"
	"github.com/cory-johannsen/qudex/internal/storage/postgres"
	"github.com/cory-johannsen/qudex/internal/wiki"
)

func (a *app) tree(args []string) error {
	tree, err := a.resolved()
	if err != nil {
		return err
	}
	start := tree.Root()
	if len(args) == 1 {
		if start, err = tree.Get(args[0]); err != nil {
			return err
		}
	}

	// last[d] records whether the object on the current path at depth d is
	// the final child of its parent.
	var last []bool
	tree.WalkFrom(start, func(obj *blueprint.Object, depth int) bool {
		var b strings.Builder
		if depth > 0 {
			parent, _ := obj.Parent()
			siblings := parent.ChildNames()
			last = append(last[:depth], siblings[len(siblings)-1] == obj.Name())
			for d := 1; d < depth; d++ {
				if last[d] {
					b.WriteString("    ")
				} else {
					b.WriteString(a.styles.guide.Render("│   "))
				}
			}
			if last[depth] {
				b.WriteString(a.styles.guide.Render("└── "))
			} else {
				b.WriteString(a.styles.guide.Render("├── "))
			}
		} else {
			last = append(last[:0], true)
		}

		switch {
		case depth == 0:
			b.WriteString(a.styles.root.Render(obj.Name()))
		case obj.NumChildren() > 0:
			b.WriteString(a.styles.name.Render(obj.Name()))
		default:
			b.WriteString(a.styles.leaf.Render(obj.Name()))
		}
		if n := obj.NumChildren(); n > 0 {
			b.WriteString(" " + a.styles.count.Render(fmt.Sprintf("(%d)", n)))
		}
		fmt.Fprintln(a.out, b.String())
		return true
	})
	return nil
}

// property is a derived value printed by show.
type property struct {
	label string
	get   func(*blueprint.Object) (string, error)
}

func intProp(fn func(*blueprint.Object) (int, error)) func(*blueprint.Object) (string, error) {
	return func(obj *blueprint.Object) (string, error) {
		v, err := fn(obj)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(v), nil
	}
}

func attributeProp(name string) func(*blueprint.Object) (string, error) {
	return intProp(func(obj *blueprint.Object) (int, error) { return props.Attribute(obj, name) })
}

var properties = []property{
	{"Display", func(obj *blueprint.Object) (string, error) { return props.DisplayName(obj), nil }},
	{"Level", intProp(props.Level)},
	{"HP", props.HitPoints},
	{"AV", intProp(props.AV)},
	{"DV", intProp(props.DV)},
	{"Strength", attributeProp("Strength")},
	{"Agility", attributeProp("Agility")},
	{"Toughness", attributeProp("Toughness")},
	{"PV", intProp(props.PV)},
	{"Damage", props.Damage},
	{"Weight", intProp(props.Weight)},
	{"Value", func(obj *blueprint.Object) (string, error) {
		v, err := props.Value(obj)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}},
	{"Tier", intProp(props.Tier)},
	{"Bits", props.Bits},
	{"Tile", func(obj *blueprint.Object) (string, error) {
		tile, err := props.TileFor(obj)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s/%s", tile.File, tile.Foreground, tile.DetailColor), nil
	}},
}

func (a *app) show(args []string) error {
	obj, err := a.object(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, a.styles.name.Render(obj.Name()))
	fmt.Fprintln(a.out, "  "+obj.InheritancePath())

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, a.styles.header.Render("Properties"))
	tw := tabwriter.NewWriter(a.out, 2, 0, 2, ' ', 0)
	for _, p := range properties {
		v, err := p.get(obj)
		switch {
		case errors.Is(err, props.ErrNotApplicable):
			continue
		case err != nil:
			v = a.styles.errorf.Render(err.Error())
		case v == "":
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\n", a.styles.label.Render(p.label), v)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, a.styles.header.Render("Attributes"))
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(obj.Attributes()); err != nil {
		return fmt.Errorf("encoding attributes: %w", err)
	}
	return enc.Close()
}

func (a *app) stat(args []string) error {
	obj, err := a.object(args[0])
	if err != nil {
		return err
	}
	if _, ok := obj.Field(args[1], args[2]); !ok {
		return fmt.Errorf("%s has no %s.%s", obj.Name(), args[1], args[2])
	}
	v, err := obj.Stat(args[1], args[2], 0)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, v)
	return nil
}

func (a *app) query(args []string) error {
	tree, err := a.resolved()
	if err != nil {
		return err
	}
	matches, err := scripting.Filter(tree, strings.Join(args, " "), a.cfg.Scripting.InstructionLimit)
	if err != nil {
		return err
	}
	for _, obj := range matches {
		fmt.Fprintln(a.out, obj.Name())
	}
	a.logger.Debug("query complete", zap.Int("matches", len(matches)))
	return nil
}

func (a *app) snapshot(args []string) error {
	tree, err := a.resolved()
	if err != nil {
		return err
	}
	c, err := snapshot.ParseCompression(a.cfg.Snapshot.Compression)
	if err != nil {
		return err
	}
	if err := snapshot.WriteFile(args[0], tree, c); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "wrote %d objects to %s (%s, %s)\n", tree.Len(), args[0], c, tree.Fingerprint().Short())
	return nil
}

func (a *app) convert(args []string) (err error) {
	tree, err := a.resolved()
	if err != nil {
		return err
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	templates := tree.Templates()
	if err := loader.WriteYAML(f, templates); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "wrote %d blueprints to %s\n", len(templates), args[0])
	return nil
}

func (a *app) wiki(args []string) error {
	r, err := wiki.NewRenderer(a.cfg.Wiki)
	if err != nil {
		return err
	}
	obj, err := a.object(args[0])
	if err != nil {
		return err
	}
	tmpl, err := r.Template(obj)
	if err != nil {
		return err
	}
	if !r.Eligible(obj) {
		a.logger.Warn("object would not get its own wiki page", zap.String("object", obj.Name()))
	}
	fmt.Fprint(a.out, tmpl)
	return nil
}

func (a *app) export(_ []string) error {
	tree, err := a.resolved()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := postgres.NewPool(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.NewCatalogRepository(pool.DB(), observability.Component(a.logger, "catalog"))
	rec, err := repo.Export(ctx, tree)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "exported %d objects as load %s (%s)\n", rec.ObjectCount, rec.ID, tree.Fingerprint().Short())
	return nil
}
