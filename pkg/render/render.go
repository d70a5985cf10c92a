// Package render implements the render and decode subprograms, which load a
// compiled bundle and show it as HTML or as a listing.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"gopkg.in/yaml.v3"

	"src.manglr.sh/pkg/code"
	"src.manglr.sh/pkg/config"
	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/eval"
	"src.manglr.sh/pkg/logutil"
	"src.manglr.sh/pkg/prog"
	"src.manglr.sh/pkg/store"
	"src.manglr.sh/pkg/view/htmlview"
)

var logger = logutil.GetLogger("[render] ")

// Program is the render subprogram.
var Program prog.Program = program{}

// DecodeProgram is the decode subprogram.
var DecodeProgram prog.Program = decodeProgram{}

// Context used by --watch; stops on interrupt.
var watchContext = func() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

type program struct{}

func (program) Run(fds [3]*os.File, f *prog.Flags) error {
	if !f.Render {
		return prog.ErrNotSuitable
	}
	if f.Watch && f.Data == "" {
		return prog.BadUsage("--watch requires --data")
	}
	p, err := loadBundle(f.Bundle)
	if err != nil {
		return err
	}
	cfg, err := config.Load(f.Config)
	if err != nil {
		return err
	}
	data, err := loadData(f.Data)
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	s := &session{prog: p, cfg: cfg, db: db, out: fds[1]}
	if f.Watch {
		ctx, cancel := watchContext()
		defer cancel()
		return s.watch(ctx, f.Data, data)
	}
	return s.once(data)
}

type decodeProgram struct{}

func (decodeProgram) Run(fds [3]*os.File, f *prog.Flags) error {
	if !f.Decode {
		return prog.ErrNotSuitable
	}
	p, err := loadBundle(f.Bundle)
	if err != nil {
		return err
	}
	return code.Disassemble(fds[1], p)
}

func loadBundle(name string) (*code.Program, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	p, err := code.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

var errDataNotMapping = errors.New("data file must be a mapping")

// Reads a YAML mapping of values to bind in the root scope. Mappings inside
// become models. An empty name yields no data.
func loadData(name string) (map[string]any, error) {
	if name == "" {
		return nil, nil
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	var v any
	if err := yaml.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	switch v := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("%s: %w", name, errDataNotMapping)
	}
}

// Opens the persistent database, or returns nil if it is disabled.
func openDB(cfg *config.Config) (store.DBStore, error) {
	if cfg.DB == "" {
		return nil, nil
	}
	path, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	return store.NewStore(path)
}

type session struct {
	prog *code.Program
	cfg  *config.Config
	db   store.DBStore
	out  io.Writer
}

func (s *session) opts(data map[string]any, sched dep.Scheduler) eval.Opts {
	opts := eval.Opts{Data: data, Host: htmlview.New(), Scheduler: sched, Config: s.cfg}
	if s.db != nil {
		opts.DB = s.db
	}
	return opts
}

// Mounts once, lets pending work settle and writes the HTML.
func (s *session) once(data map[string]any) error {
	rt, err := eval.Mount(s.prog, s.opts(data, nil))
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.Flush()
	return s.render(rt)
}

func (s *session) render(rt *eval.Runtime) error {
	h := rt.Host().(*htmlview.Host)
	if err := h.Render(s.out); err != nil {
		return err
	}
	_, err := io.WriteString(s.out, "\n")
	return err
}

// Reloads data into the models of rt. Values that are not mappings are bound
// as constants and cannot change.
func reload(rt *eval.Runtime, data map[string]any) {
	for k, v := range data {
		m := rt.Model(k)
		fields, ok := v.(map[string]any)
		if m == nil || !ok {
			logger.Printf("cannot reload %s: not bound to a model", k)
			continue
		}
		m.Load(fields)
	}
}
