// Package eval instantiates compiled programs into a host tree and keeps the
// tree up to date as the values it depends on change.
//
// Each instruction of a template becomes a Scope in a scope.Tree. Expressions
// become Deps in a dep.Engine, and every host mutation is driven by a Dep
// that watches them. Conditions and repeats reconcile their children after
// propagation has settled, using Engine.Defer.
//
// A Runtime belongs to a single goroutine, the one its Scheduler runs work
// on. Controllers that do network work post their results back to it.
package eval

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"src.manglr.sh/pkg/code"
	"src.manglr.sh/pkg/config"
	"src.manglr.sh/pkg/ctrl"
	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/logutil"
	"src.manglr.sh/pkg/scope"
	"src.manglr.sh/pkg/store/storedefs"
	"src.manglr.sh/pkg/vals"
	"src.manglr.sh/pkg/view"
	"src.manglr.sh/pkg/view/htmlview"
)

var logger = logutil.GetLogger("[eval] ")

// Opts controls how a program is mounted.
type Opts struct {
	// Data is bound in the root scope. Map values become Models, so that
	// their fields can be read and written individually.
	Data map[string]any
	// Defaults to a new *htmlview.Host.
	Host view.Host
	// Defaults to the root of Host when it is an *htmlview.Host.
	Container view.Node
	// Defaults to a new *dep.Manual, run by Runtime.Flush.
	Scheduler dep.Scheduler
	// Defaults to the Scheduler if it is also a Poster.
	Poster dep.Poster
	// Defaults to config.Default().
	Config *config.Config
	// Persistent storage for controllers. May be nil.
	DB storedefs.Store
	// Defaults to a MemHistory at Config.History.
	History ctrl.History
	Client  *http.Client
}

// Runtime is a mounted program.
type Runtime struct {
	prog    *code.Program
	eng     *dep.Engine
	host    view.Host
	root    *scope.Scope
	manual  *dep.Manual
	env     *ctrl.Env
	history ctrl.History
	models  map[string]*vals.Model
}

// BadOpcode is the error for an opcode that the interpreter does not know.
type BadOpcode struct {
	// Kind is "node", "attribute" or "expression".
	Kind string
	Op   int
	Pos  int
}

func (e *BadOpcode) Error() string {
	return fmt.Sprintf("bad %s opcode %d at %d", e.Kind, e.Op, e.Pos)
}

var (
	errNoTemplates = errors.New("program has no templates")
	errNoContainer = errors.New("no container given for host")
)

// Run decodes a transport-encoded stream and mounts it.
func Run(encoded string, symbols []string, opts Opts) (*Runtime, error) {
	raw, err := code.Decode(encoded)
	if err != nil {
		return nil, err
	}
	prog, err := code.Load(raw, symbols)
	if err != nil {
		return nil, err
	}
	return Mount(prog, opts)
}

// Mount binds opts.Data in a new root scope and instantiates template 1 of
// prog into it.
//
// A malformed program stops instantiation with an error; whatever was built
// up to that point is destroyed.
func Mount(prog *code.Program, opts Opts) (rt *Runtime, err error) {
	if prog.NumTemplates() < 1 {
		return nil, errNoTemplates
	}
	rt, err = newRuntime(prog, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch e := r.(type) {
		case *BadOpcode:
			err = e
		case *code.FormatError:
			err = e
		default:
			panic(r)
		}
		rt.root.Destroy()
		rt = nil
	}()
	rt.bindData(opts.Data)
	in := &interp{rt: rt, prog: prog, eng: rt.eng, host: rt.host}
	in.instantiate(rt.root, 1)
	return rt, nil
}

func newRuntime(prog *code.Program, opts Opts) (*Runtime, error) {
	host, container := opts.Host, opts.Container
	if host == nil {
		host = htmlview.New()
	}
	if container == nil {
		h, ok := host.(*htmlview.Host)
		if !ok {
			return nil, errNoContainer
		}
		container = h.Root
	}
	sched, poster := opts.Scheduler, opts.Poster
	var manual *dep.Manual
	if sched == nil {
		manual = &dep.Manual{}
		sched = manual
	} else {
		manual, _ = sched.(*dep.Manual)
	}
	if poster == nil {
		p, ok := sched.(dep.Poster)
		if !ok {
			return nil, errors.New("scheduler cannot post; set Opts.Poster")
		}
		poster = p
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	history := opts.History
	if history == nil {
		history = ctrl.NewMemHistory(cfg.History)
	}

	eng := dep.NewEngine(sched)
	tree := scope.NewTree(eng, host, container)
	return &Runtime{
		prog:    prog,
		eng:     eng,
		host:    host,
		root:    tree.NewRoot(),
		manual:  manual,
		env:     &ctrl.Env{Eng: eng, Poster: poster, Config: cfg, DB: opts.DB, Client: opts.Client},
		history: history,
		models:  make(map[string]*vals.Model),
	}, nil
}

func (rt *Runtime) bindData(data map[string]any) {
	keys := maps.Keys(data)
	slices.Sort(keys)
	for _, k := range keys {
		switch v := data[k].(type) {
		case map[string]any:
			m := vals.NewModelFrom(rt.eng, v)
			rt.register(k, m)
			rt.root.Bind(k, rt.eng.Const(m))
		case *vals.Model:
			rt.register(k, v)
			rt.root.Bind(k, rt.eng.Const(v))
		default:
			rt.root.Bind(k, rt.eng.Const(v))
		}
	}
}

func (rt *Runtime) register(name string, m *vals.Model) {
	if _, ok := rt.models[name]; ok {
		logger.Printf("model %q already registered; keeping the first", name)
		return
	}
	rt.models[name] = m
}

// Engine returns the Engine of the Runtime.
func (rt *Runtime) Engine() *dep.Engine { return rt.eng }

// Root returns the root Scope.
func (rt *Runtime) Root() *scope.Scope { return rt.root }

// Host returns the host tree the program is mounted in.
func (rt *Runtime) Host() view.Host { return rt.host }

// History returns the history routers follow.
func (rt *Runtime) History() ctrl.History { return rt.history }

// Model returns a Model bound from Opts.Data or created by a model
// controller, or nil.
func (rt *Runtime) Model(name string) *vals.Model { return rt.models[name] }

// Models returns the names of all Models, sorted.
func (rt *Runtime) Models() []string {
	names := maps.Keys(rt.models)
	slices.Sort(names)
	return names
}

// Flush runs pending work when the Runtime uses its own Manual scheduler, and
// returns how many tasks ran. It returns 0 for other schedulers.
func (rt *Runtime) Flush() int {
	if rt.manual == nil {
		return 0
	}
	return rt.manual.Flush()
}

// Close destroys the whole scope tree, removing everything from the host and
// closing all controllers.
func (rt *Runtime) Close() { rt.root.Destroy() }
