// Package ctrl implements the built-in controllers: remote stores,
// authentication and routing.
//
// A controller is a record of field Deps, like a vals.Model, that is fed from
// outside the dependency graph. Controllers belong to the goroutine that owns
// their Engine; network work runs on other goroutines and hands its results
// back through the Env's Poster.
package ctrl

import (
	"net/http"
	"time"

	"src.manglr.sh/pkg/config"
	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/logutil"
	"src.manglr.sh/pkg/store/storedefs"
)

var logger = logutil.GetLogger("[ctrl] ")

// Env is what controllers share with the runtime that creates them.
type Env struct {
	Eng    *dep.Engine
	Poster dep.Poster
	// Defaults to config.Default().
	Config *config.Config
	// Persistent storage. May be nil.
	DB storedefs.Store
	// Defaults to http.DefaultClient.
	Client *http.Client
	// Defaults to time.Now.
	Now func() time.Time
}

func (env *Env) config() *config.Config {
	if env.Config == nil {
		return config.Default()
	}
	return env.Config
}

func (env *Env) client() *http.Client {
	if env.Client == nil {
		return http.DefaultClient
	}
	return env.Client
}

func (env *Env) now() time.Time {
	if env.Now == nil {
		return time.Now()
	}
	return env.Now()
}

// Runs fn on the goroutine that owns the Engine.
func (env *Env) post(fn func()) { env.Poster.Post(fn) }
