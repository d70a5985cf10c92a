package render

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/eval"
)

// Mounts on an event loop and renders again each time the data file is
// written, until ctx is done. Rendering also follows each reload, after the
// updates have propagated.
func (s *session) watch(ctx context.Context, dataFile string, data map[string]any) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Editors often replace files instead of writing them, which a watch on
	// the file itself would miss.
	dataFile = filepath.Clean(dataFile)
	if err := watcher.Add(filepath.Dir(dataFile)); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loop := dep.NewLoop()
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	var rt *eval.Runtime
	var runErr error
	fail := func(err error) {
		runErr = err
		cancel()
	}
	loop.Post(func() {
		var err error
		rt, err = eval.Mount(s.prog, s.opts(data, loop))
		if err != nil {
			fail(err)
			return
		}
		if err := s.render(rt); err != nil {
			fail(err)
		}
	})

	for {
		select {
		case <-ctx.Done():
			<-loopDone
			if rt != nil {
				rt.Close()
			}
			return runErr
		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if filepath.Clean(ev.Name) != dataFile || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			data, err := loadData(dataFile)
			if err != nil {
				// Often a partial write; the next event brings the rest.
				logger.Printf("reloading %s: %v", dataFile, err)
				continue
			}
			logger.Printf("reloading %s", dataFile)
			loop.Post(func() {
				if rt == nil {
					return
				}
				reload(rt, data)
				loop.Post(func() {
					if err := s.render(rt); err != nil {
						fail(err)
					}
				})
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			logger.Printf("watching %s: %v", dataFile, err)
		}
	}
}
