// Package logutil provides logging utilities.
//
// Loggers are plain *log.Logger values. By default every line they write is
// forwarded to glog at Info level; SetOutput redirects all of them at once.
package logutil

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/golang/glog"
)

var (
	mu      sync.Mutex
	out     io.Writer = glogWriter{}
	loggers []*log.Logger
)

// GetLogger gets a logger with the given prefix.
func GetLogger(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	logger := log.New(out, prefix, log.Lshortfile)
	loggers = append(loggers, logger)
	return logger
}

// SetOutput redirects the output of all loggers obtained with GetLogger to
// the new io.Writer. A nil writer restores the glog backend.
func SetOutput(newout io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if newout == nil {
		newout = glogWriter{}
	}
	out = newout
	for _, logger := range loggers {
		logger.SetOutput(out)
	}
}

// SetOutputFile redirects the output of all loggers obtained with GetLogger
// to the named file. If the file name is empty, it restores the glog
// backend.
func SetOutputFile(fname string) error {
	if fname == "" {
		SetOutput(nil)
		return nil
	}
	file, err := os.OpenFile(fname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	SetOutput(file)
	return nil
}

type glogWriter struct{}

func (glogWriter) Write(p []byte) (int, error) {
	// Skip Write, (*log.Logger).output and (*log.Logger).Printf.
	glog.InfoDepth(3, strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
