// Package metascript lets users rewrite playlist entry metadata with a small
// JavaScript file before output names are rendered.
//
// The script must define a global function `rewrite(item)`. item has the
// fields id, title, url and index. The function returns either a string (the
// new title), an object { title?: string, id?: string }, or null/undefined to
// keep the entry unchanged. console.log writes to the script log component.
package metascript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/ytget/ytmp3/errs"
	"github.com/ytget/ytmp3/internal/logger"
	"github.com/ytget/ytmp3/types"
)

// DefaultTimeout bounds a single rewrite call.
const DefaultTimeout = 2 * time.Second

const entryPoint = "rewrite"

// Script is a compiled metadata script. It is safe for concurrent use.
type Script struct {
	name    string
	timeout time.Duration
	log     *logger.ComponentLogger

	mu sync.Mutex
	vm *goja.Runtime
	fn goja.Callable
}

// Load reads and compiles the script at path.
func Load(path string, l *logger.Logger) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Compile(path, string(src), l)
}

// Compile evaluates src and looks up its rewrite function. name is used in
// JavaScript stack traces.
func Compile(name, src string, l *logger.Logger) (*Script, error) {
	if l == nil {
		l = logger.Nop()
	}
	s := &Script{
		name:    name,
		timeout: DefaultTimeout,
		log:     l.WithComponent(logger.ComponentScript),
		vm:      goja.New(),
	}

	_ = s.vm.Set("console", map[string]any{
		"log": func(args ...any) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = fmt.Sprint(a)
			}
			s.log.Info(strings.Join(parts, " "), map[string]interface{}{"script": name})
		},
	})

	if _, err := s.vm.RunScript(name, src); err != nil {
		return nil, fmt.Errorf("run script: %w", err)
	}
	fn, ok := goja.AssertFunction(s.vm.Get(entryPoint))
	if !ok {
		return nil, fmt.Errorf("%s function not found in script", entryPoint)
	}
	s.fn = fn
	return s, nil
}

// WithTimeout changes the per-call time limit. Zero disables it.
func (s *Script) WithTimeout(d time.Duration) *Script {
	s.timeout = d
	return s
}

// Rewrite applies the script to item. Index and URL are never changed.
func (s *Script) Rewrite(ctx context.Context, item types.MediaItem) (types.MediaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stop := s.watch(ctx)
	arg := s.vm.ToValue(map[string]any{
		"id":    item.ID,
		"title": item.Title,
		"url":   item.URL,
		"index": item.Index,
	})
	res, err := s.fn(goja.Undefined(), arg)
	stop()
	s.vm.ClearInterrupt()
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if ctx.Err() != nil {
				return item, ctx.Err()
			}
			return item, fmt.Errorf("%s timed out after %s", entryPoint, s.timeout)
		}
		return item, fmt.Errorf("%s error: %w", entryPoint, err)
	}

	if goja.IsUndefined(res) || goja.IsNull(res) {
		return item, nil
	}
	out := item
	if str, ok := res.Export().(string); ok {
		out.Title = str
	} else {
		obj := res.ToObject(s.vm)
		if v := obj.Get("title"); present(v) {
			out.Title = v.String()
		}
		if v := obj.Get("id"); present(v) {
			out.ID = v.String()
		}
	}

	out.Title = strings.TrimSpace(out.Title)
	if out.Title == "" {
		return item, errs.ErrEmptyTitle
	}
	if out != item {
		s.log.Debug("Rewrote entry", map[string]interface{}{
			"index": item.Index,
			"from":  item.Title,
			"to":    out.Title,
		})
	}
	return out, nil
}

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

// watch interrupts the runtime when ctx is done or the timeout passes. The
// returned stop function waits for the watcher to exit, so no interrupt can
// arrive after it returns.
func (s *Script) watch(ctx context.Context) func() {
	done := make(chan struct{})
	exited := make(chan struct{})
	var timer <-chan time.Time
	var t *time.Timer
	if s.timeout > 0 {
		t = time.NewTimer(s.timeout)
		timer = t.C
	}
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			s.vm.Interrupt("context done")
		case <-timer:
			s.vm.Interrupt("timeout")
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
		if t != nil {
			t.Stop()
		}
	}
}
