// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gudtech/dbr/internal/log"
)

// Watcher reloads the instance catalog at path whenever it changes on
// disk and hands the freshly built Config to onReload. Refresh is always
// a full decode-validate cycle (nothing is dialed here; that is left to
// onReload), matching the full-replace contract
// of catalog.Live: a half-written file never produces a half-applied
// Config, since Decode either returns a complete Config or an error that
// leaves the previous one in place.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onReload func(*Config)
	logger   log.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Watch starts watching path and returns a Watcher whose Close stops it.
// onReload is called from the watcher's own goroutine; it must not block
// for long.
func Watch(path string, logger log.Logger, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{path: path, watcher: fw, onReload: onReload, logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.start(ctx)
	return w, nil
}

func (w *Watcher) start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		var lastEvent time.Time
		const debounce = 100 * time.Millisecond

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if now := time.Now(); now.Sub(lastEvent) < debounce {
					continue
				} else {
					lastEvent = now
				}
				w.reload(ctx)

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.ErrorContext(ctx, "instance catalog watch error", "error", err)

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *Watcher) reload(ctx context.Context) {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.ErrorContext(ctx, "instance catalog reload failed, keeping previous catalog", "path", w.path, "error", err)
		return
	}
	w.logger.InfoContext(ctx, "instance catalog reloaded", "path", w.path, "instances", len(cfg.Instances))
	w.onReload(cfg)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.cancel()
	w.wg.Wait()
	return w.watcher.Close()
}
