package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/lumen/engine/core"
)

// Watcher reloads the configuration file whenever it is written.
type Watcher struct {
	path    string
	fs      *fsnotify.Watcher
	reloads chan *Config
	done    chan struct{}
}

// Watch starts watching path. Every successful reload is delivered on
// Reloads(); a newer reload replaces one that was not consumed yet.
// Editors often replace the file, so the parent directory is watched.
func Watch(path string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fs.Close()
		return nil, err
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, err
	}
	w := &Watcher{
		path:    abs,
		fs:      fs,
		reloads: make(chan *Config, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) Reloads() <-chan *Config {
	return w.reloads
}

func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	return w.fs.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				core.LogWarn("ignoring config reload: %s", err)
				continue
			}
			w.publish(cfg)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) publish(cfg *Config) {
	select {
	case <-w.reloads:
	default:
	}
	select {
	case w.reloads <- cfg:
	case <-w.done:
	}
}

// ApplyLive copies the values that may change while running from next into c.
func (c *Config) ApplyLive(next *Config) {
	c.Ssao = next.Ssao
	c.Log = next.Log
	c.Renderer.ShowDebugQuads = next.Renderer.ShowDebugQuads
	c.Camera.MoveSpeed = next.Camera.MoveSpeed
	c.Camera.MouseSensitivity = next.Camera.MouseSensitivity
}
