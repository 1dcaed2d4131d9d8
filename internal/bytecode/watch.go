package bytecode

import (
	"encoding/gob"
	"fmt"
	"log"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-verifies and hot-swaps a bytecode Unit whenever its
// backing file changes on disk, for a host embedding this runtime as a
// live-reloadable script engine.
type Watcher struct {
	path     string
	logger   *log.Logger
	onReload func(*Unit)
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// WatchUnit loads path once, invoking onReload synchronously with the
// initial contents, then watches path for further writes and invokes
// onReload again after each one that verifies successfully. A write
// that fails to decode or verify is logged and otherwise ignored,
// leaving the previously loaded Unit live.
func WatchUnit(path string, logger *log.Logger, onReload func(*Unit)) (*Watcher, error) {
	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{path: path, logger: logger, onReload: onReload, done: make(chan struct{})}

	unit, err := LoadUnitFile(path)
	if err != nil {
		return nil, fmt.Errorf("bytecode: initial load of %s: %w", path, err)
	}
	onReload(unit)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("bytecode: creating file watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("bytecode: watching %s: %w", path, err)
	}
	w.watcher = fw

	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			unit, err := LoadUnitFile(w.path)
			if err != nil {
				w.logger.Printf("bytecode: reload of %s failed, keeping previous unit: %v", w.path, err)
				continue
			}
			w.onReload(unit)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("bytecode: watch error on %s: %v", w.path, err)
		case <-w.done:
			return
		}
	}
}

// Close stops watching and releases the underlying OS resources.
func (w *Watcher) Close() error {
	close(w.done)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// unitEnvelope is the gob-serializable shape of a Unit's unverified
// procedures, used only for the on-disk hot-reload format above.
type unitEnvelope struct {
	Filepath              string
	InstructionSetVersion string
	Procedures            []Procedure
}

// SaveUnitFile writes unit to path in the Watcher's gob-based format.
func SaveUnitFile(path string, unit *Unit) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	env := unitEnvelope{Filepath: unit.Filepath, InstructionSetVersion: unit.InstructionSetVersion}
	for _, v := range unit.Procedures {
		env.Procedures = append(env.Procedures, *v.Procedure())
	}

	return gob.NewEncoder(f).Encode(env)
}

// LoadUnitFile reads a Unit previously written by SaveUnitFile,
// re-running every procedure through Verify.
func LoadUnitFile(path string) (*Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var env unitEnvelope
	if err := gob.NewDecoder(f).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding unit: %w", err)
	}

	if err := CheckCompatible(env.InstructionSetVersion, CurrentInstructionSetVersion); err != nil {
		return nil, err
	}

	unit := &Unit{Filepath: env.Filepath, InstructionSetVersion: env.InstructionSetVersion}
	for i, p := range env.Procedures {
		v, err := Verify(p)
		if err != nil {
			return nil, fmt.Errorf("verifying procedure %d: %w", i, err)
		}
		unit.Procedures = append(unit.Procedures, v)
	}

	return unit, nil
}
