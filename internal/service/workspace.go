package service

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
)

// Workspace owns every screen and keeps at most one of them open.
type Workspace struct {
	root   context.Context
	logger *zap.Logger

	mu      sync.Mutex
	screens map[string]Screen
	active  string
}

// NewWorkspace registers screens. Screens opened later live under root.
func NewWorkspace(root context.Context, logger *zap.Logger, screens ...Screen) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Workspace{root: root, logger: logger, screens: make(map[string]Screen, len(screens))}
	for _, s := range screens {
		w.screens[s.Key()] = s
	}
	return w
}

// Keys returns the registered screen keys sorted.
func (w *Workspace) Keys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := make([]string, 0, len(w.screens))
	for k := range w.screens {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns a registered screen whether or not it is open.
func (w *Workspace) Lookup(key string) (Screen, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.screens[key]
	if !ok {
		return nil, appErrors.ErrUnknownScreen
	}
	return s, nil
}

// Open closes the current screen and opens key. Opening the screen that is
// already open leaves it as it is.
func (w *Workspace) Open(key string) (Screen, error) {
	w.mu.Lock()
	s, ok := w.screens[key]
	if !ok {
		w.mu.Unlock()
		return nil, appErrors.ErrUnknownScreen
	}
	if w.active == key && s.Mounted() {
		w.mu.Unlock()
		return s, nil
	}
	prev := w.screens[w.active]
	w.active = key
	w.mu.Unlock()

	if prev != nil && prev != s {
		prev.Unmount()
		w.logger.Debug("screen closed", zap.String("screen", prev.Key()))
	}
	err := s.Mount(w.root)
	w.logger.Debug("screen opened", zap.String("screen", key))
	return s, err
}

// Active returns the open screen.
func (w *Workspace) Active(key string) (Screen, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.screens[key]
	if !ok {
		return nil, appErrors.ErrUnknownScreen
	}
	if w.active != key || !s.Mounted() {
		return nil, appErrors.ErrNotMounted
	}
	return s, nil
}

// CloseAll unmounts every screen. It runs when the session ends.
func (w *Workspace) CloseAll() {
	w.mu.Lock()
	screens := make([]Screen, 0, len(w.screens))
	for _, s := range w.screens {
		screens = append(screens, s)
	}
	w.active = ""
	w.mu.Unlock()

	for _, s := range screens {
		s.Unmount()
	}
}
