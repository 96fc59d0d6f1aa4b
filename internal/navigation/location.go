package navigation

import "sync"

// Location tracks where the operator currently is in the console.
type Location struct {
	mu   sync.RWMutex
	path string
}

// NewLocation starts at the login screen.
func NewLocation() *Location {
	return &Location{path: LoginPath}
}

// Go moves to path.
func (l *Location) Go(path string) {
	l.mu.Lock()
	l.path = path
	l.mu.Unlock()
}

// RedirectToLogin forces the operator back to the login screen.
func (l *Location) RedirectToLogin() {
	l.Go(LoginPath)
}

// Path returns the current location.
func (l *Location) Path() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.path
}

// AtLogin reports whether the operator is on the login screen.
func (l *Location) AtLogin() bool {
	return l.Path() == LoginPath
}
