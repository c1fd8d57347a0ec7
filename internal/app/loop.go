package app

import (
	"sync"

	"fyne.io/fyne/v2"
)

// eventLoop owns the thread the display runs on.
type eventLoop interface {
	// Start runs the loop, calling onStarted once it is up, and returns
	// when the loop ends.
	Start(onStarted func())
	Quit()
}

type fyneLoop struct {
	app fyne.App

	mu      sync.Mutex
	stopped bool
}

func (l *fyneLoop) Start(onStarted func()) {
	l.app.Lifecycle().SetOnStarted(onStarted)
	l.app.Run()

	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
}

// Quit is safe from any goroutine and does nothing once the loop ended.
func (l *fyneLoop) Quit() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return
	}
	fyne.Do(l.app.Quit)
}
