package api

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrorHandler receives every APIError produced by any Client in the process.
// It runs synchronously on the failing call's goroutine and receives a copy.
type ErrorHandler func(*APIError)

// The global handler is a single process-wide slot. Whoever sets it must
// remove it again (the returned teardown or RemoveGlobalErrorHandler).
var (
	globalMu         sync.RWMutex
	globalHandler    ErrorHandler
	globalGeneration uint64
)

// SetGlobalErrorHandler installs h, replacing any previous handler.
// The returned func removes h, but only while h is still the installed handler.
func SetGlobalErrorHandler(h ErrorHandler) (remove func()) {
	globalMu.Lock()
	globalGeneration++
	gen := globalGeneration
	globalHandler = h
	globalMu.Unlock()

	return func() {
		globalMu.Lock()
		defer globalMu.Unlock()
		if globalGeneration == gen {
			globalHandler = nil
		}
	}
}

// RemoveGlobalErrorHandler clears the slot unconditionally
func RemoveGlobalErrorHandler() {
	globalMu.Lock()
	defer globalMu.Unlock()

	globalGeneration++
	globalHandler = nil
}

func currentErrorHandler() ErrorHandler {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalHandler
}

// invokeErrorHandler calls the handler outside the lock and contains its panics
func invokeErrorHandler(apiErr *APIError, log *logrus.Logger) {
	h := currentErrorHandler()
	if h == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("global error handler panicked")
		}
	}()
	h(apiErr.clone())
}

// UnauthorizedListener is notified when the backend rejects the stored credential
type UnauthorizedListener interface {
	SessionInvalidated()
}

// UnauthorizedFunc adapts a plain function to UnauthorizedListener
type UnauthorizedFunc func()

func (f UnauthorizedFunc) SessionInvalidated() { f() }
