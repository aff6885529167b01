package safe

import (
	"ChatRelay/logger"
)

// SafeGo starts a new goroutine that recovers from panic,
// so that panics don't crash the entire program.
func SafeGo(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[SafeGo] panic recovered: %v", r)
			}
		}()
		f()
	}()
}

// SafeRun runs f in the current goroutine with the same panic guard.
func SafeRun(f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[SafeRun] panic recovered: %v", r)
		}
	}()
	f()
}
