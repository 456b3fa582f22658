package live

import (
	"sync"
	"time"
)

// Clock abstracts wall time and periodic timers.
type Clock interface {
	Now() time.Time
	// Every calls fn once per period until stop is called. stop does not wait
	// for an in-flight call.
	Every(period time.Duration, fn func()) (stop func())
}

type systemClock struct{}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Every(period time.Duration, fn func()) func() {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
