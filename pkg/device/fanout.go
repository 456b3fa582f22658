package device

import (
	"errors"
	"sync"
)

// blockFanout cuts a continuous sample stream into fixed-size blocks for each
// subscriber. Delivery runs on a goroutine per subscriber so the capture
// callback never blocks, and blocks are never dropped.
type blockFanout struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	blockSize int
	fn        func([]float32)

	mu      sync.Mutex
	partial []float32
	queue   [][]float32
	wake    chan struct{}
	done    chan struct{}
	stop    sync.Once
}

func newBlockFanout() *blockFanout {
	return &blockFanout{subs: make(map[*subscriber]struct{})}
}

// Attach subscribes fn to blocks of blockSize samples.
func (f *blockFanout) Attach(blockSize int, fn func([]float32)) (func(), error) {
	if blockSize <= 0 {
		return nil, errors.New("block size must be positive")
	}
	if fn == nil {
		return nil, errors.New("nil block callback")
	}
	s := &subscriber{
		blockSize: blockSize,
		fn:        fn,
		partial:   make([]float32, 0, blockSize),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	f.mu.Lock()
	f.subs[s] = struct{}{}
	f.mu.Unlock()
	go s.run()

	return func() {
		f.mu.Lock()
		delete(f.subs, s)
		f.mu.Unlock()
		s.stop.Do(func() { close(s.done) })
	}, nil
}

// Write feeds captured samples to every subscriber.
func (f *blockFanout) Write(samples []float32) {
	f.mu.Lock()
	subs := make([]*subscriber, 0, len(f.subs))
	for s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()
	for _, s := range subs {
		s.push(samples)
	}
}

// Subscribers returns the number of attached consumers.
func (f *blockFanout) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (s *subscriber) push(samples []float32) {
	s.mu.Lock()
	ready := false
	for len(samples) > 0 {
		n := min(s.blockSize-len(s.partial), len(samples))
		s.partial = append(s.partial, samples[:n]...)
		samples = samples[n:]
		if len(s.partial) == s.blockSize {
			s.queue = append(s.queue, s.partial)
			s.partial = make([]float32, 0, s.blockSize)
			ready = true
		}
	}
	s.mu.Unlock()
	if ready {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			block := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.fn(block)
		}
	}
}
