// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import "sync"

// feed sequences committed change sets and fans them out. Hooks run
// synchronously inside the mutation; channel subscribers are best-effort
// and get dropped records when their buffer is full.
type feed struct {
	mu     sync.Mutex
	seq    uint64
	nextID uint64
	subs   map[uint64]chan *ChangeSet
	hooks  []func(*ChangeSet)
}

func newFeed() *feed {
	return &feed{subs: make(map[uint64]chan *ChangeSet)}
}

func (f *feed) publish(cs *ChangeSet) {
	f.mu.Lock()
	f.seq++
	cs.Seq = f.seq
	hooks := f.hooks
	subs := make([]chan *ChangeSet, 0, len(f.subs))
	for _, ch := range f.subs {
		subs = append(subs, ch)
	}
	f.mu.Unlock()

	for _, hook := range hooks {
		hook(cs)
	}
	for _, ch := range subs {
		select {
		case ch <- cs:
		default:
			logger.Warn("change feed subscriber too slow, dropping record", "seq", cs.Seq, "op", cs.Op)
		}
	}
}

func (f *feed) subscribe(buffer int) (<-chan *ChangeSet, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan *ChangeSet, buffer)

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *feed) onChange(fn func(*ChangeSet)) {
	f.mu.Lock()
	f.hooks = append(f.hooks, fn)
	f.mu.Unlock()
}
