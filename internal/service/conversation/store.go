package conversation

import (
	"sync"
	"time"
)

// Greeting — первая запись новой сессии.
const Greeting = "Hello! Describe an image you would like me to create."

// Store — потокобезопасная переписка + текущий Lifecycle.
// Записи только добавляются, Lifecycle заменяется целиком.
type Store struct {
	mu        sync.RWMutex
	entries   []Entry
	lifecycle Lifecycle
	nextID    int64
	version   uint64
	closed    bool

	// deliverMu держится на всё время изменения и рассылки,
	// поэтому наблюдатели получают снимки в порядке применения.
	deliverMu sync.Mutex
	observers map[int]func(Snapshot)
	nextObs   int
	notify    chan struct{}

	now func() time.Time
}

// New создаёт хранилище с приветствием greeting. Пустой greeting — без приветствия.
func New(greeting string) *Store {
	s := &Store{
		entries:   make([]Entry, 0, 16),
		lifecycle: Idle(),
		observers: make(map[int]func(Snapshot)),
		notify:    make(chan struct{}, 1),
		now:       time.Now,
	}
	if greeting != "" {
		s.appendLocked(SenderSystem, greeting)
	}
	return s
}

// Batch накапливает изменения, которые применяются одной операцией.
type Batch struct {
	s       *Store
	changed bool
}

// AppendEntry добавляет запись; пустой текст игнорируется.
func (b *Batch) AppendEntry(sender Sender, text string) {
	if text == "" {
		return
	}
	b.s.appendLocked(sender, text)
	b.changed = true
}

// SetLifecycle заменяет Lifecycle целиком.
func (b *Batch) SetLifecycle(next Lifecycle) {
	b.s.lifecycle = next.normalize()
	b.changed = true
}

// Batch применяет fn атомарно: наблюдатели увидят либо состояние до, либо
// после всех изменений. На закрытом хранилище ничего не делает.
// fn не должна обращаться к методам Store.
func (s *Store) Batch(fn func(b *Batch)) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	b := &Batch{s: s}
	fn(b)
	if !b.changed {
		s.mu.Unlock()
		return
	}
	s.version++
	snap := s.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.mu.Unlock()

	for _, obs := range observers {
		obs(snap)
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// AppendEntry добавляет одну запись.
func (s *Store) AppendEntry(sender Sender, text string) {
	s.Batch(func(b *Batch) { b.AppendEntry(sender, text) })
}

// SetLifecycle заменяет Lifecycle.
func (s *Store) SetLifecycle(next Lifecycle) {
	s.Batch(func(b *Batch) { b.SetLifecycle(next) })
}

func (s *Store) appendLocked(sender Sender, text string) {
	s.nextID++
	s.entries = append(s.entries, Entry{
		ID:        s.nextID,
		Sender:    sender,
		Text:      text,
		CreatedAt: s.now(),
	})
}

func (s *Store) snapshotLocked() Snapshot {
	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	return Snapshot{Entries: entries, Lifecycle: s.lifecycle, Version: s.version}
}

// Snapshot возвращает копию текущего состояния.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Entries возвращает копию записей.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	s.mu.RUnlock()
	return entries
}

func (s *Store) Lifecycle() Lifecycle {
	s.mu.RLock()
	l := s.lifecycle
	s.mu.RUnlock()
	return l
}

func (s *Store) Len() int {
	s.mu.RLock()
	l := len(s.entries)
	s.mu.RUnlock()
	return l
}

// Subscribe регистрирует наблюдателя. Вызовы синхронные и идут в порядке
// изменений; наблюдатель не должен менять Store и не должен блокироваться надолго.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// NotifyCh сигналит (с объединением) о каждом изменении.
func (s *Store) NotifyCh() <-chan struct{} { return s.notify }

// Close завершает сессию: дальнейшие изменения игнорируются.
func (s *Store) Close() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	s.closed = true
	clear(s.observers)
	s.mu.Unlock()
}

func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
