// Package ratelimit — скользящее окно допуска запросов на устройство.
// Счётчик best-effort, в пределах одного процесса; за интерфейсом,
// чтобы при горизонтальном масштабировании подставить общий стор.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter — допуск запроса по стабильному ключу устройства.
type Limiter interface {
	// Admit: true — пропустить, false — отбить (429).
	// Отбитый запрос в окно не записывается.
	Admit(key string) bool
}

// SlidingWindow хранит на каждый ключ таймстемпы запросов в хвостовом окне.
// Старые отметки вычищаются лениво при каждом Admit.
type SlidingWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	buckets map[string][]time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingWindow{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string][]time.Time),
	}
}

// Мьютекс сериализует решение по ключу: два конкурентных запроса не могут
// оба увидеть count < limit и оба пройти.
func (s *SlidingWindow) Admit(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cut := now.Add(-s.window)

	b := s.buckets[key]
	kept := b[:0]
	for _, t := range b {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= s.limit {
		s.buckets[key] = kept
		return false
	}
	s.buckets[key] = append(kept, now)
	return true
}
