package data

import (
	"log"
	"sync"
)

// Типы событий ленты изменений. Значения совпадают с тем, что присылает
// realtime-канал hosted-хранилища.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// ChangeEvent — одно row-level изменение. New заполнено для INSERT/UPDATE,
// Old — для UPDATE/DELETE.
type ChangeEvent struct {
	Table string      `json:"table"`
	Type  string      `json:"type"`
	New   interface{} `json:"new,omitempty"`
	Old   interface{} `json:"old,omitempty"`
}

// ChangeFeed раздает события изменений подписчикам. Публикация не
// блокируется: подписчик с заполненным буфером пропускает событие и
// догоняет состояние периодическим полным обновлением.
type ChangeFeed struct {
	mu          sync.Mutex
	subscribers map[int64]chan ChangeEvent
	nextID      int64
	closed      bool
}

// NewChangeFeed создает пустую ленту изменений.
func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subscribers: make(map[int64]chan ChangeEvent)}
}

// Subscribe регистрирует нового подписчика и возвращает его ID и канал.
// Канал буферизован; ID нужен для последующего Unsubscribe.
func (f *ChangeFeed) Subscribe() (int64, <-chan ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ch := make(chan ChangeEvent, 64)
	if f.closed {
		close(ch)
		return f.nextID, ch
	}
	f.subscribers[f.nextID] = ch
	return f.nextID, ch
}

// Unsubscribe удаляет подписчика и закрывает его канал.
func (f *ChangeFeed) Unsubscribe(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subscribers[id]; ok {
		delete(f.subscribers, id)
		close(ch)
	}
}

// Publish рассылает событие всем подписчикам.
func (f *ChangeFeed) Publish(ev ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for id, ch := range f.subscribers {
		select {
		case ch <- ev:
		default:
			// Подписчик не успевает читать; событие пропускается.
			log.Printf("ChangeFeed: подписчик %d отстал, событие %s/%s пропущено", id, ev.Table, ev.Type)
		}
	}
}

// CloseAll закрывает все каналы подписчиков. После вызова Publish — no-op.
func (f *ChangeFeed) CloseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subscribers {
		delete(f.subscribers, id)
		close(ch)
	}
}
