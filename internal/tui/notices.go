package tui

import (
	"sync"

	"github.com/jasperwreed/guidera-chat/internal/chat"
)

// NoticeQueue collects notices raised from cycle goroutines until the
// program drains them on its own goroutine.
type NoticeQueue struct {
	mu    sync.Mutex
	items []chat.Notice
}

func NewNoticeQueue() *NoticeQueue {
	return &NoticeQueue{}
}

func (q *NoticeQueue) Notify(n chat.Notice) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()
}

func (q *NoticeQueue) drain() []chat.Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
