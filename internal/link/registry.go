package link

import (
	"sync"

	"chartlink/internal/pane"
)

// Registry 是面板成员表：id → Handle。成员可以在任意时刻热插拔，
// 包括在一次传播过程的通知回调内部。
type Registry struct {
	mu    sync.RWMutex
	panes map[string]*pane.Handle
}

func NewRegistry() *Registry {
	return &Registry{panes: make(map[string]*pane.Handle)}
}

// Put 添加或替换一个面板。同 id 重复注册时直接覆盖
//（数据集整体更换后宿主应用用它刷新 TimeIndex 引用）。
func (r *Registry) Put(h *pane.Handle) {
	if h == nil || h.ID() == "" {
		return
	}
	r.mu.Lock()
	r.panes[h.ID()] = h
	r.mu.Unlock()
}

// Remove 删除成员。对未注册的 id 调用是空操作。
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.panes, id)
	r.mu.Unlock()
}

// Get 返回指定面板。
func (r *Registry) Get(id string) (*pane.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.panes[id]
	return h, ok
}

// Snapshot 返回当前成员的一份快照，供传播迭代使用；
// 迭代期间的增删不会影响快照本身。
func (r *Registry) Snapshot() []*pane.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*pane.Handle, 0, len(r.panes))
	for _, h := range r.panes {
		out = append(out, h)
	}
	return out
}

// Len 返回成员数量。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.panes)
}
