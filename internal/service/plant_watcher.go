package service

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultWatcherTick = 5 * time.Second

// plantSubscription 表示一个订阅者及其推送通道
type plantSubscription struct {
	userID uint
	ch     chan []PlantView
}

// PlantWatcher 向订阅者周期推送其植物的实时健康快照
// 首个订阅者到来时启动定时器，最后一个离开时停止，空闲零开销
type PlantWatcher struct {
	plants *PlantService
	logger *zap.Logger
	tick   time.Duration

	mu     sync.Mutex
	subs   map[*plantSubscription]struct{}
	cancel chan struct{}
	done   chan struct{} // 定时循环退出时关闭
}

// NewPlantWatcher 构造 PlantWatcher
func NewPlantWatcher(plants *PlantService, logger *zap.Logger, tick time.Duration) *PlantWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tick <= 0 {
		tick = defaultWatcherTick
	}
	return &PlantWatcher{
		plants: plants,
		logger: logger,
		tick:   tick,
		subs:   make(map[*plantSubscription]struct{}),
	}
}

// Subscribe 订阅某用户的植物快照流，返回接收通道与取消函数
// 订阅建立后会立即收到一帧当前快照；取消后通道关闭
// 订阅者消费过慢时跳过该帧，不阻塞其他订阅者
func (w *PlantWatcher) Subscribe(userID uint) (<-chan []PlantView, func()) {
	sub := &plantSubscription{
		userID: userID,
		ch:     make(chan []PlantView, 1),
	}

	w.mu.Lock()
	w.subs[sub] = struct{}{}
	if len(w.subs) == 1 {
		w.cancel = make(chan struct{})
		w.done = make(chan struct{})
		go w.loop(w.cancel, w.done)
	}
	w.mu.Unlock()

	w.push(sub)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, sub)
			if len(w.subs) == 0 && w.cancel != nil {
				close(w.cancel)
				w.cancel = nil
			}
			w.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// SubscriberCount 返回当前订阅者数量
func (w *PlantWatcher) SubscriberCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

func (w *PlantWatcher) loop(cancel, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			w.broadcast()
		}
	}
}

func (w *PlantWatcher) broadcast() {
	w.mu.Lock()
	subs := make([]*plantSubscription, 0, len(w.subs))
	for sub := range w.subs {
		subs = append(subs, sub)
	}
	w.mu.Unlock()

	for _, sub := range subs {
		w.push(sub)
	}
}

func (w *PlantWatcher) push(sub *plantSubscription) {
	views, err := w.plants.List(sub.userID)
	if err != nil {
		w.logger.Warn("plant watcher: list plants",
			zap.Uint("user_id", sub.userID), zap.Error(err))
		return
	}

	w.mu.Lock()
	_, active := w.subs[sub]
	if active {
		select {
		case sub.ch <- views:
		default:
		}
	}
	w.mu.Unlock()
}
