package eventbus

import (
	"fmt"
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// Logger is the logging contract of the bus.
type Logger interface {
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// AsyncEventBus 异步事件总线
type AsyncEventBus struct {
	bus       evbus.Bus
	workerNum int
	workChan  chan asyncEvent
	stopChan  chan struct{}
	workers   sync.WaitGroup
	pending   sync.WaitGroup
	mu        sync.RWMutex
	stopped   bool
	started   bool
	logger    Logger
}

type asyncEvent struct {
	topic string
	args  []interface{}
}

// NewAsyncEventBus 创建异步事件总线
func NewAsyncEventBus(workerNum, queueSize int, logger Logger) *AsyncEventBus {
	if workerNum <= 0 {
		workerNum = 4
	}
	if queueSize <= 0 {
		queueSize = 1000
	}

	return &AsyncEventBus{
		bus:       evbus.New(),
		workerNum: workerNum,
		workChan:  make(chan asyncEvent, queueSize),
		stopChan:  make(chan struct{}),
		logger:    logger,
	}
}

// Start 启动异步处理
func (aeb *AsyncEventBus) Start() {
	aeb.mu.Lock()
	defer aeb.mu.Unlock()
	if aeb.started || aeb.stopped {
		return
	}
	aeb.started = true
	for i := 0; i < aeb.workerNum; i++ {
		aeb.workers.Add(1)
		go aeb.worker()
	}
}

// Stop 停止异步处理。已入队的事件会先处理完。
func (aeb *AsyncEventBus) Stop() {
	aeb.mu.Lock()
	if aeb.stopped {
		aeb.mu.Unlock()
		return
	}
	aeb.stopped = true
	started := aeb.started
	aeb.mu.Unlock()

	close(aeb.stopChan)
	if started {
		aeb.workers.Wait()
	}
	// 未启动时直接丢弃队列
	for {
		select {
		case <-aeb.workChan:
			aeb.pending.Done()
		default:
			return
		}
	}
}

// worker 异步工作协程
func (aeb *AsyncEventBus) worker() {
	defer aeb.workers.Done()

	for {
		select {
		case event := <-aeb.workChan:
			aeb.dispatch(event)
		case <-aeb.stopChan:
			for {
				select {
				case event := <-aeb.workChan:
					aeb.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (aeb *AsyncEventBus) dispatch(event asyncEvent) {
	defer aeb.pending.Done()
	defer func() {
		// 处理panic，避免worker崩溃
		if r := recover(); r != nil && aeb.logger != nil {
			aeb.logger.Error("[事件] 处理 %s 时发生 panic: %v", event.topic, r)
		}
	}()
	aeb.bus.Publish(event.topic, event.args...)
}

// Publish 发布事件（同步）
func (aeb *AsyncEventBus) Publish(topic string, args ...interface{}) {
	aeb.bus.Publish(topic, args...)
}

// PublishAsync 异步发布事件，队列满或总线已停止时丢弃并返回 false
func (aeb *AsyncEventBus) PublishAsync(topic string, args ...interface{}) bool {
	aeb.mu.RLock()
	defer aeb.mu.RUnlock()
	if aeb.stopped {
		return false
	}

	aeb.pending.Add(1)
	select {
	case aeb.workChan <- asyncEvent{topic: topic, args: args}:
		return true
	default:
		aeb.pending.Done()
		if aeb.logger != nil {
			aeb.logger.Warn("[事件] 队列已满，丢弃事件 %s", topic)
		}
		return false
	}
}

// Subscribe 订阅事件，fn 的参数须与发布时的参数类型一致
func (aeb *AsyncEventBus) Subscribe(topic string, fn interface{}) error {
	if err := aeb.bus.Subscribe(topic, fn); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Unsubscribe 取消订阅
func (aeb *AsyncEventBus) Unsubscribe(topic string, handler interface{}) error {
	return aeb.bus.Unsubscribe(topic, handler)
}

// HasCallback 检查是否有订阅者
func (aeb *AsyncEventBus) HasCallback(topic string) bool {
	return aeb.bus.HasCallback(topic)
}

// WaitAsync 等待已入队的异步事件处理完成
func (aeb *AsyncEventBus) WaitAsync() {
	aeb.pending.Wait()
}
