package state

import (
	"sync"
	"time"

	"wisefido-wearable/internal/models"
)

// entry 单设备状态及其锁
type entry struct {
	mu      sync.Mutex
	state   *models.DeviceState
	evicted bool
}

// Registry 设备状态注册表（进程内）
//
// 同一设备的所有更新（读数评估、佩戴扫描）在该设备的锁内串行执行，
// 不同设备之间互不阻塞。回调函数内不要做网络 IO。
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*entry
}

// NewRegistry 创建状态注册表
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*entry),
	}
}

// WithDevice 在设备锁内执行 fn，设备首次出现时以 now 创建状态
// 返回 fn 执行时的状态是否为新建
func (r *Registry) WithDevice(deviceID string, now time.Time, fn func(s *models.DeviceState)) bool {
	for {
		e, created := r.getOrCreate(deviceID, now)

		e.mu.Lock()
		if e.evicted {
			// 在拿锁期间被回收，重新获取
			e.mu.Unlock()
			continue
		}
		fn(e.state)
		e.mu.Unlock()
		return created
	}
}

// ForEach 依次在每个设备的锁内执行 fn
// 遍历的是调用时的快照，期间新加入的设备本轮不可见
func (r *Registry) ForEach(fn func(s *models.DeviceState)) {
	for _, e := range r.snapshot() {
		e.mu.Lock()
		if !e.evicted {
			fn(e.state)
		}
		e.mu.Unlock()
	}
}

// EvictIf 在设备锁内判断并回收，返回被回收的设备 ID
func (r *Registry) EvictIf(pred func(s *models.DeviceState) bool) []string {
	var evicted []string
	for _, e := range r.snapshot() {
		e.mu.Lock()
		if !e.evicted && pred(e.state) {
			e.evicted = true
			evicted = append(evicted, e.state.DeviceID)
		}
		e.mu.Unlock()
	}

	if len(evicted) == 0 {
		return nil
	}

	r.mu.Lock()
	for _, id := range evicted {
		if cur, ok := r.devices[id]; ok && cur.evicted {
			delete(r.devices, id)
		}
	}
	r.mu.Unlock()

	return evicted
}

// Get 返回设备状态的副本
func (r *Registry) Get(deviceID string) (models.DeviceState, bool) {
	r.mu.RLock()
	e, ok := r.devices[deviceID]
	r.mu.RUnlock()
	if !ok {
		return models.DeviceState{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return models.DeviceState{}, false
	}
	return *e.state, true
}

// Len 当前跟踪的设备数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

func (r *Registry) getOrCreate(deviceID string, now time.Time) (*entry, bool) {
	r.mu.RLock()
	e, ok := r.devices[deviceID]
	r.mu.RUnlock()
	if ok {
		return e, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.devices[deviceID]; ok {
		return e, false
	}
	e = &entry{state: models.NewDeviceState(deviceID, now)}
	r.devices[deviceID] = e
	return e, true
}

func (r *Registry) snapshot() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, 0, len(r.devices))
	for _, e := range r.devices {
		out = append(out, e)
	}
	return out
}
