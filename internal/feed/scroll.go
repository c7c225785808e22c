package feed

import "sync"

// ScrollSource pushes scroll-depth percentages to subscribers.
type ScrollSource interface {
	Subscribe(fn func(percent float64)) (unsubscribe func())
}

type scrollSubscriber struct {
	id int
	fn func(float64)
}

// ScrollMonitor turns viewport positions into a scroll-depth percentage and
// pushes every update to its subscribers, synchronously and in subscription
// order.
type ScrollMonitor struct {
	mu      sync.Mutex
	percent float64
	nextID  int
	subs    []scrollSubscriber
}

func NewScrollMonitor() *ScrollMonitor {
	return &ScrollMonitor{}
}

// ScrollPercent computes how far offset is through the scrollable range of
// contentHeight seen through viewportHeight. Content that fits the viewport
// reports 0.
func ScrollPercent(offset, contentHeight, viewportHeight int) float64 {
	scrollable := contentHeight - viewportHeight
	if scrollable <= 0 {
		return 0
	}
	pct := float64(offset) / float64(scrollable) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Update records a new viewport position and notifies subscribers.
func (m *ScrollMonitor) Update(offset, contentHeight, viewportHeight int) float64 {
	pct := ScrollPercent(offset, contentHeight, viewportHeight)

	m.mu.Lock()
	m.percent = pct
	subs := append([]scrollSubscriber(nil), m.subs...)
	m.mu.Unlock()

	for _, s := range subs {
		s.fn(pct)
	}
	return pct
}

func (m *ScrollMonitor) Percent() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.percent
}

func (m *ScrollMonitor) Subscribe(fn func(percent float64)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, scrollSubscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { m.remove(id) })
	}
}

func (m *ScrollMonitor) remove(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.subs {
		if s.id == id {
			m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
			return
		}
	}
}

func (m *ScrollMonitor) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Close drops every subscription.
func (m *ScrollMonitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = nil
}
