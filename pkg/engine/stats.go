package engine

import (
	"sync"
	"time"
)

// Stats 运行统计快照
// WindowsProcessed 为累计值（处理过的窗口人次），
// 不是当前打开的窗口数——这是刻意的产品决定。
type Stats struct {
	// WindowsProcessed 累计处理的窗口数
	WindowsProcessed uint64 `json:"windows_processed"`
	// ButtonsFound 累计发现的候选按钮数
	ButtonsFound uint64 `json:"buttons_found"`
	// ClicksAttempted 累计点击尝试数（含干跑模拟）
	ClicksAttempted uint64 `json:"clicks_attempted"`
	// ClicksSuccessful 累计点击成功数
	ClicksSuccessful uint64 `json:"clicks_successful"`
	// Errors 累计错误数
	Errors uint64 `json:"errors"`
	// StartTime 本次运行的开始时间
	StartTime time.Time `json:"start_time"`
}

// counters 互斥锁保护的统计计数器
// 只由编排循环写入，任意时刻可被外部消费方并发读取快照。
type counters struct {
	mu    sync.Mutex
	stats Stats
}

func newCounters() *counters {
	return &counters{}
}

// Snapshot 返回当前统计的只读副本
func (c *counters) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Reset 重置计数器并记录新的开始时间
func (c *counters) Reset(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{StartTime: start}
}

func (c *counters) IncWindowsProcessed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.WindowsProcessed++
}

func (c *counters) AddButtonsFound(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.ButtonsFound += uint64(n)
}

func (c *counters) IncClicksAttempted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.ClicksAttempted++
}

func (c *counters) IncClicksSuccessful() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.ClicksSuccessful++
}

func (c *counters) IncErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Errors++
}
