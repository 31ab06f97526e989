// Package clicker 提供指针点击注入功能
// 指针是进程级共享资源，所有点击经由包级互斥锁串行化，
// 任意时刻最多只有一个物理点击在执行。
package clicker

import (
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
)

// Result 一次点击的结果
type Result struct {
	// Success 是否成功
	Success bool `json:"success"`
	// X, Y 点击的绝对屏幕坐标
	X int `json:"x"`
	Y int `json:"y"`
	// Method 使用的注入方式
	Method string `json:"method"`
	// Simulated 是否为干跑模拟（未触发真实点击）
	Simulated bool `json:"simulated"`
	// Err 失败原因
	Err string `json:"err,omitempty"`
}

// Clicker 点击注入接口
type Clicker interface {
	// Click 在绝对屏幕坐标处执行一次左键点击
	Click(x, y int) Result
}

// 进程级指针互斥锁
var pointerMu sync.Mutex

// RobotgoClicker 基于 robotgo 的点击实现
type RobotgoClicker struct {
	// restoreCursor 点击完成后将鼠标移回原位置
	restoreCursor bool
	// settleDelay 移动到位后的稳定延迟
	settleDelay time.Duration
}

// NewRobotgoClicker 创建点击器
func NewRobotgoClicker(restoreCursor bool) *RobotgoClicker {
	return &RobotgoClicker{
		restoreCursor: restoreCursor,
		settleDelay:   50 * time.Millisecond,
	}
}

// Click 移动指针到目标位置并执行左键单击
func (c *RobotgoClicker) Click(x, y int) Result {
	pointerMu.Lock()
	defer pointerMu.Unlock()

	origX, origY := robotgo.Location()

	robotgo.Move(x, y)
	time.Sleep(c.settleDelay)

	// 确认指针确实到位（多显示器/越界坐标会被系统钳制）
	curX, curY := robotgo.Location()
	if abs(curX-x) > 2 || abs(curY-y) > 2 {
		return Result{
			Success: false,
			X:       x,
			Y:       y,
			Method:  "robotgo",
			Err:     "指针未能移动到目标位置，坐标可能在屏幕外",
		}
	}

	robotgo.Click("left", false)

	if c.restoreCursor {
		robotgo.Move(origX, origY)
	}

	return Result{
		Success: true,
		X:       x,
		Y:       y,
		Method:  "robotgo",
	}
}

// Simulated 构造一个干跑模拟结果
func Simulated(x, y int) Result {
	return Result{
		Success:   true,
		X:         x,
		Y:         y,
		Method:    "dry-run",
		Simulated: true,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
