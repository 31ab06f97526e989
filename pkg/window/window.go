// Package window 提供目标编辑器窗口的枚举与几何信息
// 窗口快照每个周期重新获取，不做缓存（窗口随时会移动/关闭）。
package window

import (
	"fmt"
	"strings"

	"github.com/go-vgo/robotgo"
	"github.com/shirou/gopsutil/v4/process"
)

// Rect 窗口边界（绝对屏幕坐标）
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Info 窗口信息快照
type Info struct {
	// PID 拥有进程 ID
	PID int `json:"pid"`
	// Title 窗口标题
	Title string `json:"title"`
	// OwnerName 拥有进程名
	OwnerName string `json:"owner_name"`
	// Bounds 窗口边界
	Bounds Rect `json:"bounds"`
	// Focused 是否为当前活动窗口
	Focused bool `json:"focused"`
}

// Provider 窗口枚举接口
// 引擎只依赖该接口，便于测试注入假实现。
type Provider interface {
	// List 返回当前所有目标窗口的快照
	List() ([]Info, error)
}

// RobotgoProvider 基于 robotgo + gopsutil 的窗口枚举实现
type RobotgoProvider struct {
	// processNames 目标进程名（小写），空时不按进程过滤
	processNames []string
}

// NewRobotgoProvider 创建窗口枚举器
func NewRobotgoProvider(processNames []string) *RobotgoProvider {
	normalized := make([]string, 0, len(processNames))
	for _, n := range processNames {
		normalized = append(normalized, strings.ToLower(n))
	}
	return &RobotgoProvider{processNames: normalized}
}

// List 枚举目标窗口
func (p *RobotgoProvider) List() ([]Info, error) {
	pids, err := robotgo.Pids()
	if err != nil {
		return nil, fmt.Errorf("获取进程列表失败: %w", err)
	}

	activeTitle := robotgo.GetTitle()

	var windows []Info
	for _, pid := range pids {
		title := robotgo.GetTitle(pid)
		if title == "" {
			continue
		}

		name := processName(pid)
		if !p.matchProcess(name) {
			continue
		}

		x, y, w, h := robotgo.GetBounds(pid)
		if w <= 0 || h <= 0 {
			continue
		}

		windows = append(windows, Info{
			PID:       pid,
			Title:     title,
			OwnerName: name,
			Bounds:    Rect{X: x, Y: y, Width: w, Height: h},
			Focused:   title == activeTitle,
		})
	}

	return windows, nil
}

// matchProcess 判断进程名是否匹配目标列表
func (p *RobotgoProvider) matchProcess(name string) bool {
	if len(p.processNames) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, target := range p.processNames {
		if strings.Contains(lower, target) {
			return true
		}
	}
	return false
}

// processName 通过 gopsutil 获取进程名（跨平台）
func processName(pid int) string {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := proc.Name()
	if err != nil {
		return ""
	}
	return name
}
