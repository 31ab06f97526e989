// Package engine 提供编排循环：按固定周期枚举目标窗口，
// 对每个窗口执行 截屏 → 多路检测 → 融合排序 → 点击 的流水线，
// 并维护运行统计与安全限制（点击配额、冷却时间、各阶段超时）。
package engine

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zoeyai/continueclicker/internal/logger"
	"github.com/zoeyai/continueclicker/pkg/capture"
	"github.com/zoeyai/continueclicker/pkg/clicker"
	"github.com/zoeyai/continueclicker/pkg/config"
	"github.com/zoeyai/continueclicker/pkg/detect"
	"github.com/zoeyai/continueclicker/pkg/window"
)

// Engine 自动点击引擎
//
// 生命周期：Idle → Start → Running →（每周期处理所有窗口）→ Stop → Idle。
// 停止是协作式的：在周期之间检查停止信号，不会打断进行中的周期。
type Engine struct {
	cfg      *config.Config
	windows  window.Provider
	capturer capture.Provider
	clicker  clicker.Clicker

	// specific 优先通道检测器，高置信度命中时跳过广域检测器
	specific detect.Detector
	// broad 广域检测器集合（OCR/颜色/模板），对同一截图并发执行
	broad []detect.Detector
	fuser *detect.Fuser

	stats *counters

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	clicks    map[int]int       // PID → 本次运行内的点击次数
	lastClick map[int]time.Time // PID → 最近一次点击时间
}

// New 创建引擎
// 所有外部协作方以接口注入，检测器为空时对应通道被跳过。
func New(cfg *config.Config, windows window.Provider, capturer capture.Provider,
	clk clicker.Clicker, specific detect.Detector, broad []detect.Detector,
	fuser *detect.Fuser) (*Engine, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效，拒绝启动: %w", err)
	}
	if fuser == nil {
		matcher := detect.NewLabelMatcher(cfg.Detection.TargetLabels, cfg.Detection.MinSimilarity)
		fuser = detect.NewFuser(cfg.Detection.Fuse, matcher)
	}

	return &Engine{
		cfg:       cfg,
		windows:   windows,
		capturer:  capturer,
		clicker:   clk,
		specific:  specific,
		broad:     broad,
		fuser:     fuser,
		stats:     newCounters(),
		clicks:    make(map[int]int),
		lastClick: make(map[int]time.Time),
	}, nil
}

// Start 启动编排循环（非阻塞）
// 重复启动返回错误；启动时重置统计与点击配额。
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("引擎已在运行")
	}

	e.running = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.clicks = make(map[int]int)
	e.lastClick = make(map[int]time.Time)
	e.stats.Reset(time.Now())

	go e.loop(e.stopCh, e.doneCh)

	logger.Info("引擎已启动，检测间隔 %v，干跑模式=%v", e.cfg.Interval(), e.cfg.Automation.DryRun)
	return nil
}

// Stop 停止编排循环
// 可从任意 goroutine 调用；阻塞至当前进行中的周期结束。
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	done := e.doneCh
	e.mu.Unlock()

	<-done
	logger.Info("引擎已停止")
}

// Running 返回引擎是否在运行
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Stats 返回运行统计快照，可在循环执行中并发调用
func (e *Engine) Stats() Stats {
	return e.stats.Snapshot()
}

// loop 周期调度
// 周期间的等待可被停止信号立即打断，停止信号只在周期之间检查。
func (e *Engine) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
		}

		e.RunOneCycle()
		timer.Reset(e.cfg.Interval())
	}
}

// RunOneCycle 执行一个完整的检测周期
// 每周期重新枚举窗口快照；单个窗口的任何失败只记录错误，
// 不影响同周期内其余窗口的处理。诊断工具可直接调用本方法单步执行。
func (e *Engine) RunOneCycle() {
	windows, err := e.windows.List()
	if err != nil {
		logger.Error("枚举窗口失败: %v", err)
		e.stats.IncErrors()
		return
	}

	logger.Debug("本周期发现 %d 个目标窗口", len(windows))

	for _, w := range windows {
		e.processWindow(w)
	}
}

// processWindow 处理单个窗口：截屏 → 检测 → 融合 → 点击 → 记账
func (e *Engine) processWindow(w window.Info) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("处理窗口 PID=%d 时发生 panic: %v", w.PID, r)
			e.stats.IncErrors()
		}
	}()

	if !e.shouldProcessWindow(w) {
		logger.Debug("跳过窗口: %s (PID=%d)", w.Title, w.PID)
		return
	}

	e.stats.IncWindowsProcessed()

	shot, err := e.captureWithTimeout(w)
	if err != nil {
		logger.Warn("截屏失败: %v", err)
		e.stats.IncErrors()
		return
	}

	sightings := e.detectAll(shot.Img)
	candidates := e.fuser.Fuse(sightings, shot.Width, shot.Height)
	e.stats.AddButtonsFound(len(candidates))

	if len(candidates) == 0 {
		logger.Debug("窗口 %s 未发现目标按钮", w.Title)
		return
	}

	top := candidates[0]
	logger.LogEvent("FIND", true, 0,
		fmt.Sprintf("窗口=%s 方法=%s 置信度=%.2f 文字=%q 候选数=%d",
			w.Title, top.Method, top.Confidence, top.Text, len(candidates)))

	if reason := e.clickBlocked(w); reason != "" {
		logger.Debug("窗口 %s 暂不点击: %s", w.Title, reason)
		return
	}

	absX := shot.OriginX + top.CenterX()
	absY := shot.OriginY + top.CenterY()

	var result clicker.Result
	if e.cfg.Automation.DryRun {
		result = clicker.Simulated(absX, absY)
		logger.Info("[干跑] 将点击 (%d, %d) 窗口=%s 方法=%s", absX, absY, w.Title, top.Method)
	} else {
		result = e.clickWithTimeout(absX, absY)
	}

	e.stats.IncClicksAttempted()
	if result.Success {
		e.stats.IncClicksSuccessful()
		e.recordClick(w)
		logger.LogEvent("CLICK", true, 0,
			fmt.Sprintf("(%d, %d) 方式=%s 模拟=%v", result.X, result.Y, result.Method, result.Simulated))
	} else {
		e.stats.IncErrors()
		logger.LogEvent("CLICK", false, 0,
			fmt.Sprintf("(%d, %d) 失败: %s", result.X, result.Y, result.Err))
	}
}

// shouldProcessWindow 窗口纳入策略
// 过小的窗口、标题命中排除词的窗口、已达点击配额的窗口都被跳过。
func (e *Engine) shouldProcessWindow(w window.Info) bool {
	f := e.cfg.Filtering

	if w.Bounds.Width < f.MinWindowWidth || w.Bounds.Height < f.MinWindowHeight {
		return false
	}

	titleLower := strings.ToLower(w.Title)
	for _, pattern := range f.TitleExcludePatterns {
		if pattern != "" && strings.Contains(titleLower, strings.ToLower(pattern)) {
			return false
		}
	}

	if f.RequireChatIndicator {
		found := false
		for _, indicator := range f.ChatIndicators {
			if strings.Contains(titleLower, strings.ToLower(indicator)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if e.quotaReached(w) {
		return false
	}

	return true
}

// detectAll 对截图执行全部检测
// specific 检测器先行；命中短路阈值时直接返回，跳过广域检测器。
// 否则广域检测器对同一只读截图并发执行，单个检测器失败不影响其余。
func (e *Engine) detectAll(img image.Image) []detect.Sighting {
	var all []detect.Sighting

	if e.specific != nil {
		sightings, err := e.runDetector(e.specific, img)
		if err != nil {
			logger.Warn("检测器 %s 失败: %v", e.specific.Name(), err)
			e.stats.IncErrors()
		}
		all = append(all, sightings...)

		threshold := e.cfg.Detection.Fuse.ShortCircuitThreshold
		for _, s := range sightings {
			if s.Confidence >= threshold {
				logger.Debug("specific 检测器高置信度命中，跳过广域检测")
				return all
			}
		}
	}

	if len(e.broad) == 0 {
		return all
	}

	results := make([][]detect.Sighting, len(e.broad))
	var g errgroup.Group
	for i, d := range e.broad {
		g.Go(func() error {
			sightings, err := e.runDetector(d, img)
			if err != nil {
				logger.Warn("检测器 %s 失败: %v", d.Name(), err)
				e.stats.IncErrors()
			}
			results[i] = sightings
			return nil
		})
	}
	g.Wait()

	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// runDetector 带超时执行单个检测器
func (e *Engine) runDetector(d detect.Detector, img image.Image) ([]detect.Sighting, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.DetectorTimeout())
	defer cancel()

	type outcome struct {
		sightings []detect.Sighting
		err       error
	}
	ch := make(chan outcome, 1)
	go func() {
		s, err := d.Detect(ctx, img)
		ch <- outcome{s, err}
	}()

	select {
	case o := <-ch:
		return o.sightings, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("检测器 %s 超时: %w", d.Name(), ctx.Err())
	}
}

// captureWithTimeout 带超时截屏
func (e *Engine) captureWithTimeout(w window.Info) (*capture.Shot, error) {
	type outcome struct {
		shot *capture.Shot
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		shot, err := e.capturer.CaptureWindow(w)
		ch <- outcome{shot, err}
	}()

	select {
	case o := <-ch:
		return o.shot, o.err
	case <-time.After(e.cfg.CaptureTimeout()):
		return nil, fmt.Errorf("截屏超时: PID=%d", w.PID)
	}
}

// clickWithTimeout 带超时点击
func (e *Engine) clickWithTimeout(x, y int) clicker.Result {
	ch := make(chan clicker.Result, 1)
	go func() {
		ch <- e.clicker.Click(x, y)
	}()

	select {
	case r := <-ch:
		return r
	case <-time.After(e.cfg.ClickTimeout()):
		return clicker.Result{
			Success: false,
			X:       x,
			Y:       y,
			Method:  "robotgo",
			Err:     "点击操作超时",
		}
	}
}

// quotaReached 窗口是否已达本次运行的点击配额
func (e *Engine) quotaReached(w window.Info) bool {
	max := e.cfg.Automation.MaxClicksPerWindow
	if max <= 0 {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks[w.PID] >= max
}

// clickBlocked 检查点击限制，返回非空字符串说明被阻止的原因
func (e *Engine) clickBlocked(w window.Info) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	max := e.cfg.Automation.MaxClicksPerWindow
	if max > 0 && e.clicks[w.PID] >= max {
		return fmt.Sprintf("已达点击配额 %d", max)
	}

	if last, ok := e.lastClick[w.PID]; ok {
		cooldown := e.cfg.Cooldown()
		if elapsed := time.Since(last); elapsed < cooldown {
			return fmt.Sprintf("冷却中，还需 %v", cooldown-elapsed)
		}
	}

	return ""
}

// recordClick 记录一次成功点击（真实或模拟都计入配额与冷却）
func (e *Engine) recordClick(w window.Info) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clicks[w.PID]++
	e.lastClick[w.PID] = time.Now()
}
