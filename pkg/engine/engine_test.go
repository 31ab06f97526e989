package engine

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoeyai/continueclicker/pkg/capture"
	"github.com/zoeyai/continueclicker/pkg/clicker"
	"github.com/zoeyai/continueclicker/pkg/config"
	"github.com/zoeyai/continueclicker/pkg/detect"
	"github.com/zoeyai/continueclicker/pkg/window"
)

// ---- 测试用假协作方 ----

type fakeWindows struct {
	windows []window.Info
	err     error
	calls   atomic.Int64
}

func (f *fakeWindows) List() ([]window.Info, error) {
	f.calls.Add(1)
	return f.windows, f.err
}

type fakeCapturer struct {
	err   error
	calls atomic.Int64
	// failPIDs 指定截屏失败的窗口
	failPIDs map[int]bool
}

func (f *fakeCapturer) CaptureWindow(w window.Info) (*capture.Shot, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.failPIDs[w.PID] {
		return nil, errors.New("截屏失败")
	}
	return &capture.Shot{
		Img:     image.NewRGBA(image.Rect(0, 0, 1000, 600)),
		OriginX: w.Bounds.X,
		OriginY: w.Bounds.Y,
		Width:   1000,
		Height:  600,
	}, nil
}

type fakeClicker struct {
	fail  bool
	calls atomic.Int64
	lastX atomic.Int64
	lastY atomic.Int64
}

func (f *fakeClicker) Click(x, y int) clicker.Result {
	f.calls.Add(1)
	f.lastX.Store(int64(x))
	f.lastY.Store(int64(y))
	if f.fail {
		return clicker.Result{Success: false, X: x, Y: y, Method: "fake", Err: "注入的失败"}
	}
	return clicker.Result{Success: true, X: x, Y: y, Method: "fake"}
}

type fakeDetector struct {
	name      string
	sightings []detect.Sighting
	err       error
	calls     atomic.Int64
}

func (f *fakeDetector) Name() string { return f.name }

func (f *fakeDetector) Detect(ctx context.Context, img image.Image) ([]detect.Sighting, error) {
	f.calls.Add(1)
	return f.sightings, f.err
}

// ---- 测试装配 ----

// 允许区域内的标准命中，中心 (540, 415)
func testSighting(conf float64, m detect.Method) detect.Sighting {
	return detect.Sighting{X: 500, Y: 400, Width: 80, Height: 30, Confidence: conf, Method: m}
}

func testWindow(pid int) window.Info {
	return window.Info{
		PID:    pid,
		Title:  "main.go - project - Visual Studio Code",
		Bounds: window.Rect{X: 100, Y: 50, Width: 1000, Height: 600},
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Automation.DryRun = true
	cfg.Automation.CooldownSeconds = 0
	cfg.Automation.IntervalSeconds = 0.01
	cfg.Logging.Console = false
	return cfg
}

type testEnv struct {
	engine   *Engine
	windows  *fakeWindows
	capturer *fakeCapturer
	clicker  *fakeClicker
}

func newTestEnv(t *testing.T, cfg *config.Config, specific detect.Detector, broad []detect.Detector) *testEnv {
	t.Helper()

	env := &testEnv{
		windows:  &fakeWindows{windows: []window.Info{testWindow(1234)}},
		capturer: &fakeCapturer{},
		clicker:  &fakeClicker{},
	}

	eng, err := New(cfg, env.windows, env.capturer, env.clicker, specific, broad, nil)
	if err != nil {
		t.Fatalf("创建引擎失败: %v", err)
	}
	env.engine = eng
	return env
}

// ---- 测试 ----

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Automation.IntervalSeconds = -1

	_, err := New(cfg, &fakeWindows{}, &fakeCapturer{}, &fakeClicker{}, nil, nil, nil)
	if err == nil {
		t.Error("非法配置应拒绝创建引擎")
	}
}

func TestEngineDryRunSimulatesClick(t *testing.T) {
	specific := &fakeDetector{name: "specific", sightings: []detect.Sighting{
		testSighting(0.95, detect.MethodSpecific),
	}}
	env := newTestEnv(t, testConfig(), specific, nil)

	env.engine.RunOneCycle()

	s := env.engine.Stats()
	if s.WindowsProcessed != 1 {
		t.Errorf("处理窗口数应为 1, 实际 %d", s.WindowsProcessed)
	}
	if s.ButtonsFound != 1 {
		t.Errorf("发现按钮数应为 1, 实际 %d", s.ButtonsFound)
	}
	if s.ClicksAttempted != 1 || s.ClicksSuccessful != 1 {
		t.Errorf("干跑点击应计入统计: 尝试=%d 成功=%d", s.ClicksAttempted, s.ClicksSuccessful)
	}
	if s.Errors != 0 {
		t.Errorf("错误数应为 0, 实际 %d", s.Errors)
	}
	// 干跑模式绝不触发真实点击
	if env.clicker.calls.Load() != 0 {
		t.Errorf("干跑模式不应调用点击器, 调用了 %d 次", env.clicker.calls.Load())
	}
}

func TestEngineRealClickAbsoluteCoords(t *testing.T) {
	cfg := testConfig()
	cfg.Automation.DryRun = false

	specific := &fakeDetector{name: "specific", sightings: []detect.Sighting{
		testSighting(0.95, detect.MethodSpecific),
	}}
	env := newTestEnv(t, cfg, specific, nil)

	env.engine.RunOneCycle()

	if env.clicker.calls.Load() != 1 {
		t.Fatalf("应执行 1 次真实点击, 实际 %d", env.clicker.calls.Load())
	}
	// 点击坐标 = 窗口原点 + 候选中心: (100+540, 50+415)
	if x, y := env.clicker.lastX.Load(), env.clicker.lastY.Load(); x != 640 || y != 465 {
		t.Errorf("点击坐标应为 (640, 465), 实际 (%d, %d)", x, y)
	}
}

func TestEngineClickQuota(t *testing.T) {
	cfg := testConfig()
	cfg.Automation.MaxClicksPerWindow = 2

	specific := &fakeDetector{name: "specific", sightings: []detect.Sighting{
		testSighting(0.95, detect.MethodSpecific),
	}}
	env := newTestEnv(t, cfg, specific, nil)

	for i := 0; i < 5; i++ {
		env.engine.RunOneCycle()
	}

	s := env.engine.Stats()
	// 模拟点击同样计入配额，配额用尽后窗口被整体跳过
	if s.ClicksAttempted != 2 {
		t.Errorf("点击尝试应止步于配额 2, 实际 %d", s.ClicksAttempted)
	}
	if s.WindowsProcessed != 2 {
		t.Errorf("达到配额后窗口应被跳过, 处理数应为 2, 实际 %d", s.WindowsProcessed)
	}
}

func TestEngineCooldown(t *testing.T) {
	cfg := testConfig()
	cfg.Automation.CooldownSeconds = 3600

	specific := &fakeDetector{name: "specific", sightings: []detect.Sighting{
		testSighting(0.95, detect.MethodSpecific),
	}}
	env := newTestEnv(t, cfg, specific, nil)

	env.engine.RunOneCycle()
	env.engine.RunOneCycle()

	s := env.engine.Stats()
	if s.ClicksAttempted != 1 {
		t.Errorf("冷却期内不应再次点击, 尝试数应为 1, 实际 %d", s.ClicksAttempted)
	}
	// 冷却只阻止点击，检测照常执行
	if s.ButtonsFound != 2 {
		t.Errorf("冷却期内检测应继续, 发现数应为 2, 实际 %d", s.ButtonsFound)
	}
	if s.WindowsProcessed != 2 {
		t.Errorf("冷却期内窗口应照常处理, 实际 %d", s.WindowsProcessed)
	}
}

func TestEngineCaptureFailureContinues(t *testing.T) {
	specific := &fakeDetector{name: "specific", sightings: []detect.Sighting{
		testSighting(0.95, detect.MethodSpecific),
	}}
	env := newTestEnv(t, testConfig(), specific, nil)
	env.windows.windows = []window.Info{testWindow(111), testWindow(222)}
	env.capturer.failPIDs = map[int]bool{111: true}

	env.engine.RunOneCycle()

	s := env.engine.Stats()
	if s.Errors != 1 {
		t.Errorf("截屏失败应计 1 次错误, 实际 %d", s.Errors)
	}
	if s.WindowsProcessed != 2 {
		t.Errorf("两个窗口都应计入处理, 实际 %d", s.WindowsProcessed)
	}
	// 失败窗口不影响后续窗口的完整流水线
	if s.ClicksAttempted != 1 {
		t.Errorf("第二个窗口应正常点击, 尝试数应为 1, 实际 %d", s.ClicksAttempted)
	}
}

func TestEngineWindowListFailure(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil, nil)
	env.windows.err = errors.New("枚举失败")

	env.engine.RunOneCycle()

	s := env.engine.Stats()
	if s.Errors != 1 {
		t.Errorf("枚举失败应计 1 次错误, 实际 %d", s.Errors)
	}
	if s.WindowsProcessed != 0 {
		t.Errorf("枚举失败时不应处理任何窗口, 实际 %d", s.WindowsProcessed)
	}
}

func TestEngineEmptyCyclesNoCounters(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil, nil)
	env.windows.windows = nil

	if err := env.engine.Start(); err != nil {
		t.Fatalf("启动失败: %v", err)
	}
	defer env.engine.Stop()

	// 等待若干空周期
	for env.windows.calls.Load() < 10 {
		time.Sleep(5 * time.Millisecond)
	}

	if !env.engine.Running() {
		t.Error("空周期后引擎应仍在运行")
	}
	s := env.engine.Stats()
	if s.WindowsProcessed != 0 || s.ButtonsFound != 0 || s.ClicksAttempted != 0 || s.Errors != 0 {
		t.Errorf("空周期不应产生任何计数: %+v", s)
	}
}

func TestEngineStartStop(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil, nil)
	env.windows.windows = nil

	if env.engine.Running() {
		t.Error("初始状态不应在运行")
	}
	if err := env.engine.Start(); err != nil {
		t.Fatalf("启动失败: %v", err)
	}
	if !env.engine.Running() {
		t.Error("Start 后应在运行")
	}
	if err := env.engine.Start(); err == nil {
		t.Error("重复启动应返回错误")
	}

	env.engine.Stop()
	if env.engine.Running() {
		t.Error("Stop 后不应在运行")
	}
	// 重复 Stop 不阻塞不崩溃
	env.engine.Stop()

	// 停止后可重新启动
	if err := env.engine.Start(); err != nil {
		t.Fatalf("重新启动失败: %v", err)
	}
	env.engine.Stop()
}

func TestEngineDetectorErrorDoesNotAbort(t *testing.T) {
	broken := &fakeDetector{name: "broken", err: errors.New("检测器崩溃")}
	working := &fakeDetector{name: "working", sightings: []detect.Sighting{
		testSighting(0.70, detect.MethodColor),
	}}
	env := newTestEnv(t, testConfig(), nil, []detect.Detector{broken, working})

	env.engine.RunOneCycle()

	s := env.engine.Stats()
	if s.Errors != 1 {
		t.Errorf("检测器失败应计 1 次错误, 实际 %d", s.Errors)
	}
	if s.ClicksAttempted != 1 {
		t.Errorf("其余检测器的命中应正常点击, 尝试数应为 1, 实际 %d", s.ClicksAttempted)
	}
}

func TestEngineShortCircuitSkipsBroad(t *testing.T) {
	specific := &fakeDetector{name: "specific", sightings: []detect.Sighting{
		testSighting(0.95, detect.MethodSpecific),
	}}
	broad := &fakeDetector{name: "color", sightings: []detect.Sighting{
		testSighting(0.60, detect.MethodColor),
	}}
	env := newTestEnv(t, testConfig(), specific, []detect.Detector{broad})

	env.engine.RunOneCycle()

	if broad.calls.Load() != 0 {
		t.Errorf("高置信度命中后不应调用广域检测器, 调用了 %d 次", broad.calls.Load())
	}
}

func TestEngineLowConfidenceRunsBroad(t *testing.T) {
	specific := &fakeDetector{name: "specific", sightings: []detect.Sighting{
		testSighting(0.80, detect.MethodSpecific),
	}}
	broad := &fakeDetector{name: "color", sightings: []detect.Sighting{
		testSighting(0.60, detect.MethodColor),
	}}
	env := newTestEnv(t, testConfig(), specific, []detect.Detector{broad})

	env.engine.RunOneCycle()

	if broad.calls.Load() != 1 {
		t.Errorf("低于短路阈值时广域检测器应执行, 调用了 %d 次", broad.calls.Load())
	}
}

func TestEngineClickFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Automation.DryRun = false
	cfg.Automation.MaxClicksPerWindow = 1

	specific := &fakeDetector{name: "specific", sightings: []detect.Sighting{
		testSighting(0.95, detect.MethodSpecific),
	}}
	env := newTestEnv(t, cfg, specific, nil)
	env.clicker.fail = true

	env.engine.RunOneCycle()
	env.engine.RunOneCycle()

	s := env.engine.Stats()
	if s.ClicksSuccessful != 0 {
		t.Errorf("点击失败不应计成功, 实际 %d", s.ClicksSuccessful)
	}
	if s.Errors != 2 {
		t.Errorf("两次失败点击应计 2 次错误, 实际 %d", s.Errors)
	}
	// 失败点击不消耗配额，下个周期仍会重试
	if s.ClicksAttempted != 2 {
		t.Errorf("失败点击不应消耗配额, 尝试数应为 2, 实际 %d", s.ClicksAttempted)
	}
}

func TestEngineWindowFiltering(t *testing.T) {
	tests := []struct {
		name      string
		w         window.Info
		processed bool
	}{
		{
			name:      "normal editor window",
			w:         testWindow(1),
			processed: true,
		},
		{
			name: "too small",
			w: window.Info{
				PID: 2, Title: "code",
				Bounds: window.Rect{Width: 200, Height: 150},
			},
			processed: false,
		},
		{
			name: "excluded title",
			w: window.Info{
				PID: 3, Title: "Settings - Visual Studio Code",
				Bounds: window.Rect{Width: 1000, Height: 600},
			},
			processed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig(), nil, nil)
			env.windows.windows = []window.Info{tt.w}

			env.engine.RunOneCycle()

			got := env.engine.Stats().WindowsProcessed == 1
			if got != tt.processed {
				t.Errorf("窗口处理 = %v, 期望 %v", got, tt.processed)
			}
		})
	}
}

func TestEngineChatIndicatorRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Filtering.RequireChatIndicator = true

	env := newTestEnv(t, cfg, nil, nil)
	env.windows.windows = []window.Info{
		{PID: 1, Title: "main.go - Visual Studio Code", Bounds: window.Rect{Width: 1000, Height: 600}},
		{PID: 2, Title: "Copilot Chat - Visual Studio Code", Bounds: window.Rect{Width: 1000, Height: 600}},
	}

	env.engine.RunOneCycle()

	if got := env.engine.Stats().WindowsProcessed; got != 1 {
		t.Errorf("仅标题含聊天标识的窗口应被处理, 实际处理 %d 个", got)
	}
}

func TestEngineStartResetsStats(t *testing.T) {
	specific := &fakeDetector{name: "specific", sightings: []detect.Sighting{
		testSighting(0.95, detect.MethodSpecific),
	}}
	env := newTestEnv(t, testConfig(), specific, nil)

	env.engine.RunOneCycle()
	if env.engine.Stats().ClicksAttempted != 1 {
		t.Fatal("预置点击未发生")
	}

	if err := env.engine.Start(); err != nil {
		t.Fatalf("启动失败: %v", err)
	}
	defer env.engine.Stop()

	// Start 重置统计与点击配额
	if got := env.engine.Stats().StartTime; got.IsZero() {
		t.Error("Start 后应记录开始时间")
	}
}
