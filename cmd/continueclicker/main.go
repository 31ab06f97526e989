package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zoeyai/continueclicker/internal/logger"
	"github.com/zoeyai/continueclicker/pkg/config"
	"github.com/zoeyai/continueclicker/pkg/engine"
	"github.com/zoeyai/continueclicker/pkg/permissions"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		configDir   = flag.String("config-dir", "", "配置目录 (默认 ~/.continueclicker)")
		interval    = flag.Float64("interval", 0, "检测周期间隔（秒），覆盖配置文件")
		label       = flag.String("label", "", "目标按钮文字，覆盖配置文件")
		dryRun      = flag.Bool("dry-run", false, "干跑模式：检测但不执行真实点击")
		once        = flag.Bool("once", false, "只执行一个检测周期后退出（诊断用）")
		saveConfig  = flag.Bool("save", false, "保存当前配置到本地")
		logLevel    = flag.String("log-level", "", "日志级别 (DEBUG/INFO/WARN/ERROR)")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}
	if *showHelp {
		printHelp()
		return
	}

	mgr := config.NewManager()
	if *configDir != "" {
		mgr = config.NewManagerWithDir(*configDir)
	}

	cfg, err := mgr.Load()
	if err != nil {
		fmt.Printf("[WARN] 加载配置失败: %v\n", err)
	}

	// 命令行参数优先级高于配置文件
	if *interval > 0 {
		cfg.Automation.IntervalSeconds = *interval
	}
	if *dryRun {
		cfg.Automation.DryRun = true
	}
	if *label != "" {
		cfg.Detection.TargetLabels = []string{*label}
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	// 配置错误是启动阶段的致命错误
	if err := cfg.Validate(); err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}

	if *saveConfig {
		if err := mgr.Save(cfg); err != nil {
			fmt.Printf("[WARN] 保存配置失败: %v\n", err)
		} else {
			fmt.Printf("[INFO] 配置已保存到 %s\n", mgr.GetConfigFile())
		}
	}

	setupLogging(cfg)

	// 截屏与点击注入都依赖系统权限，缺失时尽早失败
	if status := permissions.Check(); !status.AllGranted() {
		fmt.Println(permissions.Instructions(status))
		if !status.Accessibility {
			permissions.RequestAccessibility()
		}
		os.Exit(1)
	}

	fmt.Println("========================================")
	fmt.Printf("  Continue Clicker v%s\n", Version)
	fmt.Println("========================================")
	fmt.Printf("目标文字: %v\n", cfg.Detection.TargetLabels)
	fmt.Printf("检测间隔: %v  干跑模式: %v\n", cfg.Interval(), cfg.Automation.DryRun)
	fmt.Println()

	eng, err := engine.NewWithDefaults(cfg)
	if err != nil {
		fmt.Printf("[ERROR] 创建引擎失败: %v\n", err)
		os.Exit(1)
	}

	if *once {
		eng.RunOneCycle()
		printStats(eng.Stats())
		return
	}

	if err := eng.Start(); err != nil {
		fmt.Printf("[ERROR] 启动失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("[INFO] 监控中，按 Ctrl+C 退出")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println()
	fmt.Println("[INFO] 正在停止...")
	eng.Stop()
	printStats(eng.Stats())
}

// setupLogging 应用日志配置
func setupLogging(cfg *config.Config) {
	log := logger.Default()
	log.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	log.SetConsole(cfg.Logging.Console)
	if cfg.Logging.FilePath != "" {
		if err := log.SetFile(cfg.Logging.FilePath); err != nil {
			fmt.Printf("[WARN] 日志文件不可用: %v\n", err)
		}
	}
}

// printStats 打印运行统计
func printStats(s engine.Stats) {
	fmt.Println()
	fmt.Println("========== 运行统计 ==========")
	fmt.Printf("处理窗口数: %d\n", s.WindowsProcessed)
	fmt.Printf("发现按钮数: %d\n", s.ButtonsFound)
	fmt.Printf("点击尝试数: %d\n", s.ClicksAttempted)
	fmt.Printf("点击成功数: %d\n", s.ClicksSuccessful)
	fmt.Printf("错误数:     %d\n", s.Errors)
	if !s.StartTime.IsZero() {
		fmt.Printf("运行时长:   %v\n", time.Since(s.StartTime).Round(time.Second))
	}
	fmt.Println("==============================")
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("Continue Clicker v%s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("Continue Clicker - VS Code Continue 按钮自动点击工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  continueclicker [选项]")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Println("  -config-dir string  配置目录 (默认 ~/.continueclicker)")
	fmt.Println("  -interval float     检测周期间隔（秒）")
	fmt.Println("  -label string       目标按钮文字")
	fmt.Println("  -dry-run            干跑模式：检测但不点击")
	fmt.Println("  -once               只执行一个检测周期后退出")
	fmt.Println("  -save               保存当前配置到本地")
	fmt.Println("  -log-level string   日志级别 (DEBUG/INFO/WARN/ERROR)")
	fmt.Println("  -version            显示版本信息")
	fmt.Println("  -help               显示帮助信息")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  # 干跑模式验证检测效果")
	fmt.Println("  continueclicker -dry-run -log-level DEBUG")
	fmt.Println()
	fmt.Println("  # 每 5 秒检测一次")
	fmt.Println("  continueclicker -interval 5")
}
