// Package config 提供引擎配置的定义、校验与持久化
package config

import (
	"fmt"
	"time"

	"github.com/zoeyai/continueclicker/pkg/detect"
)

// AutomationConfig 自动化循环配置
type AutomationConfig struct {
	// IntervalSeconds 检测周期间隔（秒）
	IntervalSeconds float64 `json:"interval_seconds"`
	// DryRun 干跑模式：执行完整检测但不触发真实点击
	DryRun bool `json:"dry_run"`
	// MaxClicksPerWindow 单个窗口在一次运行内的点击配额
	MaxClicksPerWindow int `json:"max_clicks_per_window"`
	// CooldownSeconds 同一窗口两次点击之间的最小间隔（秒）
	CooldownSeconds float64 `json:"cooldown_seconds"`
	// RestoreCursor 点击后恢复鼠标原位置
	RestoreCursor bool `json:"restore_cursor"`
	// CaptureTimeoutSeconds 截屏超时（秒）
	CaptureTimeoutSeconds float64 `json:"capture_timeout_seconds"`
	// DetectorTimeoutSeconds 单个检测器超时（秒）
	DetectorTimeoutSeconds float64 `json:"detector_timeout_seconds"`
	// ClickTimeoutSeconds 点击操作超时（秒）
	ClickTimeoutSeconds float64 `json:"click_timeout_seconds"`
}

// DetectionConfig 检测配置
type DetectionConfig struct {
	// TargetLabels 目标按钮文字变体
	TargetLabels []string `json:"target_labels"`
	// MinSimilarity 文字模糊匹配的最低相似度
	MinSimilarity float64 `json:"min_similarity"`
	// OCRMinConfidence OCR 片段的最低置信度
	OCRMinConfidence float64 `json:"ocr_min_confidence"`
	// TemplateThreshold 模板匹配的相关度阈值
	TemplateThreshold float64 `json:"template_threshold"`
	// TemplateDir 模板图片目录
	TemplateDir string `json:"template_dir"`
	// ColorBand 普通颜色检测的颜色带
	ColorBand detect.ColorBand `json:"color_band"`
	// ButtonSize 普通颜色检测的尺寸窗口
	ButtonSize detect.SizeRange `json:"button_size"`
	// TightButtonSize 组合启发式检测的收紧尺寸窗口
	TightButtonSize detect.SizeRange `json:"tight_button_size"`
	// Fuse 融合阶段配置
	Fuse detect.FuseConfig `json:"fuse"`
}

// FilterConfig 窗口筛选配置
type FilterConfig struct {
	// ProcessNames 目标编辑器的进程名
	ProcessNames []string `json:"process_names"`
	// TitleExcludePatterns 标题排除子串（小写匹配）
	TitleExcludePatterns []string `json:"title_exclude_patterns"`
	// MinWindowWidth, MinWindowHeight 最小窗口尺寸
	MinWindowWidth  int `json:"min_window_width"`
	MinWindowHeight int `json:"min_window_height"`
	// RequireChatIndicator 仅处理标题含聊天标识的窗口
	RequireChatIndicator bool `json:"require_chat_indicator"`
	// ChatIndicators 聊天面板标识词
	ChatIndicators []string `json:"chat_indicators"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string `json:"level"`
	FilePath string `json:"file_path"`
	Console  bool   `json:"console"`
}

// Config 引擎完整配置
type Config struct {
	Automation AutomationConfig `json:"automation"`
	Detection  DetectionConfig  `json:"detection"`
	Filtering  FilterConfig     `json:"filtering"`
	Logging    LoggingConfig    `json:"logging"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Automation: AutomationConfig{
			IntervalSeconds:        2.0,
			DryRun:                 false,
			MaxClicksPerWindow:     10,
			CooldownSeconds:        5.0,
			RestoreCursor:          true,
			CaptureTimeoutSeconds:  5.0,
			DetectorTimeoutSeconds: 10.0,
			ClickTimeoutSeconds:    3.0,
		},
		Detection: DetectionConfig{
			TargetLabels: []string{
				"Continue", "Continue >", "Continue...", "Generate more",
			},
			MinSimilarity:     0.8,
			OCRMinConfidence:  0.3,
			TemplateThreshold: 0.8,
			TemplateDir:       "templates",
			ColorBand:         detect.VSCodeBlueBand(),
			ButtonSize:        detect.ButtonSizeRange(),
			TightButtonSize:   detect.TightButtonSizeRange(),
			Fuse:              detect.DefaultFuseConfig(),
		},
		Filtering: FilterConfig{
			ProcessNames:         []string{"code", "code-oss", "codium", "cursor"},
			TitleExcludePatterns: []string{"settings", "extensions", "terminal"},
			MinWindowWidth:       400,
			MinWindowHeight:      300,
			RequireChatIndicator: false,
			ChatIndicators:       []string{"chat", "copilot", "assistant"},
		},
		Logging: LoggingConfig{
			Level:   "INFO",
			Console: true,
		},
	}
}

// Validate 校验配置
// 配置错误在启动阶段即为致命错误，循环拒绝以未定义的阈值运行。
func (c *Config) Validate() error {
	if c.Automation.IntervalSeconds <= 0 {
		return fmt.Errorf("检测间隔必须为正数: %v", c.Automation.IntervalSeconds)
	}
	if c.Automation.MaxClicksPerWindow < 0 {
		return fmt.Errorf("窗口点击配额不能为负数: %d", c.Automation.MaxClicksPerWindow)
	}
	if c.Automation.CooldownSeconds < 0 {
		return fmt.Errorf("点击冷却时间不能为负数: %v", c.Automation.CooldownSeconds)
	}
	if len(c.Detection.TargetLabels) == 0 {
		return fmt.Errorf("缺少目标按钮文字")
	}
	for _, label := range c.Detection.TargetLabels {
		if label == "" {
			return fmt.Errorf("目标按钮文字不能为空串")
		}
	}
	if err := validateThreshold("OCR 最低置信度", c.Detection.OCRMinConfidence); err != nil {
		return err
	}
	if err := validateThreshold("模板匹配阈值", c.Detection.TemplateThreshold); err != nil {
		return err
	}
	if err := validateThreshold("短路置信度阈值", c.Detection.Fuse.ShortCircuitThreshold); err != nil {
		return err
	}
	if err := validateThreshold("去重 IoU 阈值", c.Detection.Fuse.OverlapThreshold); err != nil {
		return err
	}
	if c.Detection.Fuse.TopExcludeFrac < 0 || c.Detection.Fuse.TopExcludeFrac >= 1 {
		return fmt.Errorf("顶部排除比例必须在 [0,1) 内: %v", c.Detection.Fuse.TopExcludeFrac)
	}
	if c.Detection.Fuse.LeftExcludeFrac < 0 || c.Detection.Fuse.LeftExcludeFrac >= 1 {
		return fmt.Errorf("左侧排除比例必须在 [0,1) 内: %v", c.Detection.Fuse.LeftExcludeFrac)
	}
	if c.Detection.Fuse.BottomExcludePx < 0 {
		return fmt.Errorf("底部排除高度不能为负数: %d", c.Detection.Fuse.BottomExcludePx)
	}
	return nil
}

// validateThreshold 校验阈值在 (0,1] 内
func validateThreshold(name string, v float64) error {
	if v <= 0 || v > 1 {
		return fmt.Errorf("%s必须在 (0,1] 内: %v", name, v)
	}
	return nil
}

// Interval 检测周期间隔
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Automation.IntervalSeconds * float64(time.Second))
}

// Cooldown 同窗口点击冷却时间
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Automation.CooldownSeconds * float64(time.Second))
}

// CaptureTimeout 截屏超时
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Automation.CaptureTimeoutSeconds * float64(time.Second))
}

// DetectorTimeout 单个检测器超时
func (c *Config) DetectorTimeout() time.Duration {
	return time.Duration(c.Automation.DetectorTimeoutSeconds * float64(time.Second))
}

// ClickTimeout 点击操作超时
func (c *Config) ClickTimeout() time.Duration {
	return time.Duration(c.Automation.ClickTimeoutSeconds * float64(time.Second))
}
