package engine

import (
	"github.com/zoeyai/continueclicker/internal/logger"
	"github.com/zoeyai/continueclicker/pkg/capture"
	"github.com/zoeyai/continueclicker/pkg/clicker"
	"github.com/zoeyai/continueclicker/pkg/config"
	"github.com/zoeyai/continueclicker/pkg/detect"
	"github.com/zoeyai/continueclicker/pkg/ocr"
	"github.com/zoeyai/continueclicker/pkg/window"
)

// NewWithDefaults 使用真实外部协作方构建引擎
// 窗口枚举/截屏/点击用 robotgo 实现；OCR 模型不可用时
// 文字识别检测器被省略，组合启发式检测器退化为形状检测。
func NewWithDefaults(cfg *config.Config) (*Engine, error) {
	matcher := detect.NewLabelMatcher(cfg.Detection.TargetLabels, cfg.Detection.MinSimilarity)

	var recognizer ocr.TextRecognizer
	if ocr.IsAvailable() {
		r, err := ocr.Global()
		if err != nil {
			logger.Warn("OCR 引擎初始化失败，禁用文字识别检测: %v", err)
		} else {
			recognizer = r
		}
	} else {
		logger.Warn("OCR 模型不可用，禁用文字识别检测")
	}

	specific := detect.NewSpecificDetector(
		cfg.Detection.ColorBand, cfg.Detection.TightButtonSize, recognizer, matcher)

	var broad []detect.Detector
	if recognizer != nil {
		broad = append(broad, detect.NewOCRDetector(recognizer, matcher, cfg.Detection.OCRMinConfidence))
	}
	broad = append(broad,
		detect.NewColorDetector(cfg.Detection.ColorBand, cfg.Detection.ButtonSize),
		detect.NewTemplateDetector(cfg.Detection.TemplateDir, cfg.Detection.TemplateThreshold),
	)

	fuser := detect.NewFuser(cfg.Detection.Fuse, matcher)

	return New(cfg,
		window.NewRobotgoProvider(cfg.Filtering.ProcessNames),
		capture.NewRobotgoProvider(),
		clicker.NewRobotgoClicker(cfg.Automation.RestoreCursor),
		specific, broad, fuser)
}
