package ocr

import (
	"fmt"
	"image"
	"sync"
	"time"

	goocr "github.com/getcharzp/go-ocr"

	"github.com/zoeyai/continueclicker/internal/logger"
)

// PaddleRecognizer 基于 go-ocr (PaddleOCR) 的识别器实现
type PaddleRecognizer struct {
	engine goocr.Engine
	config Config
	mu     sync.Mutex
}

// 全局单例
var (
	globalRecognizer *PaddleRecognizer
	globalOnce       sync.Once
	globalErr        error
)

// NewPaddleRecognizer 创建 OCR 识别器
func NewPaddleRecognizer(config Config) (*PaddleRecognizer, error) {
	ocrConfig := goocr.Config{
		OnnxRuntimeLibPath: config.OnnxRuntimeLibPath,
		DetModelPath:       config.DetModelPath,
		RecModelPath:       config.RecModelPath,
		DictPath:           config.DictPath,
	}

	engine, err := goocr.NewPaddleOcrEngine(ocrConfig)
	if err != nil {
		return nil, fmt.Errorf("创建 OCR 引擎失败: %w", err)
	}

	logger.Info("OCR 引擎初始化成功")

	return &PaddleRecognizer{
		engine: engine,
		config: config,
	}, nil
}

// Global 获取全局 OCR 识别器（懒初始化）
func Global() (*PaddleRecognizer, error) {
	globalOnce.Do(func() {
		globalRecognizer, globalErr = NewPaddleRecognizer(DefaultConfig())
	})
	return globalRecognizer, globalErr
}

// Recognize 识别图像中的所有文字片段
// 引擎内部不支持并发，用互斥锁串行化调用。
func (r *PaddleRecognizer) Recognize(img image.Image) ([]Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	startTime := time.Now()

	raw, err := r.engine.RunOCR(img)
	if err != nil {
		elapsed := float64(time.Since(startTime).Milliseconds())
		logger.LogEvent("OCR", false, elapsed, "识别失败")
		return nil, fmt.Errorf("OCR 识别失败: %w", err)
	}

	results := make([]Result, 0, len(raw))
	for _, rr := range raw {
		results = append(results, convertResult(rr))
	}

	elapsed := float64(time.Since(startTime).Milliseconds())
	logger.LogEvent("OCR", true, elapsed, fmt.Sprintf("识别到 %d 个文本", len(results)))

	return results, nil
}

// Close 释放引擎资源
func (r *PaddleRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine != nil {
		r.engine.Destroy()
		r.engine = nil
	}
	return nil
}

// convertResult 转换 go-ocr 结果
// go-ocr RecResult: Box [4]int{x1, y1, x2, y2}, Text string, Score float32
func convertResult(r goocr.RecResult) Result {
	box := r.Box
	return Result{
		Text:       r.Text,
		Confidence: float64(r.Score),
		Box:        image.Rect(box[0], box[1], box[2], box[3]),
	}
}
