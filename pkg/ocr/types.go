// Package ocr 提供基于 PaddleOCR 的文字识别功能
// 检测引擎的文字识别检测器通过 TextRecognizer 接口消费本包。
package ocr

import (
	"image"
	"os"
	"path/filepath"
	"runtime"
)

// Result 单个文字片段的识别结果
type Result struct {
	// Text 识别的文字内容
	Text string `json:"text"`
	// Confidence 识别置信度 (0-1)
	Confidence float64 `json:"confidence"`
	// Box 文字边界框（相对输入图像）
	Box image.Rectangle `json:"box"`
}

// Center 返回边界框中心点
func (r Result) Center() image.Point {
	return image.Pt((r.Box.Min.X+r.Box.Max.X)/2, (r.Box.Min.Y+r.Box.Max.Y)/2)
}

// TextRecognizer 文字识别器接口
// 上层只依赖该接口，便于测试时注入假实现。
type TextRecognizer interface {
	// Recognize 识别图像中的所有文字片段
	Recognize(img image.Image) ([]Result, error)
}

// Config OCR 引擎配置
type Config struct {
	// OnnxRuntimeLibPath ONNX Runtime 动态库路径
	OnnxRuntimeLibPath string
	// DetModelPath 检测模型路径
	DetModelPath string
	// RecModelPath 识别模型路径
	RecModelPath string
	// DictPath 字典文件路径
	DictPath string
}

// DefaultConfig 默认配置（在可执行文件目录和工作目录下查找模型）
func DefaultConfig() Config {
	return Config{
		OnnxRuntimeLibPath: findFirst(onnxRuntimeCandidates()),
		DetModelPath:       findFirst(modelCandidates("det.onnx")),
		RecModelPath:       findFirst(modelCandidates("rec.onnx")),
		DictPath:           findFirst(modelCandidates("dict.txt")),
	}
}

// IsAvailable 检查 OCR 功能是否可用（模型文件是否齐全）
func IsAvailable() bool {
	cfg := DefaultConfig()
	return fileExists(cfg.OnnxRuntimeLibPath) &&
		fileExists(cfg.DetModelPath) &&
		fileExists(cfg.RecModelPath) &&
		fileExists(cfg.DictPath)
}

// getExecutableDir 获取可执行文件所在目录
func getExecutableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return "."
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return "."
	}
	return filepath.Dir(execPath)
}

// onnxRuntimeCandidates ONNX Runtime 库的候选路径（按平台）
func onnxRuntimeCandidates() []string {
	execDir := getExecutableDir()

	switch runtime.GOOS {
	case "darwin":
		return []string{
			filepath.Join(execDir, "libonnxruntime.dylib"),
			filepath.Join(execDir, "lib", "onnxruntime_arm64.dylib"),
			filepath.Join(execDir, "lib", "onnxruntime_amd64.dylib"),
			"models/lib/onnxruntime_arm64.dylib",
		}
	case "windows":
		return []string{
			filepath.Join(execDir, "onnxruntime.dll"),
			"models/lib/onnxruntime.dll",
			"onnxruntime.dll",
		}
	default:
		return []string{
			filepath.Join(execDir, "libonnxruntime.so"),
			filepath.Join(execDir, "lib", "onnxruntime_amd64.so"),
			"models/lib/onnxruntime_amd64.so",
			"./lib/onnxruntime.so",
		}
	}
}

// modelCandidates 模型文件的候选路径
func modelCandidates(filename string) []string {
	execDir := getExecutableDir()
	return []string{
		filepath.Join(execDir, "models", "paddle_weights", filename),
		filepath.Join("models", "paddle_weights", filename),
	}
}

// findFirst 返回第一个存在的路径，都不存在时返回末项
func findFirst(paths []string) string {
	for _, p := range paths {
		if fileExists(p) {
			return p
		}
	}
	return paths[len(paths)-1]
}

// fileExists 检查文件是否存在
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
