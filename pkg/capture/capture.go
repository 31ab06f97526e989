// Package capture 提供窗口截屏功能
package capture

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/continueclicker/pkg/window"
)

// Shot 一次截屏结果
// 像素缓冲为只读，由产生它的检测周期独占，周期结束后即丢弃。
type Shot struct {
	// Img 截屏像素内容
	Img image.Image
	// OriginX, OriginY 截屏区域在屏幕上的绝对偏移
	OriginX int
	OriginY int
	// Width, Height 截屏尺寸
	Width  int
	Height int
}

// Provider 截屏接口
type Provider interface {
	// CaptureWindow 截取窗口当前内容
	CaptureWindow(w window.Info) (*Shot, error)
}

// RobotgoProvider 基于 robotgo 的区域截屏实现
type RobotgoProvider struct{}

// NewRobotgoProvider 创建截屏器
func NewRobotgoProvider() *RobotgoProvider {
	return &RobotgoProvider{}
}

// CaptureWindow 截取窗口区域
func (p *RobotgoProvider) CaptureWindow(w window.Info) (*Shot, error) {
	b := w.Bounds
	if b.Width <= 0 || b.Height <= 0 {
		return nil, fmt.Errorf("窗口边界无效: PID=%d %dx%d", w.PID, b.Width, b.Height)
	}

	img, err := robotgo.CaptureImg(b.X, b.Y, b.Width, b.Height)
	if err != nil {
		return nil, fmt.Errorf("截取窗口失败: PID=%d: %w", w.PID, err)
	}

	shot := &Shot{
		Img:     img,
		OriginX: b.X,
		OriginY: b.Y,
		Width:   img.Bounds().Dx(),
		Height:  img.Bounds().Dy(),
	}

	if degenerate(shot.Img) {
		return nil, fmt.Errorf("截屏内容疑似无效（近乎纯色帧）: PID=%d", w.PID)
	}

	return shot, nil
}

// degenerate 判断截屏是否退化
// Wayland 等环境下截屏失败会得到近乎纯黑/纯白的小帧，
// 通过抽样平均亮度识别并拒绝。
func degenerate(img image.Image) bool {
	b := img.Bounds()
	if b.Dx() <= 1 || b.Dy() <= 1 {
		return true
	}

	// 抽样网格，避免全图扫描
	const samples = 16
	stepX := max(1, b.Dx()/samples)
	stepY := max(1, b.Dy()/samples)

	var sum, count float64
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			r, g, bb, _ := img.At(x, y).RGBA()
			// 亮度按 8 位灰度估算
			gray := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bb)) / 257
			sum += gray
			count++
		}
	}
	if count == 0 {
		return true
	}

	brightness := sum / count
	return brightness < 10 || brightness > 245
}
