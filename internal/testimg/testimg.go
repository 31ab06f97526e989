// Package testimg 生成测试用的合成截图
// 在纯色背景上绘制带文字的按钮矩形，用于离线驱动检测器测试，
// 不依赖真实屏幕内容。
package testimg

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// Button 合成截图中的一个按钮
type Button struct {
	// X, Y 按钮左上角坐标
	X, Y int
	// W, H 按钮宽高
	W, H int
	// Fill 按钮填充色
	Fill color.RGBA
	// Label 按钮文字，空串表示纯色矩形
	Label string
}

// VSCodeBlue VS Code 按钮的主题蓝 (#007ACC)
func VSCodeBlue() color.RGBA {
	return color.RGBA{R: 0x00, G: 0x7A, B: 0xCC, A: 0xFF}
}

// DarkBackground VS Code 深色主题的编辑器底色 (#1E1E1E)
func DarkBackground() color.RGBA {
	return color.RGBA{R: 0x1E, G: 0x1E, B: 0x1E, A: 0xFF}
}

var buttonFont *truetype.Font

func init() {
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		// 内嵌字体损坏只可能是构建问题
		panic(fmt.Sprintf("解析内嵌字体失败: %v", err))
	}
	buttonFont = f
}

// Screenshot 生成 w×h 的合成截图
func Screenshot(w, h int, bg color.RGBA, buttons ...Button) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	for _, b := range buttons {
		rect := image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
		draw.Draw(img, rect, &image.Uniform{C: b.Fill}, image.Point{}, draw.Src)

		if b.Label == "" {
			continue
		}

		c := freetype.NewContext()
		c.SetDPI(72)
		c.SetFont(buttonFont)
		c.SetFontSize(13)
		c.SetClip(rect)
		c.SetDst(img)
		c.SetSrc(image.White)

		// 文字基线大致垂直居中
		pt := freetype.Pt(b.X+8, b.Y+b.H/2+5)
		if _, err := c.DrawString(b.Label, pt); err != nil {
			return nil, fmt.Errorf("绘制按钮文字失败: %w", err)
		}
	}

	return img, nil
}

// MustScreenshot 生成合成截图，失败时 panic（测试辅助用）
func MustScreenshot(w, h int, bg color.RGBA, buttons ...Button) *image.RGBA {
	img, err := Screenshot(w, h, bg, buttons...)
	if err != nil {
		panic(err)
	}
	return img
}
