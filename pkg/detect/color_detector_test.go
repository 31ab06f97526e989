package detect

import (
	"context"
	"image"
	"testing"

	"github.com/zoeyai/continueclicker/internal/testimg"
)

func TestColorDetectorFindsBlueButton(t *testing.T) {
	// 深色背景上的一个 VS Code 蓝按钮
	img := testimg.MustScreenshot(1000, 600, testimg.DarkBackground(),
		testimg.Button{X: 600, Y: 450, W: 80, H: 30, Fill: testimg.VSCodeBlue()},
	)

	d := NewColorDetector(VSCodeBlueBand(), ButtonSizeRange())
	got, err := d.Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect 失败: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("期望 1 个候选, 实际 %d: %+v", len(got), got)
	}
	s := got[0]
	if s.Method != MethodColor {
		t.Errorf("方法应为 color, 实际 %s", s.Method)
	}
	// 外接矩形允许一两个像素的轮廓误差
	if abs(s.X-600) > 2 || abs(s.Y-450) > 2 || abs(s.Width-80) > 3 || abs(s.Height-30) > 3 {
		t.Errorf("边界框偏离按钮位置: %+v", s)
	}
	// 纯色实心矩形的置信度应到达上限附近
	if s.Confidence < 0.55 || s.Confidence > 0.75 {
		t.Errorf("置信度超出预期区间: %v", s.Confidence)
	}
}

func TestColorDetectorIgnoresWrongSize(t *testing.T) {
	img := testimg.MustScreenshot(1000, 600, testimg.DarkBackground(),
		// 过小：低于最小尺寸
		testimg.Button{X: 100, Y: 100, W: 20, H: 10, Fill: testimg.VSCodeBlue()},
		// 过大：超过最大宽度
		testimg.Button{X: 200, Y: 300, W: 400, H: 50, Fill: testimg.VSCodeBlue()},
		// 宽高比失衡：接近正方形
		testimg.Button{X: 700, Y: 100, W: 50, H: 50, Fill: testimg.VSCodeBlue()},
	)

	d := NewColorDetector(VSCodeBlueBand(), ButtonSizeRange())
	got, err := d.Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect 失败: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("尺寸不符的区域不应产出候选, 实际 %+v", got)
	}
}

func TestColorDetectorEmptyBackground(t *testing.T) {
	img := testimg.MustScreenshot(1000, 600, testimg.DarkBackground())

	d := NewColorDetector(VSCodeBlueBand(), ButtonSizeRange())
	got, err := d.Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect 失败: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("无按钮背景应返回空结果, 实际 %+v", got)
	}
}

func TestColorDetectorDegenerateImage(t *testing.T) {
	d := NewColorDetector(VSCodeBlueBand(), ButtonSizeRange())
	got, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if err != nil {
		t.Fatalf("退化图像不应报错: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("退化图像应返回空结果, 实际 %+v", got)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestSizeRangeFits(t *testing.T) {
	r := ButtonSizeRange()

	tests := []struct {
		name string
		rect image.Rectangle
		area float64
		want bool
	}{
		{name: "typical button", rect: image.Rect(0, 0, 80, 30), area: 2400, want: true},
		{name: "too narrow", rect: image.Rect(0, 0, 30, 25), area: 750, want: false},
		{name: "too wide", rect: image.Rect(0, 0, 250, 40), area: 10000, want: false},
		{name: "too short", rect: image.Rect(0, 0, 80, 10), area: 800, want: false},
		{name: "too tall", rect: image.Rect(0, 0, 100, 80), area: 8000, want: false},
		{name: "square aspect", rect: image.Rect(0, 0, 50, 50), area: 2500, want: false},
		{name: "extreme aspect", rect: image.Rect(0, 0, 200, 25), area: 5000, want: false},
		{name: "area below minimum", rect: image.Rect(0, 0, 40, 20), area: 500, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.fits(tt.rect, tt.area); got != tt.want {
				t.Errorf("fits(%v, %v) = %v, 期望 %v", tt.rect, tt.area, got, tt.want)
			}
		})
	}
}

func TestSizeRangeAspectFit(t *testing.T) {
	r := SizeRange{MinAspect: 2, MaxAspect: 6}

	// 窗口中心 aspect=4 时拟合度为 1
	if got := r.aspectFit(image.Rect(0, 0, 80, 20)); got != 1 {
		t.Errorf("中心宽高比拟合度应为 1, 实际 %v", got)
	}
	// 窗口边缘拟合度为 0
	if got := r.aspectFit(image.Rect(0, 0, 40, 20)); got != 0 {
		t.Errorf("边缘宽高比拟合度应为 0, 实际 %v", got)
	}
	// 零高度不崩溃
	if got := r.aspectFit(image.Rect(0, 0, 40, 0)); got != 0 {
		t.Errorf("零高度拟合度应为 0, 实际 %v", got)
	}
}
