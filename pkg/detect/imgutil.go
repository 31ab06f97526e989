package detect

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// imageToMat 将 image.Image 转换为 BGR 格式的 gocv.Mat
func imageToMat(img image.Image) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("图像转换失败: %w", err)
	}
	dst := gocv.NewMat()
	gocv.CvtColor(mat, &dst, gocv.ColorRGBToBGR)
	mat.Close()
	return dst, nil
}

// toGray 转换为灰度图
func toGray(src gocv.Mat) gocv.Mat {
	if src.Channels() == 1 {
		return src.Clone()
	}
	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	return dst
}

// cropMat 裁剪图像区域（自动收缩到图像边界内）
func cropMat(src gocv.Mat, rect image.Rectangle) gocv.Mat {
	bounded := rect.Intersect(image.Rect(0, 0, src.Cols(), src.Rows()))
	if bounded.Empty() {
		return gocv.NewMat()
	}
	region := src.Region(bounded)
	defer region.Close()
	return region.Clone()
}

// ColorBand HSV 颜色带（OpenCV 色相范围 0-180）
type ColorBand struct {
	HueMin int `json:"hue_min"`
	HueMax int `json:"hue_max"`
	SatMin int `json:"sat_min"`
	SatMax int `json:"sat_max"`
	ValMin int `json:"val_min"`
	ValMax int `json:"val_max"`
}

// VSCodeBlueBand VS Code 主题蓝 (#007ACC) 的颜色带
func VSCodeBlueBand() ColorBand {
	return ColorBand{
		HueMin: 95, HueMax: 125,
		SatMin: 80, SatMax: 255,
		ValMin: 80, ValMax: 255,
	}
}

// lower 返回颜色带下界标量
func (b ColorBand) lower() gocv.Scalar {
	return gocv.NewScalar(float64(b.HueMin), float64(b.SatMin), float64(b.ValMin), 0)
}

// upper 返回颜色带上界标量
func (b ColorBand) upper() gocv.Scalar {
	return gocv.NewScalar(float64(b.HueMax), float64(b.SatMax), float64(b.ValMax), 0)
}

// SizeRange 目标控件的尺寸窗口
type SizeRange struct {
	MinWidth  int     `json:"min_width"`
	MaxWidth  int     `json:"max_width"`
	MinHeight int     `json:"min_height"`
	MaxHeight int     `json:"max_height"`
	MinAspect float64 `json:"min_aspect"`
	MaxAspect float64 `json:"max_aspect"`
	MinArea   float64 `json:"min_area"`
}

// ButtonSizeRange 普通颜色检测使用的宽松尺寸窗口
func ButtonSizeRange() SizeRange {
	return SizeRange{
		MinWidth: 40, MaxWidth: 200,
		MinHeight: 20, MaxHeight: 60,
		MinAspect: 1.5, MaxAspect: 6.0,
		MinArea: 800,
	}
}

// TightButtonSizeRange 组合启发式检测使用的收紧尺寸窗口
// Continue 按钮的典型渲染尺寸约 60-80 x 25-35 像素。
func TightButtonSizeRange() SizeRange {
	return SizeRange{
		MinWidth: 50, MaxWidth: 100,
		MinHeight: 20, MaxHeight: 45,
		MinAspect: 1.5, MaxAspect: 4.0,
		MinArea: 800,
	}
}

// fits 判断矩形是否落在尺寸窗口内
func (r SizeRange) fits(rect image.Rectangle, area float64) bool {
	w, h := rect.Dx(), rect.Dy()
	if w < r.MinWidth || w > r.MaxWidth || h < r.MinHeight || h > r.MaxHeight {
		return false
	}
	if h <= 0 {
		return false
	}
	aspect := float64(w) / float64(h)
	if aspect < r.MinAspect || aspect > r.MaxAspect {
		return false
	}
	if area < r.MinArea {
		return false
	}
	return true
}

// aspectFit 尺寸/宽高比的拟合度 (0-1)，越接近窗口中心越高
func (r SizeRange) aspectFit(rect image.Rectangle) float64 {
	if rect.Dy() <= 0 || r.MaxAspect <= r.MinAspect {
		return 0
	}
	aspect := float64(rect.Dx()) / float64(rect.Dy())
	mid := (r.MinAspect + r.MaxAspect) / 2
	half := (r.MaxAspect - r.MinAspect) / 2
	dev := aspect - mid
	if dev < 0 {
		dev = -dev
	}
	fit := 1 - dev/half
	if fit < 0 {
		fit = 0
	}
	return fit
}
