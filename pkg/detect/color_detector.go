package detect

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ColorDetector 颜色特征检测器
// 在 HSV 空间内扫描落在目标颜色带内的连通区域，
// 再按按钮的典型尺寸与宽高比过滤。不做任何文字验证，
// 置信度中等，主要作为 OCR/模板检测的补充信号。
type ColorDetector struct {
	band ColorBand
	size SizeRange
}

// NewColorDetector 创建颜色检测器
func NewColorDetector(band ColorBand, size SizeRange) *ColorDetector {
	return &ColorDetector{band: band, size: size}
}

// Name 返回检测器名称
func (d *ColorDetector) Name() string { return "color" }

// Detect 扫描颜色带内的按钮形连通区域
func (d *ColorDetector) Detect(ctx context.Context, img image.Image) ([]Sighting, error) {
	if degenerateImage(img) {
		return nil, nil
	}

	mat, err := imageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	rects, areas, err := maskedRegions(mat, d.band)
	if err != nil {
		return nil, err
	}

	var sightings []Sighting
	for i, rect := range rects {
		if ctx.Err() != nil {
			return sightings, ctx.Err()
		}
		if !d.size.fits(rect, areas[i]) {
			continue
		}

		sightings = append(sightings, Sighting{
			X:          rect.Min.X,
			Y:          rect.Min.Y,
			Width:      rect.Dx(),
			Height:     rect.Dy(),
			Confidence: d.confidence(rect, areas[i]),
			Method:     MethodColor,
		})
	}

	return sightings, nil
}

// confidence 由颜色填充纯度和尺寸拟合度推导置信度
// 纯色实心按钮的轮廓面积接近其外接矩形面积。
func (d *ColorDetector) confidence(rect image.Rectangle, area float64) float64 {
	boxArea := float64(rect.Dx() * rect.Dy())
	purity := 0.0
	if boxArea > 0 {
		purity = area / boxArea
		if purity > 1 {
			purity = 1
		}
	}

	conf := 0.30 + 0.30*purity + 0.15*d.size.aspectFit(rect)
	if conf > 0.75 {
		conf = 0.75
	}
	return conf
}

// maskedRegions 提取颜色带掩码的外部轮廓，返回外接矩形及轮廓面积
func maskedRegions(mat gocv.Mat, band ColorBand) ([]image.Rectangle, []float64, error) {
	if mat.Empty() {
		return nil, nil, fmt.Errorf("空图像")
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(mat, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv, band.lower(), band.upper(), &mask)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var rects []image.Rectangle
	var areas []float64
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		rects = append(rects, gocv.BoundingRect(c))
		areas = append(areas, gocv.ContourArea(c))
	}
	return rects, areas, nil
}
