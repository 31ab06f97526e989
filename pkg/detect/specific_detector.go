package detect

import (
	"context"
	"image"

	"gocv.io/x/gocv"

	"github.com/zoeyai/continueclicker/internal/logger"
	"github.com/zoeyai/continueclicker/pkg/ocr"
)

// 组合启发式检测的置信度档位
const (
	// specificVerifiedConfidence 文字验证通过的置信度
	specificVerifiedConfidence = 0.95
	// specificShapeOnlyConfidence 仅凭颜色+尺寸命中的置信度
	specificShapeOnlyConfidence = 0.80
)

// SpecificDetector 组合启发式检测器（高精度优先通道）
// 在一次扫描中组合三个窄条件：收紧的颜色带、收紧的尺寸窗口、
// 对候选区域的局部文字验证。误报率极低，
// 高置信度命中时融合阶段会短路跳过其余检测器。
type SpecificDetector struct {
	band       ColorBand
	size       SizeRange
	recognizer ocr.TextRecognizer
	matcher    *LabelMatcher
}

// NewSpecificDetector 创建组合启发式检测器
// recognizer 为 nil 时退化为颜色+尺寸检测，置信度降档。
func NewSpecificDetector(band ColorBand, size SizeRange, recognizer ocr.TextRecognizer, matcher *LabelMatcher) *SpecificDetector {
	if matcher == nil {
		matcher = NewLabelMatcher(nil, 0)
	}
	return &SpecificDetector{
		band:       band,
		size:       size,
		recognizer: recognizer,
		matcher:    matcher,
	}
}

// Name 返回检测器名称
func (d *SpecificDetector) Name() string { return "specific" }

// Detect 查找同时满足颜色、尺寸和文字条件的按钮
func (d *SpecificDetector) Detect(ctx context.Context, img image.Image) ([]Sighting, error) {
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

		s := Sighting{
			X:      rect.Min.X,
			Y:      rect.Min.Y,
			Width:  rect.Dx(),
			Height: rect.Dy(),
			Method: MethodSpecific,
		}

		if d.recognizer == nil {
			s.Confidence = specificShapeOnlyConfidence
			sightings = append(sightings, s)
			continue
		}

		text, ok := d.verifyText(mat, rect)
		switch {
		case ok:
			s.Confidence = specificVerifiedConfidence
			s.Text = text
		case text == "":
			// 区域内没识别出文字：保留为形状命中
			s.Confidence = specificShapeOnlyConfidence
		default:
			// 识别出了别的文字，是同色系的干扰按钮
			continue
		}
		sightings = append(sightings, s)
	}

	return sightings, nil
}

// verifyText 对候选区域做局部 OCR，返回识别文字及是否匹配目标标签
func (d *SpecificDetector) verifyText(mat gocv.Mat, rect image.Rectangle) (string, bool) {
	crop := cropMat(mat, rect)
	defer crop.Close()
	if crop.Empty() {
		return "", false
	}

	cropImg, err := crop.ToImage()
	if err != nil {
		logger.Debug("候选区域转换失败: %v", err)
		return "", false
	}

	results, err := d.recognizer.Recognize(cropImg)
	if err != nil {
		logger.Debug("候选区域 OCR 失败: %v", err)
		return "", false
	}

	for _, r := range results {
		if d.matcher.Match(r.Text) {
			return r.Text, true
		}
	}
	if len(results) > 0 {
		return results[0].Text, false
	}
	return "", false
}
