package detect

import (
	"context"
	"image"

	"github.com/zoeyai/continueclicker/pkg/ocr"
)

// OCRDetector 文字识别检测器
// 对整张截图跑一遍 OCR，为每个匹配目标标签的文字片段产出候选。
// 置信度直接取识别引擎的逐词置信度（归一到 [0,1]）。
type OCRDetector struct {
	recognizer ocr.TextRecognizer
	matcher    *LabelMatcher
	// minConfidence 低于该值的识别片段直接忽略
	minConfidence float64
}

// OCR 识别片段的合理尺寸范围，过滤整行文本和噪点
const (
	ocrMinWidth  = 20
	ocrMaxWidth  = 200
	ocrMinHeight = 15
	ocrMaxHeight = 60
)

// NewOCRDetector 创建文字识别检测器
func NewOCRDetector(recognizer ocr.TextRecognizer, matcher *LabelMatcher, minConfidence float64) *OCRDetector {
	if matcher == nil {
		matcher = NewLabelMatcher(nil, 0)
	}
	if minConfidence <= 0 {
		minConfidence = 0.3
	}
	return &OCRDetector{
		recognizer:    recognizer,
		matcher:       matcher,
		minConfidence: minConfidence,
	}
}

// Name 返回检测器名称
func (d *OCRDetector) Name() string { return "ocr" }

// Detect 识别截图中匹配目标标签的文字片段
func (d *OCRDetector) Detect(ctx context.Context, img image.Image) ([]Sighting, error) {
	if degenerateImage(img) || d.recognizer == nil {
		return nil, nil
	}

	results, err := d.recognizer.Recognize(img)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	var sightings []Sighting
	for _, r := range results {
		if ctx.Err() != nil {
			return sightings, ctx.Err()
		}

		conf := clamp01(r.Confidence)
		if conf < d.minConfidence {
			continue
		}
		if !d.matcher.Match(r.Text) {
			continue
		}

		w, h := r.Box.Dx(), r.Box.Dy()
		if w < ocrMinWidth || w > ocrMaxWidth || h < ocrMinHeight || h > ocrMaxHeight {
			continue
		}

		s := Sighting{
			X:          r.Box.Min.X,
			Y:          r.Box.Min.Y,
			Width:      w,
			Height:     h,
			Confidence: conf,
			Method:     MethodOCR,
			Text:       r.Text,
		}
		if !s.Valid(bounds.Dx(), bounds.Dy()) {
			continue
		}
		sightings = append(sightings, s)
	}

	return sightings, nil
}

// clamp01 将值截断到 [0,1]
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
