package detect

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/zoeyai/continueclicker/internal/logger"
)

// maxTemplateResults 单个模板的最大匹配结果数
const maxTemplateResults = 10

// templateScales 多尺度匹配的缩放比例
// 覆盖常见的 DPI 缩放档位（100%/125%/80%）。
var templateScales = []float64{1.0, 0.8, 1.25}

// TemplateDetector 模板匹配检测器
// 将已知按钮外观的参考位图在截图上做多尺度归一化互相关，
// 相关度超过阈值处产出候选，置信度即相关度得分。
type TemplateDetector struct {
	templates map[string]gocv.Mat
	threshold float64
}

// NewTemplateDetector 创建模板匹配检测器，加载目录下的所有 PNG 模板
// 目录不存在或为空时返回无模板的检测器（Detect 返回空结果）。
func NewTemplateDetector(templateDir string, threshold float64) *TemplateDetector {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}

	d := &TemplateDetector{
		templates: make(map[string]gocv.Mat),
		threshold: threshold,
	}

	entries, err := os.ReadDir(templateDir)
	if err != nil {
		logger.Debug("模板目录不可用: %v", err)
		return d
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		path := filepath.Join(templateDir, entry.Name())
		mat := gocv.IMRead(path, gocv.IMReadColor)
		if mat.Empty() {
			logger.Warn("无法读取模板: %s", path)
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".png")
		d.templates[name] = mat
	}

	logger.Info("已加载 %d 个按钮模板", len(d.templates))
	return d
}

// Name 返回检测器名称
func (d *TemplateDetector) Name() string { return "template" }

// Close 释放模板资源
func (d *TemplateDetector) Close() error {
	for name, mat := range d.templates {
		mat.Close()
		delete(d.templates, name)
	}
	return nil
}

// TemplateCount 返回已加载的模板数量
func (d *TemplateDetector) TemplateCount() int {
	return len(d.templates)
}

// Detect 在截图上做多尺度模板匹配
func (d *TemplateDetector) Detect(ctx context.Context, img image.Image) ([]Sighting, error) {
	if degenerateImage(img) || len(d.templates) == 0 {
		return nil, nil
	}

	mat, err := imageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	srcGray := toGray(mat)
	defer srcGray.Close()

	var sightings []Sighting
	for name, tmpl := range d.templates {
		for _, scale := range templateScales {
			if ctx.Err() != nil {
				return sightings, ctx.Err()
			}

			matches, err := d.matchAtScale(srcGray, tmpl, scale)
			if err != nil {
				logger.Debug("模板 %s 在比例 %.2f 匹配失败: %v", name, scale, err)
				continue
			}
			sightings = append(sightings, matches...)
		}
	}

	return sightings, nil
}

// matchAtScale 在指定缩放比例下匹配单个模板
func (d *TemplateDetector) matchAtScale(srcGray, tmpl gocv.Mat, scale float64) ([]Sighting, error) {
	w := int(float64(tmpl.Cols()) * scale)
	h := int(float64(tmpl.Rows()) * scale)
	if w < 8 || h < 8 {
		return nil, nil
	}
	if w > srcGray.Cols() || h > srcGray.Rows() {
		return nil, fmt.Errorf("模板尺寸 %dx%d 超过源图像", w, h)
	}

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(tmpl, &scaled, image.Point{X: w, Y: h}, 0, 0, gocv.InterpolationLinear)

	tmplGray := toGray(scaled)
	defer tmplGray.Close()

	result := gocv.NewMat()
	defer result.Close()
	gocv.MatchTemplate(srcGray, tmplGray, &result, gocv.TmCcoeffNormed, gocv.NewMat())

	var sightings []Sighting
	for len(sightings) < maxTemplateResults {
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
		if float64(maxVal) < d.threshold {
			break
		}

		sightings = append(sightings, Sighting{
			X:          maxLoc.X,
			Y:          maxLoc.Y,
			Width:      w,
			Height:     h,
			Confidence: clamp01(float64(maxVal)),
			Method:     MethodTemplate,
		})

		// 屏蔽已匹配区域，继续找下一个峰值
		gocv.Rectangle(&result,
			image.Rect(maxLoc.X-w/2, maxLoc.Y-h/2, maxLoc.X+w/2, maxLoc.Y+h/2),
			color.RGBA{0, 0, 0, 255}, -1)
	}

	return sightings, nil
}
