package detect

import (
	"context"
	"image"
	"strings"
	"unicode"
)

// Detector 检测器统一接口
//
// 约定：
//   - 对同一张截图只读访问，可与其他检测器并发调用
//   - 对畸形/退化图像（如 1x1）返回空结果而不是报错
//   - 内部失败通过 error 返回，由调用方记录日志，不中断其他检测器
type Detector interface {
	// Name 返回检测器名称（用于日志与统计）
	Name() string
	// Detect 在截图中查找目标控件，返回零个或多个候选命中
	Detect(ctx context.Context, img image.Image) ([]Sighting, error)
}

// LabelMatcher 目标文字匹配器
// 负责判断 OCR 识别出的文字片段是否为 Continue 按钮标签，
// 允许大小写差异、首尾空白和轻微的 OCR 噪声。
type LabelMatcher struct {
	variants []string
	excludes []string
	// minSimilarity 模糊匹配的最低相似度阈值
	minSimilarity float64
}

// defaultLabelVariants 默认按钮文字变体
var defaultLabelVariants = []string{
	"continue",
	"continue >",
	"continue...",
	"generate more",
	"keep going",
}

// defaultExcludeWords 明确不是 Continue 按钮的高频词
// 搜索框、菜单项等界面元素的文字命中这些词时直接排除
var defaultExcludeWords = []string{
	"search", "find", "filter", "settings", "preferences",
	"terminal", "console", "debug", "extensions", "explorer",
	"cancel", "close", "stop", "workspace", "output",
}

// NewLabelMatcher 创建文字匹配器
// variants 为空时使用默认的 Continue 变体列表
func NewLabelMatcher(variants []string, minSimilarity float64) *LabelMatcher {
	if len(variants) == 0 {
		variants = defaultLabelVariants
	}
	normalized := make([]string, 0, len(variants))
	for _, v := range variants {
		normalized = append(normalized, normalizeLabel(v))
	}
	if minSimilarity <= 0 || minSimilarity > 1 {
		minSimilarity = 0.8
	}
	return &LabelMatcher{
		variants:      normalized,
		excludes:      defaultExcludeWords,
		minSimilarity: minSimilarity,
	}
}

// Match 判断文字是否匹配目标标签
func (m *LabelMatcher) Match(text string) bool {
	t := normalizeLabel(text)
	if t == "" {
		return false
	}

	// 排除词优先：命中排除词的一定不是目标按钮
	for _, ex := range m.excludes {
		if strings.Contains(t, ex) {
			return false
		}
	}

	for _, v := range m.variants {
		if strings.Contains(t, v) || strings.Contains(v, t) {
			return true
		}
		// 容忍轻微 OCR 噪声（如 "contlnue"、"continu"）
		if similarity(t, v) >= m.minSimilarity {
			return true
		}
	}
	return false
}

// normalizeLabel 归一化文字：小写、去首尾空白、压缩连续空白
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteRune(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// similarity 基于编辑距离的相似度 (0-1)
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	d := levenshtein(a, b)
	maxLen := max(la, lb)
	return 1 - float64(d)/float64(maxLen)
}

// levenshtein 计算编辑距离（单行滚动数组）
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// degenerateImage 判断图像是否退化（过小，无法包含按钮）
func degenerateImage(img image.Image) bool {
	if img == nil {
		return true
	}
	b := img.Bounds()
	return b.Dx() < 8 || b.Dy() < 8
}
