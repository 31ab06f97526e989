// Package detect 提供 Continue 按钮的多路检测与融合排序功能
//
// 检测器 (Detector) 对同一张窗口截图独立产生候选命中 (Sighting)，
// 融合阶段 (Fuse) 负责去重、区域过滤和置信度排序，输出最终候选列表。
package detect

// Method 检测方法标记（位掩码，融合后可组合）
type Method uint8

const (
	// MethodOCR 文字识别检测
	MethodOCR Method = 1 << iota
	// MethodColor 颜色特征检测
	MethodColor
	// MethodTemplate 模板匹配检测
	MethodTemplate
	// MethodSpecific 组合启发式检测（高精度优先通道）
	MethodSpecific
)

// methodNames 方法名称表（按位序）
var methodNames = []struct {
	m    Method
	name string
}{
	{MethodOCR, "ocr"},
	{MethodColor, "color"},
	{MethodTemplate, "template"},
	{MethodSpecific, "specific"},
}

// String 返回方法标记的字符串表示，组合标记以 "+" 连接
func (m Method) String() string {
	if m == 0 {
		return "none"
	}

	s := ""
	for _, entry := range methodNames {
		if m&entry.m == 0 {
			continue
		}
		if s != "" {
			s += "+"
		}
		s += entry.name
	}
	return s
}

// Has 判断是否包含指定方法
func (m Method) Has(other Method) bool {
	return m&other != 0
}

// Sighting 单次候选命中
// 由某一个检测器针对一张截图产生，创建后不可变；
// 坐标相对于截图原点（窗口左上角）。
type Sighting struct {
	// X, Y 左上角坐标（相对截图）
	X int `json:"x"`
	Y int `json:"y"`
	// Width, Height 候选区域尺寸
	Width  int `json:"width"`
	Height int `json:"height"`
	// Confidence 置信度 (0-1)
	Confidence float64 `json:"confidence"`
	// Method 检测方法标记
	Method Method `json:"method"`
	// Text 识别出的文字（可为空）
	Text string `json:"text,omitempty"`
}

// CenterX 返回中心点 X 坐标
func (s Sighting) CenterX() int {
	return s.X + s.Width/2
}

// CenterY 返回中心点 Y 坐标
func (s Sighting) CenterY() int {
	return s.Y + s.Height/2
}

// Valid 校验候选是否合法：尺寸为正、置信度在 [0,1]、
// 边界框完全落在源图像范围内
func (s Sighting) Valid(imgWidth, imgHeight int) bool {
	if s.Width <= 0 || s.Height <= 0 {
		return false
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return false
	}
	if s.X < 0 || s.Y < 0 {
		return false
	}
	if s.X+s.Width > imgWidth || s.Y+s.Height > imgHeight {
		return false
	}
	return true
}

// Area 返回边界框面积
func (s Sighting) Area() int {
	return s.Width * s.Height
}

// IoU 计算两个候选边界框的交并比 (intersection-over-union)
func IoU(a, b Sighting) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	inter := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
