package detect

import (
	"math"
	"sort"
)

// FuseConfig 融合阶段配置
type FuseConfig struct {
	// ShortCircuitThreshold 组合启发式检测器的短路置信度阈值
	// 纯 specific 候选置信度达到该值且通过区域过滤时，直接作为唯一结果返回
	ShortCircuitThreshold float64 `json:"short_circuit_threshold"`
	// OverlapThreshold 去重的 IoU 阈值，重叠超过该值的候选合并为一个
	OverlapThreshold float64 `json:"overlap_threshold"`
	// TextBoost 文字确认候选的排序加成（只影响排序，不修改存储的置信度）
	TextBoost float64 `json:"text_boost"`
	// TopExcludeFrac 顶部排除区比例（菜单栏/搜索栏区域）
	TopExcludeFrac float64 `json:"top_exclude_frac"`
	// LeftExcludeFrac 左侧排除区比例（编辑器主区域）
	LeftExcludeFrac float64 `json:"left_exclude_frac"`
	// BottomExcludePx 底部排除高度（状态栏），单位像素
	BottomExcludePx int `json:"bottom_exclude_px"`
}

// DefaultFuseConfig 默认融合配置
func DefaultFuseConfig() FuseConfig {
	return FuseConfig{
		ShortCircuitThreshold: 0.90,
		OverlapThreshold:      0.3,
		TextBoost:             0.05,
		TopExcludeFrac:        0.30,
		LeftExcludeFrac:       0.40,
		BottomExcludePx:       30,
	}
}

// Fuser 候选融合器
// 将多个检测器的原始命中合并为一个按置信度排序的候选列表。
type Fuser struct {
	cfg     FuseConfig
	matcher *LabelMatcher
}

// NewFuser 创建融合器
func NewFuser(cfg FuseConfig, matcher *LabelMatcher) *Fuser {
	if matcher == nil {
		matcher = NewLabelMatcher(nil, 0)
	}
	return &Fuser{cfg: cfg, matcher: matcher}
}

// Fuse 融合所有检测器的候选命中，返回按优先级排序的结果
//
// 流程：
//  1. 丢弃越界/非法候选
//  2. 短路通道：纯 specific 候选置信度 >= 阈值且位于允许区域内时直接返回
//  3. IoU 去重，保留组内最高置信度，方法标记取并集
//  4. 区域过滤：排除顶部菜单带、左侧编辑器区、底部状态栏
//  5. 按（加成后的）置信度降序排序
//
// 空输入返回空输出；区域过滤淘汰全部候选属于正常的"未发现目标"结果。
func (f *Fuser) Fuse(sightings []Sighting, imgWidth, imgHeight int) []Sighting {
	if len(sightings) == 0 || imgWidth <= 0 || imgHeight <= 0 {
		return nil
	}

	valid := make([]Sighting, 0, len(sightings))
	for _, s := range sightings {
		if s.Valid(imgWidth, imgHeight) {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	// 短路通道：specific 检测器单独产出的高置信度命中
	// 仍需通过区域过滤（策略决定，见 DESIGN.md）
	if best := f.shortCircuit(valid, imgWidth, imgHeight); best != nil {
		return []Sighting{*best}
	}

	merged := f.deduplicate(valid)

	filtered := merged[:0]
	for _, s := range merged {
		if f.inAllowedRegion(s, imgWidth, imgHeight) {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	f.rank(filtered, imgWidth, imgHeight)
	return filtered
}

// shortCircuit 查找可短路返回的 specific 候选
// 要求方法标记恰好为 MethodSpecific（未与其他方法合并），
// 多个命中时取置信度最高者。
func (f *Fuser) shortCircuit(sightings []Sighting, imgWidth, imgHeight int) *Sighting {
	var best *Sighting
	for i := range sightings {
		s := &sightings[i]
		if s.Method != MethodSpecific {
			continue
		}
		if s.Confidence < f.cfg.ShortCircuitThreshold {
			continue
		}
		if !f.inAllowedRegion(*s, imgWidth, imgHeight) {
			continue
		}
		if best == nil || s.Confidence > best.Confidence {
			best = s
		}
	}
	return best
}

// deduplicate IoU 去重
// 按置信度降序扫描，与已保留候选重叠超过阈值的合并进该候选：
// 保留的几何与置信度来自组内最高置信度成员，方法标记取并集，
// 文字取组内第一个非空值。
func (f *Fuser) deduplicate(sightings []Sighting) []Sighting {
	sorted := make([]Sighting, len(sightings))
	copy(sorted, sightings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var kept []Sighting
	for _, s := range sorted {
		dup := false
		for k := range kept {
			if IoU(s, kept[k]) >= f.cfg.OverlapThreshold {
				kept[k].Method |= s.Method
				if kept[k].Text == "" {
					kept[k].Text = s.Text
				}
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, s)
		}
	}
	return kept
}

// inAllowedRegion 判断候选中心是否位于允许区域内
// 允许区域 = 右侧面板的下半带：排除顶部 TopExcludeFrac、
// 左侧 LeftExcludeFrac 以及底部 BottomExcludePx 状态栏。
func (f *Fuser) inAllowedRegion(s Sighting, imgWidth, imgHeight int) bool {
	cx, cy := s.CenterX(), s.CenterY()

	if float64(cy) <= f.cfg.TopExcludeFrac*float64(imgHeight) {
		return false
	}
	if float64(cx) <= f.cfg.LeftExcludeFrac*float64(imgWidth) {
		return false
	}
	if cy >= imgHeight-f.cfg.BottomExcludePx {
		return false
	}
	return true
}

// rank 排序：加成后置信度降序；
// 并列时文字识别类候选优先，再按距允许区域右下角（目标按钮的
// 先验常驻位置）的距离升序。
func (f *Fuser) rank(sightings []Sighting, imgWidth, imgHeight int) {
	cornerX := float64(imgWidth)
	cornerY := float64(imgHeight - f.cfg.BottomExcludePx)

	sort.SliceStable(sightings, func(i, j int) bool {
		si, sj := f.score(sightings[i]), f.score(sightings[j])
		if si != sj {
			return si > sj
		}

		ti, tj := sightings[i].Method.Has(MethodOCR), sightings[j].Method.Has(MethodOCR)
		if ti != tj {
			return ti
		}

		di := cornerDist(sightings[i], cornerX, cornerY)
		dj := cornerDist(sightings[j], cornerX, cornerY)
		return di < dj
	})
}

// score 计算排序用的有效置信度
// 文字确认的候选获得加成；存储的 Confidence 字段保持不变，
// 保证 Fuse 对自身输出幂等。
func (f *Fuser) score(s Sighting) float64 {
	score := s.Confidence
	if s.Text != "" && f.matcher.Match(s.Text) {
		score += f.cfg.TextBoost
	}
	if score > 1 {
		score = 1
	}
	return score
}

// cornerDist 候选中心到指定角点的欧氏距离
func cornerDist(s Sighting, x, y float64) float64 {
	dx := float64(s.CenterX()) - x
	dy := float64(s.CenterY()) - y
	return math.Hypot(dx, dy)
}
