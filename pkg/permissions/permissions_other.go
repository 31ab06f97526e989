//go:build !darwin

// Package permissions 检查运行所需的系统权限
// 非 macOS 系统不需要单独授权，所有检查恒为已授予。
package permissions

// Status 权限状态
type Status struct {
	// Accessibility 辅助功能权限（点击注入需要）
	Accessibility bool `json:"accessibility"`
	// ScreenRecording 屏幕录制权限（窗口截屏需要）
	ScreenRecording bool `json:"screen_recording"`
}

// AllGranted 是否全部权限已授予
func (s Status) AllGranted() bool {
	return s.Accessibility && s.ScreenRecording
}

// Check 检查所需权限
func Check() Status {
	return Status{Accessibility: true, ScreenRecording: true}
}

// RequestAccessibility 请求辅助功能权限
func RequestAccessibility() bool { return true }

// OpenAccessibilitySettings 打开辅助功能设置页面
func OpenAccessibilitySettings() {}

// OpenScreenRecordingSettings 打开屏幕录制设置页面
func OpenScreenRecordingSettings() {}

// Instructions 生成缺失权限的授权指引
func Instructions(s Status) string { return "" }
