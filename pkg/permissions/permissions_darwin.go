//go:build darwin

// Package permissions 检查运行所需的系统权限
// 截屏需要屏幕录制权限，点击注入需要辅助功能权限（macOS 专用）。
package permissions

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework ApplicationServices -framework CoreGraphics
#import <Cocoa/Cocoa.h>
#import <ApplicationServices/ApplicationServices.h>
#import <CoreGraphics/CoreGraphics.h>

int checkAccessibilityPermission() {
    NSDictionary *options = @{(__bridge NSString *)kAXTrustedCheckOptionPrompt: @NO};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}

int requestAccessibilityPermission() {
    NSDictionary *options = @{(__bridge NSString *)kAXTrustedCheckOptionPrompt: @YES};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}

int checkScreenRecordingPermission() {
    if (@available(macOS 10.15, *)) {
        CFArrayRef windowList = CGWindowListCopyWindowInfo(
            kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements,
            kCGNullWindowID
        );

        if (windowList == NULL) {
            return 0;
        }

        CFIndex count = CFArrayGetCount(windowList);
        int hasNames = 0;

        for (CFIndex i = 0; i < count; i++) {
            CFDictionaryRef window = (CFDictionaryRef)CFArrayGetValueAtIndex(windowList, i);
            CFStringRef name = (CFStringRef)CFDictionaryGetValue(window, kCGWindowName);
            if (name != NULL && CFStringGetLength(name) > 0) {
                hasNames = 1;
                break;
            }
        }

        CFRelease(windowList);
        return (count == 0 || hasNames) ? 1 : 0;
    }
    return 1;
}

void openAccessibilityPreferences() {
    NSString *urlString = @"x-apple.systempreferences:com.apple.preference.security?Privacy_Accessibility";
    [[NSWorkspace sharedWorkspace] openURL:[NSURL URLWithString:urlString]];
}

void openScreenRecordingPreferences() {
    NSString *urlString = @"x-apple.systempreferences:com.apple.preference.security?Privacy_ScreenCapture";
    [[NSWorkspace sharedWorkspace] openURL:[NSURL URLWithString:urlString]];
}
*/
import "C"

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

// Check 检查所需权限（不触发系统弹窗）
func Check() Status {
	return Status{
		Accessibility:   C.checkAccessibilityPermission() == 1,
		ScreenRecording: C.checkScreenRecordingPermission() == 1,
	}
}

// RequestAccessibility 请求辅助功能权限（触发系统弹窗）
func RequestAccessibility() bool {
	return C.requestAccessibilityPermission() == 1
}

// OpenAccessibilitySettings 打开辅助功能设置页面
func OpenAccessibilitySettings() {
	C.openAccessibilityPreferences()
}

// OpenScreenRecordingSettings 打开屏幕录制设置页面
func OpenScreenRecordingSettings() {
	C.openScreenRecordingPreferences()
}

// Instructions 生成缺失权限的授权指引，全部已授予时返回空串
func Instructions(s Status) string {
	if s.AllGranted() {
		return ""
	}

	msg := "缺少以下系统权限，引擎无法正常工作:\n\n"

	if !s.ScreenRecording {
		msg += "1. 屏幕录制权限 (用于窗口截屏与按钮检测)\n"
		msg += "   系统设置 > 隐私与安全性 > 屏幕录制\n\n"
	}

	if !s.Accessibility {
		msg += "2. 辅助功能权限 (用于点击注入)\n"
		msg += "   系统设置 > 隐私与安全性 > 辅助功能\n\n"
	}

	msg += "授权后需要重启本程序才能生效。"

	return msg
}
