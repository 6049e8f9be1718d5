package i18n

import (
	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.English,
	language.Vietnamese,
}

var matcher = language.NewMatcher(supported)

var messages = map[language.Base]map[string]string{
	base(language.English): {
		"error.validation":            "Invalid input data",
		"error.unauthorized":          "Authentication is required",
		"error.forbidden":             "You do not have permission to access this resource",
		"error.login.bad_credentials": "Username or password is incorrect",
		"error.account.locked":        "Your account has been locked",
		"error.account.disabled":      "Your account has not been activated",
		"error.account.deleted":       "Your account has been deleted",
		"error.account.not_found":     "Account not found",
		"error.token.invalid":         "Token is invalid",
		"error.token.expired":         "Token has expired",
		"error.token.revoked":         "Token has been revoked",
		"error.store.unavailable":     "Service temporarily unavailable, please retry",
		"error.internal":              "An unexpected error occurred",
	},
	base(language.Vietnamese): {
		"error.validation":            "Dữ liệu đầu vào không hợp lệ",
		"error.unauthorized":          "Bạn cần đăng nhập để tiếp tục",
		"error.forbidden":             "Bạn không có quyền truy cập tài nguyên này",
		"error.login.bad_credentials": "Tên đăng nhập hoặc mật khẩu không chính xác",
		"error.account.locked":        "Tài khoản của bạn đã bị khóa",
		"error.account.disabled":      "Tài khoản của bạn chưa được kích hoạt",
		"error.account.deleted":       "Tài khoản của bạn đã bị xóa",
		"error.account.not_found":     "Không tìm thấy tài khoản",
		"error.token.invalid":         "Token không hợp lệ",
		"error.token.expired":         "Token đã hết hạn",
		"error.token.revoked":         "Token đã bị thu hồi",
		"error.store.unavailable":     "Dịch vụ tạm thời không khả dụng, vui lòng thử lại",
		"error.internal":              "Đã xảy ra lỗi không xác định",
	},
}

func base(t language.Tag) language.Base {
	b, _ := t.Base()
	return b
}

// Match picks the supported language closest to an Accept-Language header.
// English is the fallback.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

// Message returns the localized text for key, falling back to English and
// finally to the key itself.
func Message(tag language.Tag, key string) string {
	if m, ok := messages[base(tag)][key]; ok {
		return m
	}
	if m, ok := messages[base(language.English)][key]; ok {
		return m
	}
	return key
}
