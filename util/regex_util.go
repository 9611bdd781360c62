package util

import (
	"regexp"
	"strings"
)

// AllPanLinksPattern 通用网盘链接匹配正则表达式
var AllPanLinksPattern = regexp.MustCompile(`(?i)(?:magnet:\?xt=urn:btih:[a-zA-Z0-9]+)|(?:ed2k://\|file\|[^|]+\|\d+\|[A-Fa-f0-9]+\|/?)|(?:https?://(?:[\w.-]+\.)?(?:pan\.baidu\.com|pan\.quark\.cn|(?:www\.)?(?:alipan|aliyundrive)\.com|drive\.uc\.cn|cloud\.189\.cn|caiyun\.139\.com|(?:www\.)?123(?:684|685|912|pan|592)\.(?:com|cn)|115\.com|115cdn\.com|anxia\.com|pan\.xunlei\.com|mypikpak\.com)(?:/[A-Za-z0-9\-._~:/?#@!$&*+,;=%]*)?)`)

// PasswordPattern 正文中的提取码
var PasswordPattern = regexp.MustCompile(`(?i)(?:(?:提取|访问|提取密|密)码|pwd)\s*[：:]\s*([a-zA-Z0-9]{4,})`)

// UrlPasswordPattern URL参数中的提取码
var UrlPasswordPattern = regexp.MustCompile(`(?i)[?&]pwd=([a-zA-Z0-9]{4,})`)

// GetLinkType 获取链接类型
func GetLinkType(url string) string {
	url = strings.ToLower(url)

	switch {
	case strings.HasPrefix(url, "ed2k:"):
		return "ed2k"
	case strings.HasPrefix(url, "magnet:"):
		return "magnet"
	case strings.Contains(url, "pan.baidu.com"):
		return "baidu"
	case strings.Contains(url, "pan.quark.cn"):
		return "quark"
	case strings.Contains(url, "alipan.com"), strings.Contains(url, "aliyundrive.com"):
		return "aliyun"
	case strings.Contains(url, "cloud.189.cn"):
		return "tianyi"
	case strings.Contains(url, "drive.uc.cn"):
		return "uc"
	case strings.Contains(url, "caiyun.139.com"):
		return "mobile"
	case strings.Contains(url, "115.com"), strings.Contains(url, "115cdn.com"), strings.Contains(url, "anxia.com"):
		return "115"
	case strings.Contains(url, "mypikpak.com"):
		return "pikpak"
	case strings.Contains(url, "pan.xunlei.com"):
		return "xunlei"
	}

	// 123网盘有多个域名
	for _, domain := range []string{"123684.com", "123685.com", "123912.com", "123pan.com", "123pan.cn", "123592.com"} {
		if strings.Contains(url, domain) {
			return "123"
		}
	}

	return "others"
}

// IsSupportedLink 是否为支持的网盘/磁力链接
func IsSupportedLink(url string) bool {
	return AllPanLinksPattern.MatchString(url)
}

// ExtractNetDiskLinks 从文本中提取所有网盘链接（保持出现顺序、去重）
func ExtractNetDiskLinks(text string) []string {
	matches := AllPanLinksPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;，。；")
		if seen[m] {
			continue
		}
		seen[m] = true
		links = append(links, m)
	}
	return links
}

// ExtractPassword 提取链接密码：先看URL参数，再看正文
func ExtractPassword(content, url string) string {
	if matches := UrlPasswordPattern.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	if matches := PasswordPattern.FindStringSubmatch(content); len(matches) > 1 {
		return matches[1]
	}

	return ""
}
