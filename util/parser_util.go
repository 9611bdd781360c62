package util

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pansearch/model"
)

// 背景图样式中的图片地址：background-image:url('...')
var backgroundImagePattern = regexp.MustCompile(`url\(['"]?([^'")]+)['"]?\)`)

// ParseSearchResults 解析频道搜索结果页面，只保留包含网盘链接的消息
func ParseSearchResults(html string, channel string) ([]model.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var results []model.SearchResult

	doc.Find(".tgme_widget_message_wrap").Each(func(i int, s *goquery.Selection) {
		messageDiv := s.Find(".tgme_widget_message")

		// data-post 形如 channel/123
		dataPost, exists := messageDiv.Attr("data-post")
		if !exists {
			return
		}
		parts := strings.Split(dataPost, "/")
		if len(parts) != 2 {
			return
		}
		messageID := parts[1]

		var datetime time.Time
		if timeStr, ok := messageDiv.Find(".tgme_widget_message_date time").Attr("datetime"); ok {
			if parsed, err := time.Parse(time.RFC3339, timeStr); err == nil {
				datetime = parsed
			}
		}

		messageTextElem := messageDiv.Find(".tgme_widget_message_text")
		messageHTML, _ := messageTextElem.Html()
		messageText := messageTextElem.Text()

		links := extractLinks(messageTextElem, messageText)
		if len(links) == 0 {
			return
		}

		var tags []string
		messageTextElem.Find("a[href^='?q=%23']").Each(func(i int, a *goquery.Selection) {
			tag := a.Text()
			if strings.HasPrefix(tag, "#") {
				tags = append(tags, tag[1:])
			}
		})

		results = append(results, model.SearchResult{
			MessageID: messageID,
			UniqueID:  channel + "_" + messageID,
			Channel:   channel,
			Datetime:  datetime,
			Title:     extractTitle(messageHTML, messageText),
			Content:   messageText,
			Links:     links,
			Tags:      tags,
			Images:    extractImages(messageDiv),
		})
	})

	return results, nil
}

// extractLinks 合并 a 标签与正文中的链接，按 URL 去重
func extractLinks(textElem *goquery.Selection, text string) []model.Link {
	var links []model.Link
	seen := make(map[string]bool)

	add := func(href string) {
		if href == "" || seen[href] || !IsSupportedLink(href) {
			return
		}
		seen[href] = true
		links = append(links, model.Link{
			Type:     GetLinkType(href),
			URL:      href,
			Password: ExtractPassword(text, href),
		})
	}

	textElem.Find("a").Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		add(strings.TrimSpace(href))
	})
	for _, link := range ExtractNetDiskLinks(text) {
		add(link)
	}

	return links
}

// extractImages 提取消息中的图片
func extractImages(messageDiv *goquery.Selection) []string {
	var images []string
	messageDiv.Find(".tgme_widget_message_photo_wrap").Each(func(i int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		if m := backgroundImagePattern.FindStringSubmatch(style); len(m) > 1 {
			images = append(images, m[1])
		}
	})
	return images
}

// extractTitle 从消息HTML和文本内容中提取标题
func extractTitle(htmlContent string, textContent string) string {
	firstLine := ""

	if brIndex := strings.Index(htmlContent, "<br"); brIndex > 0 {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + htmlContent[:brIndex] + "</div>"))
		if err == nil {
			firstLine = strings.TrimSpace(doc.Text())
		}
	}

	if firstLine == "" {
		lines := strings.Split(textContent, "\n")
		firstLine = strings.TrimSpace(lines[0])
	}

	// 第一行以"名称："开头时取冒号后的内容
	if strings.HasPrefix(firstLine, "名称：") {
		return strings.TrimSpace(strings.TrimPrefix(firstLine, "名称："))
	}
	return firstLine
}
