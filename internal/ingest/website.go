package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"

	"rfp-launchpad-go/pkg/log"
)

const (
	// 正文少于该字符数的页面视为薄页，跳过不入库
	minPageChars = 200
	// sitemap 给出的 URL 少于该数量时回退到 BFS 爬取
	sitemapMinURLs = 5
	// sitemap 索引递归展开时最多抓取的 sitemap 文件数
	maxSitemapFetches = 50
	// 单个页面响应体的读取上限
	maxPageBytes = 5 << 20

	crawlerUserAgent = "rfp-launchpad-crawler/1.0"
)

// 爬取时按扩展名跳过的非 HTML 资源。
var skipExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".zip": true, ".gz": true, ".tar": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".css": true, ".js": true, ".json": true,
	".xml": true, ".rss": true, ".mp3": true, ".mp4": true, ".avi": true,
	".mov": true, ".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
}

// Page 是爬取并完成正文提取后的一个页面。
type Page struct {
	URL   string
	Title string
	Text  string
}

// Crawler 负责站点的 URL 发现与页面抓取。
// 先尝试 sitemap（递归展开索引），URL 太少时回退到从首页开始的 BFS 爬取。
type Crawler struct {
	client *http.Client
}

// NewCrawler 创建一个新的 Crawler 实例。
func NewCrawler() *Crawler {
	return &Crawler{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Crawl 抓取 domain 下的页面，对每个有效页面调用 handler。
// 约束：同一注册域名、最多 maxPages 个页面、全站 maxTotalChars 字符预算
// （超预算时截断最后一页并提前结束）。单页抓取失败只记日志并跳过。
func (c *Crawler) Crawl(ctx context.Context, domain string, maxPages, maxTotalChars int, handler func(Page) error) error {
	rootURL := normalizeRoot(domain)
	root, err := url.Parse(rootURL)
	if err != nil {
		return fmt.Errorf("无效的站点地址 %q: %w", domain, err)
	}

	baseDomain := registrableDomain(root.Hostname())

	// URL 发现：sitemap 优先，太少则回退 BFS
	seeds := c.discoverSitemapURLs(ctx, rootURL)
	useBFS := len(seeds) < sitemapMinURLs
	if useBFS {
		log.Infof("[Crawler] sitemap 发现 %d 个URL, 不足 %d, 回退到 BFS 爬取", len(seeds), sitemapMinURLs)
		seeds = []string{rootURL}
	} else {
		log.Infof("[Crawler] 通过 sitemap 发现 %d 个URL", len(seeds))
	}

	visited := make(map[string]bool)
	queue := seeds
	totalChars := 0
	pagesDone := 0

	for len(queue) > 0 && pagesDone < maxPages {
		rawURL := queue[0]
		queue = queue[1:]

		norm, ok := normalizePageURL(rawURL, baseDomain)
		if !ok || visited[norm] {
			continue
		}
		visited[norm] = true

		doc, finalURL, err := c.fetchHTML(ctx, norm)
		if err != nil {
			log.Warnf("[Crawler] 抓取页面失败, 跳过: %s, Error: %v", norm, err)
			continue
		}

		// BFS 模式下边抓边扩展队列
		if useBFS {
			for _, link := range ExtractLinks(doc, finalURL) {
				if n, ok := normalizePageURL(link, baseDomain); ok && !visited[n] {
					queue = append(queue, n)
				}
			}
		}

		title := ExtractTitle(doc)
		text := ExtractMainText(doc)
		if utf8.RuneCountInString(text) < minPageChars {
			log.Infof("[Crawler] 页面正文过短(<%d字符), 跳过: %s", minPageChars, norm)
			continue
		}

		// 全站字符预算：超出时截断最后一页
		remaining := maxTotalChars - totalChars
		if utf8.RuneCountInString(text) > remaining {
			text = truncateRunes(text, remaining)
		}
		totalChars += utf8.RuneCountInString(text)
		pagesDone++

		if err := handler(Page{URL: finalURL, Title: title, Text: text}); err != nil {
			return err
		}

		if totalChars >= maxTotalChars {
			log.Infof("[Crawler] 达到字符预算 %d, 提前结束, 已抓取 %d 页", maxTotalChars, pagesDone)
			break
		}
	}

	log.Infof("[Crawler] 爬取完成, 页面数: %d, 总字符数: %d", pagesDone, totalChars)
	return nil
}

// 按惯例依次尝试的 sitemap 路径，命中一个有结果的就停。
var sitemapCandidates = []string{"/sitemap.xml", "/sitemap_index.xml", "/sitemap-index.xml"}

// discoverSitemapURLs 依次尝试常见的 sitemap 路径并递归展开 sitemap 索引，
// 返回第一个产出 URL 的候选的结果。任何失败都只降级为空结果，由调用方回退 BFS。
func (c *Crawler) discoverSitemapURLs(ctx context.Context, rootURL string) []string {
	base := strings.TrimRight(rootURL, "/")
	for _, candidate := range sitemapCandidates {
		if pages := c.expandSitemap(ctx, base+candidate); len(pages) > 0 {
			return pages
		}
	}
	return nil
}

// expandSitemap 抓取一个 sitemap 并递归展开其中的索引条目。
func (c *Crawler) expandSitemap(ctx context.Context, sitemapURL string) []string {
	var pages []string
	fetched := 0
	queue := []string{sitemapURL}
	seen := map[string]bool{}

	for len(queue) > 0 && fetched < maxSitemapFetches {
		smURL := queue[0]
		queue = queue[1:]
		if seen[smURL] {
			continue
		}
		seen[smURL] = true
		fetched++

		data, err := c.fetchRaw(ctx, smURL)
		if err != nil {
			log.Warnf("[Crawler] 抓取 sitemap 失败: %s, Error: %v", smURL, err)
			continue
		}
		children, urls, err := parseSitemap(data)
		if err != nil {
			log.Warnf("[Crawler] 解析 sitemap 失败: %s, Error: %v", smURL, err)
			continue
		}
		queue = append(queue, children...)
		pages = append(pages, urls...)
	}
	return pages
}

// fetchHTML 抓取并解析一个 HTML 页面，返回 DOM 和跟随重定向后的最终 URL。
func (c *Crawler) fetchHTML(ctx context.Context, pageURL string) (doc *html.Node, finalURL string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", crawlerUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("页面返回状态码 %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") {
		return nil, "", fmt.Errorf("非 HTML 内容: %s", contentType)
	}

	parsed, err := ParseHTML(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("解析 HTML 失败: %w", err)
	}
	return parsed, resp.Request.URL.String(), nil
}

// fetchRaw 抓取一个 URL 的原始字节（用于 sitemap）。
func (c *Crawler) fetchRaw(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", crawlerUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("返回状态码 %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

// registrableDomain 返回主机的注册域名（apex），
// IP 地址或 localhost 等无法解析时退回主机名本身。
func registrableDomain(host string) string {
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

// normalizeRoot 把裸域名补全为 https 根地址。
func normalizeRoot(domain string) string {
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return strings.TrimRight(domain, "/")
	}
	return "https://" + strings.TrimRight(domain, "/")
}

// normalizePageURL 归一化页面 URL 并判断是否应该抓取：
// 必须同注册域名、http(s) 协议、不在扩展名跳过清单里；锚点片段会被去掉。
func normalizePageURL(rawURL, baseDomain string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	if registrableDomain(u.Hostname()) != baseDomain {
		return "", false
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if skipExtensions[ext] {
		return "", false
	}

	u.Fragment = ""

	// 去掉跟踪参数，避免同一页面因 utm_* 差异被重复抓取
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if strings.HasPrefix(strings.ToLower(key), "utm_") {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}

	// 末尾斜杠归一化（根路径除外），/about 和 /about/ 是同一页
	if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), true
}

// resolveURL 把相对链接解析为基于 base 的绝对 URL。
func resolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
