package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSitemapURLSet(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc></url>
  <url><loc>https://example.com/about</loc></url>
</urlset>`)

	children, urls, err := parseSitemap(data)
	require.NoError(t, err)
	assert.Empty(t, children)
	assert.Equal(t, []string{"https://example.com/", "https://example.com/about"}, urls)
}

func TestParseSitemapIndex(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-pages.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-posts.xml</loc></sitemap>
</sitemapindex>`)

	children, urls, err := parseSitemap(data)
	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.Equal(t, []string{
		"https://example.com/sitemap-pages.xml",
		"https://example.com/sitemap-posts.xml",
	}, children)
}

func TestParseSitemapGarbage(t *testing.T) {
	_, _, err := parseSitemap([]byte("not xml at all"))
	assert.Error(t, err)
}

func TestNormalizePageURL(t *testing.T) {
	base := "example.com"

	// 同注册域名的子域名也允许
	u, ok := normalizePageURL("https://blog.example.com/post", base)
	require.True(t, ok)
	assert.Equal(t, "https://blog.example.com/post", u)

	// 锚点片段去掉
	u, ok = normalizePageURL("https://example.com/about#team", base)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/about", u)

	// 其他域名拒绝
	_, ok = normalizePageURL("https://other.org/page", base)
	assert.False(t, ok)

	// 扩展名跳过清单
	_, ok = normalizePageURL("https://example.com/report.pdf", base)
	assert.False(t, ok)
	_, ok = normalizePageURL("https://example.com/logo.png", base)
	assert.False(t, ok)

	// 非 http(s) 协议拒绝
	_, ok = normalizePageURL("ftp://example.com/file", base)
	assert.False(t, ok)
}

func TestNormalizePageURLDeduplicatesVariants(t *testing.T) {
	base := "example.com"

	// utm_* 跟踪参数去掉，其余查询参数保留
	u, ok := normalizePageURL("https://example.com/about?utm_source=x&utm_campaign=y", base)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/about", u)

	u, ok = normalizePageURL("https://example.com/search?q=rfp&utm_source=x", base)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/search?q=rfp", u)

	// 末尾斜杠归一化：/about 与 /about/ 是同一页
	plain, ok := normalizePageURL("https://example.com/about", base)
	require.True(t, ok)
	slashed, ok2 := normalizePageURL("https://example.com/about/", base)
	require.True(t, ok2)
	assert.Equal(t, plain, slashed)

	// 根路径的斜杠保留
	u, ok = normalizePageURL("https://example.com/", base)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/", u)

	// 三个变体必须落在同一个 visited 键上
	a, _ := normalizePageURL("https://example.com/about", base)
	b, _ := normalizePageURL("https://example.com/about/", base)
	c, _ := normalizePageURL("https://example.com/about?utm_source=x", base)
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}
