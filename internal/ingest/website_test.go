package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPage(title, body string, links ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body>", title)
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
	}
	fmt.Fprintf(&b, "<main><p>%s</p></main></body></html>", body)
	return b.String()
}

func longText(n int) string {
	return strings.Repeat("Content about our services and capabilities. ", n)
}

func newCrawlSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, testPage("Home", longText(10), "/about", "/thin", "/report.pdf", "mailto:x@y.z"))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testPage("About", longText(10), "/"))
	})
	mux.HandleFunc("/thin", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testPage("Thin", "too short"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlBFSFallback(t *testing.T) {
	srv := newCrawlSite(t)

	c := NewCrawler()
	c.client = srv.Client()

	var pages []Page
	err := c.Crawl(context.Background(), srv.URL, 10, 1_000_000, func(p Page) error {
		pages = append(pages, p)
		return nil
	})
	require.NoError(t, err)

	// 首页和 /about 入库，薄页和 PDF 跳过
	require.Len(t, pages, 2)
	assert.Equal(t, "Home", pages[0].Title)
	assert.Equal(t, "About", pages[1].Title)
	for _, p := range pages {
		assert.NotContains(t, p.URL, ".pdf")
		assert.GreaterOrEqual(t, utf8.RuneCountInString(p.Text), minPageChars)
	}
}

func TestCrawlRespectsMaxPages(t *testing.T) {
	srv := newCrawlSite(t)

	c := NewCrawler()
	c.client = srv.Client()

	var pages []Page
	err := c.Crawl(context.Background(), srv.URL, 1, 1_000_000, func(p Page) error {
		pages = append(pages, p)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestCrawlCharBudgetTruncatesFinalPage(t *testing.T) {
	srv := newCrawlSite(t)

	c := NewCrawler()
	c.client = srv.Client()

	budget := 250
	var pages []Page
	err := c.Crawl(context.Background(), srv.URL, 10, budget, func(p Page) error {
		pages = append(pages, p)
		return nil
	})
	require.NoError(t, err)

	// 预算在第一页内用尽：只有一页，且被截断到预算上限
	require.Len(t, pages, 1)
	assert.Equal(t, budget, utf8.RuneCountInString(pages[0].Text))
}

func TestCrawlSitemapDiscovery(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<?xml version="1.0"?><urlset>`)
		for i := 0; i < 6; i++ {
			fmt.Fprintf(w, "<url><loc>%s/page%d</loc></url>", srvURL, i)
		}
		fmt.Fprint(w, `</urlset>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testPage(r.URL.Path, longText(10)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	c := NewCrawler()
	c.client = srv.Client()

	var pages []Page
	err := c.Crawl(context.Background(), srv.URL, 10, 1_000_000, func(p Page) error {
		pages = append(pages, p)
		return nil
	})
	require.NoError(t, err)

	// sitemap 给出的 6 个页面全部入库，没有触发 BFS
	assert.Len(t, pages, 6)
}

func TestCrawlSitemapIndexAtAlternatePath(t *testing.T) {
	// 站点没有 /sitemap.xml，只在 /sitemap_index.xml 提供 sitemap 索引
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/sitemap_index.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0"?><sitemapindex><sitemap><loc>%s/sitemap-pages.xml</loc></sitemap></sitemapindex>`, srvURL)
	})
	mux.HandleFunc("/sitemap-pages.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<?xml version="1.0"?><urlset>`)
		for i := 0; i < 5; i++ {
			fmt.Fprintf(w, "<url><loc>%s/page%d</loc></url>", srvURL, i)
		}
		fmt.Fprint(w, `</urlset>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testPage(r.URL.Path, longText(10)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	c := NewCrawler()
	c.client = srv.Client()

	urls := c.discoverSitemapURLs(context.Background(), srv.URL)
	require.Len(t, urls, 5)

	var pages []Page
	err := c.Crawl(context.Background(), srv.URL, 10, 1_000_000, func(p Page) error {
		pages = append(pages, p)
		return nil
	})
	require.NoError(t, err)

	// 索引展开出的 5 个页面全部入库，没有回退到 BFS
	assert.Len(t, pages, 5)
}
