package ingest

import (
	"encoding/xml"
)

// sitemapIndex 对应 <sitemapindex>，即指向子 sitemap 的索引文件。
type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// urlSet 对应 <urlset>，即直接列出页面 URL 的 sitemap。
type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// parseSitemap 解析一份 sitemap XML。
// 返回子 sitemap 列表（索引文件的情况）和页面 URL 列表（urlset 的情况），
// 两者互斥；既不是索引也不是 urlset 时两者皆空。
func parseSitemap(data []byte) (childSitemaps []string, pageURLs []string, err error) {
	var index sitemapIndex
	if xmlErr := xml.Unmarshal(data, &index); xmlErr == nil && len(index.Sitemaps) > 0 {
		for _, sm := range index.Sitemaps {
			if sm.Loc != "" {
				childSitemaps = append(childSitemaps, sm.Loc)
			}
		}
		return childSitemaps, nil, nil
	}

	var set urlSet
	if xmlErr := xml.Unmarshal(data, &set); xmlErr != nil {
		return nil, nil, xmlErr
	}
	for _, u := range set.URLs {
		if u.Loc != "" {
			pageURLs = append(pageURLs, u.Loc)
		}
	}
	return nil, pageURLs, nil
}
