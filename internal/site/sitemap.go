package site

import (
	"encoding/xml"
	"os"
	"path/filepath"

	pipeerrors "github.com/Sachin-Mamoru/error-fix-engine/internal/errors"
)

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// writeSitemap emits one <url> per article page plus the index. Every lastmod
// comes from an article's recorded generation time, never from the clock, so
// rebuilding an unchanged site reproduces the file exactly.
func (b *Builder) writeSitemap(pages []page) error {
	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}

	var newest string
	for _, p := range pages {
		mod := p.article.GeneratedAt.UTC().Format("2006-01-02")
		if mod > newest {
			newest = mod
		}
		set.URLs = append(set.URLs, sitemapURL{Loc: b.pageURL(p.topic.Slug), LastMod: mod})
	}
	index := sitemapURL{Loc: b.BaseURL + "/", LastMod: newest}
	if newest == "" {
		index.LastMod = "1970-01-01"
	}
	set.URLs = append([]sitemapURL{index}, set.URLs...)

	raw, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return pipeerrors.BuildFailed("marshal sitemap", err)
	}
	out := append([]byte(xml.Header), raw...)
	out = append(out, '\n')

	path := filepath.Join(b.Output, "sitemap.xml")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return pipeerrors.BuildFailed("write "+path, err)
	}
	return nil
}

func (b *Builder) writeRobots() error {
	content := "User-agent: *\nAllow: /\n\nSitemap: " + b.BaseURL + "/sitemap.xml\n"
	path := filepath.Join(b.Output, "robots.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return pipeerrors.BuildFailed("write "+path, err)
	}
	return nil
}
