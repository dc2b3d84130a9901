// Package site renders the static site from the article store. A build is a
// pure function of the catalog, the stored articles and the site metadata:
// two builds over the same inputs produce byte-identical output trees.
package site

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/articles"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/catalog"
	pipeerrors "github.com/Sachin-Mamoru/error-fix-engine/internal/errors"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/generate"
)

//go:embed templates/page.html.tmpl
var pageTemplateSrc string

//go:embed templates/index.html.tmpl
var indexTemplateSrc string

//go:embed assets
var assetFiles embed.FS

var (
	pageTemplate  = template.Must(template.New("page").Option("missingkey=error").Parse(pageTemplateSrc))
	indexTemplate = template.Must(template.New("index").Option("missingkey=error").Parse(indexTemplateSrc))
)

// Builder writes the output tree for one site.
type Builder struct {
	BaseURL     string // absolute, no trailing slash
	Title       string
	Description string
	Output      string
}

// Result summarises one build.
type Result struct {
	Pages       int // HTML pages written, index included
	SitemapURLs int
}

type relatedLink struct {
	Title string
	URL   string
}

type pageData struct {
	SiteTitle       string
	SiteDescription string
	Title           string
	Description     string
	Canonical       string
	Body            template.HTML
	JSONLD          template.JS
	AuthorName      string
	AuthorTitle     string
	Published       string
	Related         []relatedLink
}

type indexEntry struct {
	Title       string
	Description string
	URL         string
}

type indexGroup struct {
	Tool    string
	Anchor  string
	Entries []indexEntry
}

type indexData struct {
	SiteTitle       string
	SiteDescription string
	Canonical       string
	Count           int
	Groups          []indexGroup
}

// page is one renderable unit: a catalog topic joined with its stored article.
type page struct {
	topic   catalog.Topic
	article articles.Article
}

// Build renders every topic that has a stored article, plus the index,
// sitemap.xml, robots.txt and the stylesheet. Topics without an article are
// listed nowhere; related references to them are dropped from sidebars. Any
// render or write error aborts the build.
func (b *Builder) Build(topics []catalog.Topic, store *articles.FSStore) (Result, error) {
	pages, err := b.collect(topics, store)
	if err != nil {
		return Result{}, err
	}

	if err := os.RemoveAll(filepath.Join(b.Output, "errors")); err != nil {
		return Result{}, pipeerrors.BuildFailed("clean output", err)
	}
	for _, dir := range []string{filepath.Join(b.Output, "errors"), filepath.Join(b.Output, "assets")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, pipeerrors.BuildFailed("create output tree", err)
		}
	}

	rendered := make(map[string]bool, len(pages))
	for _, p := range pages {
		rendered[p.topic.Slug] = true
	}
	for _, p := range pages {
		if err := b.writePage(p, pages, rendered); err != nil {
			return Result{}, err
		}
	}

	if err := b.writeIndex(pages); err != nil {
		return Result{}, err
	}
	if err := b.writeSitemap(pages); err != nil {
		return Result{}, err
	}
	if err := b.writeRobots(); err != nil {
		return Result{}, err
	}
	if err := b.copyAssets(); err != nil {
		return Result{}, err
	}

	return Result{Pages: len(pages) + 1, SitemapURLs: len(pages) + 1}, nil
}

// collect joins topics with their stored articles, sorted by slug so every
// downstream artifact iterates in a stable order.
func (b *Builder) collect(topics []catalog.Topic, store *articles.FSStore) ([]page, error) {
	var pages []page
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		if seen[t.Slug] {
			continue
		}
		seen[t.Slug] = true
		a, ok, err := store.Get(t.Slug)
		if err != nil {
			return nil, pipeerrors.BuildFailed("read article "+t.Slug, err)
		}
		if !ok {
			continue
		}
		pages = append(pages, page{topic: t, article: a})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].topic.Slug < pages[j].topic.Slug })
	return pages, nil
}

func (b *Builder) pageURL(slug string) string {
	return b.BaseURL + "/errors/" + slug + ".html"
}

func (b *Builder) writePage(p page, all []page, rendered map[string]bool) error {
	bodyHTML, err := renderBody(p.article.Body)
	if err != nil {
		return pipeerrors.RenderFailed(p.topic.Slug, err)
	}

	titles := make(map[string]string, len(all))
	for _, other := range all {
		titles[other.topic.Slug] = other.topic.ErrorName
	}
	var related []relatedLink
	for _, slug := range p.topic.Related {
		if !rendered[slug] || slug == p.topic.Slug {
			continue
		}
		related = append(related, relatedLink{Title: titles[slug], URL: "/errors/" + slug + ".html"})
	}

	author := generate.PickAuthor(p.topic.Slug)
	jsonld, err := structuredData(p, author, b.pageURL(p.topic.Slug))
	if err != nil {
		return pipeerrors.RenderFailed(p.topic.Slug, err)
	}

	data := pageData{
		SiteTitle:       b.Title,
		SiteDescription: b.Description,
		Title:           p.topic.ErrorName,
		Description:     p.topic.Description,
		Canonical:       b.pageURL(p.topic.Slug),
		Body:            template.HTML(bodyHTML),
		JSONLD:          template.JS(jsonld),
		AuthorName:      author.Name,
		AuthorTitle:     author.Title,
		Published:       p.article.GeneratedAt.UTC().Format("January 2, 2006"),
		Related:         related,
	}

	var buf strings.Builder
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return pipeerrors.RenderFailed(p.topic.Slug, err)
	}
	path := filepath.Join(b.Output, "errors", p.topic.Slug+".html")
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return pipeerrors.BuildFailed("write "+path, err)
	}
	return nil
}

func (b *Builder) writeIndex(pages []page) error {
	byTool := make(map[string][]indexEntry)
	for _, p := range pages {
		byTool[p.topic.Tool] = append(byTool[p.topic.Tool], indexEntry{
			Title:       p.topic.ErrorName,
			Description: p.topic.Description,
			URL:         "/errors/" + p.topic.Slug + ".html",
		})
	}
	tools := make([]string, 0, len(byTool))
	for tool := range byTool {
		tools = append(tools, tool)
	}
	sort.Strings(tools)

	groups := make([]indexGroup, 0, len(tools))
	for _, tool := range tools {
		entries := byTool[tool]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Title < entries[j].Title })
		groups = append(groups, indexGroup{Tool: tool, Anchor: catalog.Slugify(tool), Entries: entries})
	}

	data := indexData{
		SiteTitle:       b.Title,
		SiteDescription: b.Description,
		Canonical:       b.BaseURL + "/",
		Count:           len(pages),
		Groups:          groups,
	}
	var buf strings.Builder
	if err := indexTemplate.Execute(&buf, data); err != nil {
		return pipeerrors.RenderFailed("index", err)
	}
	path := filepath.Join(b.Output, "index.html")
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return pipeerrors.BuildFailed("write "+path, err)
	}
	return nil
}

func (b *Builder) copyAssets() error {
	entries, err := assetFiles.ReadDir("assets")
	if err != nil {
		return pipeerrors.BuildFailed("read embedded assets", err)
	}
	for _, e := range entries {
		data, err := assetFiles.ReadFile("assets/" + e.Name())
		if err != nil {
			return pipeerrors.BuildFailed("read embedded asset "+e.Name(), err)
		}
		path := filepath.Join(b.Output, "assets", e.Name())
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return pipeerrors.BuildFailed("write "+path, err)
		}
	}
	return nil
}

// structuredData builds the JSON-LD block for one article page. Field order
// is fixed by the struct, keeping rendered pages byte-stable.
func structuredData(p page, author generate.Author, url string) (string, error) {
	doc := struct {
		Context       string `json:"@context"`
		Type          string `json:"@type"`
		Headline      string `json:"headline"`
		Description   string `json:"description,omitempty"`
		URL           string `json:"url"`
		DatePublished string `json:"datePublished"`
		WordCount     int    `json:"wordCount,omitempty"`
		Author        struct {
			Type     string `json:"@type"`
			Name     string `json:"name"`
			JobTitle string `json:"jobTitle"`
		} `json:"author"`
	}{
		Context:       "https://schema.org",
		Type:          "TechArticle",
		Headline:      p.topic.ErrorName,
		Description:   p.topic.Description,
		URL:           url,
		DatePublished: p.article.GeneratedAt.UTC().Format(time.RFC3339),
		WordCount:     p.article.WordCount,
	}
	doc.Author.Type = "Person"
	doc.Author.Name = author.Name
	doc.Author.JobTitle = author.Title

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal structured data: %w", err)
	}
	return string(raw), nil
}
