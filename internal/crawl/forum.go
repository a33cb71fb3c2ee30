package crawl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"iliassync/internal/fsutil"
	"iliassync/internal/ilias"
	"iliassync/internal/scheduler"
)

// imageSrcRe picks the media id and file name out of an inline forum image.
var imageSrcRe = regexp.MustCompile(`\./data/produktiv/mobs/mm_(\d+)/([^?]+).+`)

// processForum expands the thread listing of a forum. Threads whose post
// count has not grown since the last run are skipped unless forced.
func (p *Processor) processForum(ctx context.Context, res ilias.Resource, path string) error {
	if !p.cfg.Forum {
		p.logger.Debug("forum sync disabled", zap.String("path", path))
		return nil
	}
	if err := fsutil.EnsureDir(path); err != nil {
		return err
	}
	doc, err := p.getHTML(ctx, res.Loc().Raw)
	if err != nil {
		return err
	}
	// the listing is paginated; trows=800 links to the full table
	expanded := findLinkContaining(doc, "trows=800")
	if expanded == "" {
		return errors.New("thread listing link not found (empty forum?)")
	}
	doc, err = p.getHTML(ctx, expanded)
	if err != nil {
		return err
	}
	for _, row := range findAll(doc, func(n *html.Node) bool { return isElement(n, "tr") }) {
		cells := directChildren(row, "td")
		if len(cells) != 6 {
			continue
		}
		link := findFirst(cells[1], anchorWithHref)
		if link == nil {
			p.logger.Warn("thread row without link", zap.String("url", res.Loc().Raw))
			continue
		}
		thread, err := p.classifyChild(ChildLink{Href: attr(link, "href")})
		if err != nil || thread.Kind() != ilias.KindThread {
			p.logger.Warn("unexpected thread link",
				zap.String("href", attr(link, "href")), zap.Error(err))
			continue
		}
		name := fmt.Sprintf("%s_%s", thread.Loc().ThrPK, strings.TrimSpace(nodeText(link)))
		threadPath := filepath.Join(path, fsutil.Escape(name))
		available, err := strconv.Atoi(strings.TrimSpace(nodeText(cells[3])))
		if err != nil {
			p.logger.Warn("cannot parse thread post count", zap.String("path", threadPath))
			continue
		}
		if available <= countDirEntries(threadPath) && !p.cfg.Force {
			continue
		}
		p.logger.Info("new posts", zap.String("path", threadPath))
		p.Submit(ctx, thread, threadPath)
	}
	return nil
}

// processThread saves each post of a thread page as an HTML file plus its
// inline images and attachments, then follows the pagination.
func (p *Processor) processThread(ctx context.Context, res ilias.Resource, path string) error {
	if !p.cfg.Forum {
		return nil
	}
	if err := fsutil.EnsureDir(path); err != nil {
		return err
	}
	doc, err := p.getHTML(ctx, res.Loc().Raw)
	if err != nil {
		return err
	}
	for _, post := range findAll(doc, withClass("ilFrmPostRow")) {
		if err := p.savePost(ctx, post, path); err != nil {
			p.logger.Warn("skipping post", zap.String("path", path), zap.Error(err))
		}
	}
	p.followThreadPagination(ctx, doc, res, path)
	return nil
}

func (p *Processor) savePost(ctx context.Context, post *html.Node, path string) error {
	title := findFirst(post, withClass("ilFrmPostTitle"))
	if title == nil {
		return errors.New("post title not found")
	}
	authorNode := findFirst(post, func(n *html.Node) bool {
		return isElement(n, "span") && hasClass(n, "small")
	})
	if authorNode == nil {
		return errors.New("post author not found")
	}
	authorParts := strings.Split(strings.TrimSpace(nodeText(authorNode)), "|")
	if len(authorParts) < 2 {
		return errors.New("author data in unknown format")
	}
	author := strings.TrimSpace(authorParts[1])
	container := findFirst(post, withClass("ilFrmPostContentContainer"))
	if container == nil {
		return errors.New("post container not found")
	}
	link := findFirst(container, func(n *html.Node) bool { return isElement(n, "a") })
	if link == nil {
		return errors.New("post link not found")
	}
	id := attr(link, "id")
	if id == "" {
		return errors.New("post link without id")
	}
	content, err := renderInner(container)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s_%s.html", id, author, strings.TrimSpace(nodeText(title)))
	postPath := filepath.Join(path, fsutil.Escape(name))
	p.sched.Submit(ctx, scheduler.Unit{
		Path: postPath,
		Run: func(context.Context) error {
			return fsutil.WriteFileString(postPath, content)
		},
	})

	for _, img := range findAll(container, func(n *html.Node) bool { return isElement(n, "img") }) {
		src := attr(img, "src")
		if src == "" {
			continue
		}
		m := imageSrcRe.FindStringSubmatch(src)
		if m == nil {
			p.logger.Warn("image src in unexpected format", zap.String("src", src))
			continue
		}
		imgPath := filepath.Join(path, fsutil.Escape(fmt.Sprintf("%s_%s_%s", id, m[1], m[2])))
		p.submitDownload(ctx, src, imgPath)
	}
	if attachments := findFirst(post, withClass("ilFrmPostAttachmentsContainer")); attachments != nil {
		for _, a := range findAll(attachments, anchorWithHref) {
			attPath := filepath.Join(path, fsutil.Escape(fmt.Sprintf("%s_%s", id, strings.TrimSpace(nodeText(a)))))
			p.submitDownload(ctx, attr(a, "href"), attPath)
		}
	}
	return nil
}

// followThreadPagination resubmits the thread at the next page, if any.
func (p *Processor) followThreadPagination(ctx context.Context, doc *html.Node, res ilias.Resource, path string) {
	pages := findFirst(doc, func(n *html.Node) bool { return isElement(n, "table") })
	if pages == nil {
		return
	}
	links := findAll(pages, anchorWithHref)
	if len(links) == 0 {
		p.logger.Warn("no pagination links", zap.String("url", res.Loc().Raw))
		return
	}
	last := links[len(links)-1]
	if strings.TrimSpace(nodeText(last)) != ">>" {
		return // already on the last page
	}
	next, err := p.classifyChild(ChildLink{Href: attr(last, "href")})
	if err != nil || next.Kind() != ilias.KindThread {
		p.logger.Warn("pagination link not a thread",
			zap.String("href", attr(last, "href")), zap.Error(err))
		return
	}
	p.Submit(ctx, next, path)
}

// directChildren returns the element children of n with the given tag.
func directChildren(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, tag) {
			out = append(out, c)
		}
	}
	return out
}

func countDirEntries(path string) int {
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0
	}
	return len(entries)
}
