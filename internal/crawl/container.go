package crawl

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"iliassync/internal/fsutil"
	"iliassync/internal/ilias"
	"iliassync/internal/progress"
)

// expandLinkRe matches the links that open a collapsed session block. The
// collapse counterpart carries a negated id and must not match.
var expandLinkRe = regexp.MustCompile(`expand=\d`)

// maxExpandRounds bounds how often a listing is re-fetched to open
// collapsed blocks.
const maxExpandRounds = 5

// processContainer expands a course, folder or the personal desktop: fetch
// the listing page, classify every entry and hand the children back to the
// scheduler. A link that fails to parse or classify is logged and skipped;
// it never fails the container.
func (p *Processor) processContainer(ctx context.Context, res ilias.Resource, path, rel string) error {
	if err := fsutil.EnsureDir(path); err != nil {
		return err
	}
	doc, err := p.getHTML(ctx, res.Loc().Raw)
	if err != nil {
		return err
	}
	// collapsed session blocks hide their entries behind expand links
	for i := 0; i < maxExpandRounds; i++ {
		href := findExpandLink(doc)
		if href == "" {
			break
		}
		p.logger.Debug("expanding session block", zap.String("href", href))
		if doc, err = p.getHTML(ctx, href); err != nil {
			return err
		}
	}
	if err := p.saveContainerPage(res, doc, path, rel); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, item := range parseContainerItems(doc) {
		child, err := p.classifyChild(item)
		if err != nil {
			p.logger.Warn("skipping link",
				zap.String("href", item.Href), zap.Error(err))
			continue
		}
		name := fsutil.Escape(child.Name())
		if seen[name] {
			p.logger.Warn("container has entries with the same name",
				zap.String("path", path), zap.String("name", name))
		}
		seen[name] = true
		p.Submit(ctx, child, filepath.Join(path, name))
	}
	return nil
}

// findExpandLink returns the href of the first link that opens a collapsed
// block, or "" once everything is expanded.
func findExpandLink(doc *html.Node) string {
	a := findFirst(doc, func(n *html.Node) bool {
		return anchorWithHref(n) && expandLinkRe.MatchString(attr(n, "href"))
	})
	if a == nil {
		return ""
	}
	return attr(a, "href")
}

// saveContainerPage writes the custom text a course or folder shows above
// its listing, when the user opted into keeping page content.
func (p *Processor) saveContainerPage(res ilias.Resource, doc *html.Node, path, rel string) error {
	if !p.cfg.SavePages {
		return nil
	}
	var name string
	switch res.Kind() {
	case ilias.KindCourse:
		name = "course.html"
	case ilias.KindFolder:
		name = "folder.html"
	default:
		return nil
	}
	text := containerMainText(doc)
	if text == "" {
		return nil
	}
	p.logger.Info("writing", zap.String("path", filepath.Join(rel, name)))
	if err := fsutil.WriteFileString(filepath.Join(path, name), text); err != nil {
		return err
	}
	p.emit(progress.StageSynced, filepath.Join(rel, name), res.Kind(), int64(len(text)))
	return nil
}

// containerMainText extracts the description block of a listing page. A
// plain listing renders an ilContainerBlock first and carries no custom
// text; tiny fragments are boilerplate and get skipped too.
func containerMainText(doc *html.Node) string {
	col := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == "il_center_col"
	})
	if col == nil {
		return ""
	}
	for c := col.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if strings.Contains(attr(c, "class"), "ilContainerBlock") {
			return ""
		}
		break
	}
	text, err := renderInner(col)
	if err != nil || len(text) <= 40 {
		return ""
	}
	return text
}
