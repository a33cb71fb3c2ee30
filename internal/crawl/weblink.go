package crawl

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"iliassync/internal/fsutil"
	"iliassync/internal/ilias"
	"iliassync/internal/progress"
)

// processWeblink materializes a weblink as a text file holding the resolved
// target URL. A single link redirects straight to the target; a link list
// stays on ILIAS and becomes a directory with one file per entry.
func (p *Processor) processWeblink(ctx context.Context, res ilias.Resource, path, rel string) error {
	if !p.cfg.Force {
		if _, err := os.Stat(path); err == nil {
			p.logger.Debug("weblink exists, skipping", zap.String("path", rel))
			p.emit(progress.StageSkipped, rel, res.Kind(), 0)
			return nil
		}
	}
	var final string
	resp, err := p.client.Head(ctx, res.Loc().Raw)
	switch {
	case err == nil:
		resp.Body.Close()
		final = resp.Request.URL.String()
	default:
		// dead external targets still get a link file pointing at them
		var uerr *url.Error
		if !errors.As(err, &uerr) {
			return err
		}
		p.logger.Warn("weblink target unreachable, saving the URL anyway",
			zap.String("path", rel), zap.Error(err))
		final = uerr.URL
	}
	if !strings.HasPrefix(final, ilias.BaseURL) {
		p.logger.Info("writing", zap.String("path", rel))
		if err := fsutil.WriteFileString(path, final); err != nil {
			return err
		}
		p.emit(progress.StageSynced, rel, res.Kind(), int64(len(final)))
		return nil
	}
	return p.processLinkList(ctx, final, path, rel)
}

func (p *Processor) processLinkList(ctx context.Context, listURL, path, rel string) error {
	if err := fsutil.EnsureDir(path); err != nil {
		return err
	}
	doc, err := p.getHTML(ctx, listURL)
	if err != nil {
		return err
	}
	for _, a := range findAll(doc, anchorWithHref) {
		loc, err := ilias.ParseLocator(attr(a, "href"))
		if err != nil || loc.Cmd != "callLink" {
			continue
		}
		resp, err := p.client.Head(ctx, loc.Raw)
		if err != nil {
			p.logger.Warn("cannot resolve link list entry",
				zap.String("href", loc.Raw), zap.Error(err))
			continue
		}
		resp.Body.Close()
		name := fsutil.Escape(strings.TrimSpace(nodeText(a)))
		target := filepath.Join(path, name)
		p.logger.Info("writing", zap.String("path", filepath.Join(rel, name)))
		if err := fsutil.WriteFileString(target, resp.Request.URL.String()); err != nil {
			return err
		}
	}
	return nil
}
