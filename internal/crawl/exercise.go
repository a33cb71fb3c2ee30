package crawl

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"iliassync/internal/fsutil"
	"iliassync/internal/ilias"
)

// exercise pages mix assignment sheets, personal feedback and global
// feedback; these are the download commands worth saving.
var exerciseDownloadCmds = map[string]bool{
	"downloadFile":               true,
	"downloadGlobalFeedbackFile": true,
	"downloadFeedbackFile":       true,
}

// processExercise collects the downloadable files of an exercise page.
// Names come from the surrounding info property, not from the link itself,
// and may repeat across assignments, so duplicates get a counter suffix.
func (p *Processor) processExercise(ctx context.Context, res ilias.Resource, path string) error {
	if err := fsutil.EnsureDir(path); err != nil {
		return err
	}
	doc, err := p.getHTML(ctx, res.Loc().Raw)
	if err != nil {
		return err
	}
	seen := make(map[string]int)
	for _, row := range findAll(doc, withClass("form-group")) {
		link := findFirst(row, anchorWithHref)
		if link == nil {
			continue
		}
		loc, err := ilias.ParseLocator(attr(link, "href"))
		if err != nil {
			p.logger.Warn("skipping link",
				zap.String("href", attr(link, "href")), zap.Error(err))
			continue
		}
		if !exerciseDownloadCmds[loc.Cmd] {
			continue
		}
		prop := findFirst(row, withClass("il_InfoScreenProperty"))
		if prop == nil {
			p.logger.Warn("exercise row without name", zap.String("path", path))
			continue
		}
		name := fsutil.Escape(strings.TrimSpace(nodeText(prop)))
		seen[name]++
		if n := seen[name]; n > 1 {
			name = uniquify(name, n)
		}
		file := ilias.New(ilias.KindFile, name, loc)
		p.Submit(ctx, file, filepath.Join(path, name))
	}
	return nil
}

// uniquify inserts the counter before the extension: "sheet.pdf" becomes
// "sheet2.pdf" on its second occurrence.
func uniquify(name string, n int) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s%d%s", strings.TrimSuffix(name, ext), n, ext)
}
