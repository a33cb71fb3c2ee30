package crawl

import (
	"context"
	"os"

	"go.uber.org/zap"

	"iliassync/internal/fsutil"
	"iliassync/internal/ilias"
	"iliassync/internal/progress"
	"iliassync/internal/state"
)

// processFile downloads one file unless it is already present. The version
// is part of the file name, so an unchanged file is recognized by a plain
// stat; the state store keeps the size for later comparisons.
func (p *Processor) processFile(ctx context.Context, res ilias.Resource, path, rel string) error {
	if p.cfg.SkipFiles {
		return nil
	}
	if !p.cfg.Force {
		if _, err := os.Stat(path); err == nil {
			if rec, ok := p.lookupState(rel); ok {
				p.logger.Debug("file exists, skipping download",
					zap.String("path", rel), zap.Time("synced_at", rec.SyncedAt))
			} else {
				p.logger.Debug("file exists, skipping download", zap.String("path", rel))
			}
			p.emit(progress.StageSkipped, rel, res.Kind(), 0)
			return nil
		}
	}
	resp, err := p.client.Get(ctx, res.Loc().Raw)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	p.logger.Info("writing", zap.String("path", rel))
	n, err := fsutil.WriteFile(path, resp.Body)
	if err != nil {
		return err
	}
	p.recordState(rel, state.FileRecord{Version: res.Name(), Size: n})
	p.emit(progress.StageSynced, rel, res.Kind(), n)
	return nil
}
