package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"iliassync/internal/config"
	"iliassync/internal/fsutil"
	"iliassync/internal/ignore"
	"iliassync/internal/ilias"
	"iliassync/internal/progress"
	"iliassync/internal/scheduler"
	"iliassync/internal/state"
)

// desktopURL lists the user's subscribed courses; it seeds the crawl when
// no explicit sync URL is configured.
const desktopURL = ilias.BaseURL + "ilias.php?baseClass=ilPersonalDesktopGUI&cmd=jumpToSelectedItems"

// Processor owns the per-kind handling of resources. It is shared by all
// crawl units; everything it references is either read-only or safe for
// concurrent use.
type Processor struct {
	client *ilias.Client
	rules  *ignore.RuleSet
	sched  *scheduler.Scheduler
	store  *state.Store
	events progress.Emitter
	cfg    config.Config
	logger *zap.Logger
}

// New wires a Processor. store and events may be nil, which disables sync
// bookkeeping and progress reporting respectively.
func New(
	client *ilias.Client,
	rules *ignore.RuleSet,
	sched *scheduler.Scheduler,
	store *state.Store,
	events progress.Emitter,
	cfg config.Config,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		client: client,
		rules:  rules,
		sched:  sched,
		store:  store,
		events: events,
		cfg:    cfg,
		logger: logger,
	}
}

// Run seeds the crawl with the personal desktop and blocks until the task
// graph is quiescent. It returns the context error when the run was
// interrupted; otherwise a non-nil error means at least one unit failed,
// and the rest of the tree was still synced.
func (p *Processor) Run(ctx context.Context) error {
	loc, err := ilias.ParseLocator(desktopURL)
	if err != nil {
		return err
	}
	root, err := ilias.Classify(loc, "", nil)
	if err != nil {
		return err
	}
	p.Submit(ctx, root, p.cfg.Output)
	p.sched.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	if n := p.sched.Failed(); n > 0 {
		return fmt.Errorf("%d units failed", n)
	}
	return nil
}

// Submit schedules res for processing at path. Callable from inside a
// running unit; this is how containers enqueue their children.
func (p *Processor) Submit(ctx context.Context, res ilias.Resource, path string) {
	p.sched.Submit(ctx, scheduler.Unit{
		Path: path,
		Run: func(ctx context.Context) error {
			return p.process(ctx, res, path)
		},
	})
}

func (p *Processor) process(ctx context.Context, res ilias.Resource, path string) error {
	rel, err := filepath.Rel(p.cfg.Output, path)
	if err != nil {
		rel = path
	}
	if p.rules.Match(rel, res.IsContainer()) {
		p.logger.Debug("ignored", zap.String("path", rel))
		p.emit(progress.StageIgnored, rel, res.Kind(), 0)
		return nil
	}
	p.logger.Info("syncing",
		zap.Stringer("kind", res.Kind()),
		zap.String("path", rel),
	)
	p.logger.Debug("resource url", zap.String("url", res.Loc().Raw))

	if err := p.dispatch(ctx, res, path, rel); err != nil {
		p.emit(progress.StageFailed, rel, res.Kind(), 0)
		return err
	}
	return nil
}

func (p *Processor) dispatch(ctx context.Context, res ilias.Resource, path, rel string) error {
	switch res.Kind() {
	case ilias.KindCourse, ilias.KindFolder, ilias.KindPersonalDesktop:
		return p.processContainer(ctx, res, path, rel)
	case ilias.KindFile:
		return p.processFile(ctx, res, path, rel)
	case ilias.KindForum:
		return p.processForum(ctx, res, path)
	case ilias.KindThread:
		return p.processThread(ctx, res, path)
	case ilias.KindExerciseHandler:
		return p.processExercise(ctx, res, path)
	case ilias.KindPluginDispatch:
		return p.processPluginDispatch(ctx, res, path)
	case ilias.KindVideo:
		return p.processVideo(ctx, res, path, rel)
	case ilias.KindWeblink:
		return p.processWeblink(ctx, res, path, rel)
	case ilias.KindWiki, ilias.KindSurvey, ilias.KindPresentation, ilias.KindGeneric:
		p.logger.Debug("not traversed",
			zap.Stringer("kind", res.Kind()), zap.String("path", rel))
		return nil
	}
	return nil
}

// classifyChild turns a discovered link into a resource.
func (p *Processor) classifyChild(item ChildLink) (ilias.Resource, error) {
	loc, err := ilias.ParseLocator(item.Href)
	if err != nil {
		return ilias.Resource{}, err
	}
	return ilias.Classify(loc, item.Name, item.Hint)
}

// getHTML fetches url and parses it, rejecting logged-out redirects and
// ILIAS error pages.
func (p *Processor) getHTML(ctx context.Context, url string) (*html.Node, error) {
	resp, err := p.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if q := resp.Request.URL.RawQuery; strings.Contains(q, "reloadpublic=1") || strings.Contains(q, "cmd=force_login") {
		return nil, errors.New("not logged in / session expired")
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	if hasDangerAlert(doc) {
		return nil, errors.New("ILIAS error page")
	}
	return doc, nil
}

// getFragment fetches an asynchronously rendered fragment; those are not
// subject to the login redirect.
func (p *Processor) getFragment(ctx context.Context, url string) (*html.Node, error) {
	resp, err := p.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	if hasDangerAlert(doc) {
		return nil, errors.New("ILIAS error page")
	}
	return doc, nil
}

// getText fetches url and returns the raw body.
func (p *Processor) getText(ctx context.Context, url string) (string, error) {
	resp, err := p.client.Get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

// submitDownload schedules a plain fetch-and-write leaf unit.
func (p *Processor) submitDownload(ctx context.Context, rawurl, path string) {
	p.sched.Submit(ctx, scheduler.Unit{
		Path: path,
		Run: func(ctx context.Context) error {
			resp, err := p.client.Get(ctx, rawurl)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if _, err := fsutil.WriteFile(path, resp.Body); err != nil {
				return err
			}
			return nil
		},
	})
}

// emit reports a unit milestone to the progress hub, if one is attached.
func (p *Processor) emit(stage progress.Stage, rel string, kind ilias.Kind, bytes int64) {
	if p.events == nil {
		return
	}
	p.events.Emit(progress.Event{
		TS:    time.Now(),
		Stage: stage,
		Path:  rel,
		Kind:  kind.String(),
		Bytes: bytes,
	})
}

func (p *Processor) lookupState(rel string) (state.FileRecord, bool) {
	if p.store == nil {
		return state.FileRecord{}, false
	}
	rec, ok, err := p.store.Lookup(rel)
	if err != nil {
		p.logger.Warn("state lookup failed", zap.String("path", rel), zap.Error(err))
		return state.FileRecord{}, false
	}
	return rec, ok
}

func (p *Processor) recordState(rel string, rec state.FileRecord) {
	if p.store == nil {
		return
	}
	if err := p.store.Record(rel, rec); err != nil {
		p.logger.Warn("state record failed", zap.String("path", rel), zap.Error(err))
	}
}
