package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"iliassync/internal/fsutil"
	"iliassync/internal/ilias"
	"iliassync/internal/progress"
	"iliassync/internal/state"
)

// paellaInitRe extracts the player configuration embedded in a video page.
var paellaInitRe = regexp.MustCompile(`<script>\s+xoctPaellaPlayer\.init\(([\s\S]+)\)\s+</script>`)

// paellaConfig is the slice of the player JSON we care about: the list of
// downloadable MP4 sources.
type paellaConfig struct {
	Streams []struct {
		Sources struct {
			MP4 []struct {
				Src string `json:"src"`
			} `json:"mp4"`
		} `json:"sources"`
	} `json:"streams"`
}

// processPluginDispatch lists the lectures of an OpenCast folder. The table
// is rendered asynchronously, so the listing is fetched as a fragment.
func (p *Processor) processPluginDispatch(ctx context.Context, res ilias.Resource, path string) error {
	if !p.cfg.Videos {
		p.logger.Debug("video sync disabled", zap.String("path", path))
		return nil
	}
	if err := fsutil.EnsureDir(path); err != nil {
		return err
	}
	listURL := fmt.Sprintf(
		"%silias.php?ref_id=%s&cmdClass=xocteventgui&cmdNode=nc:n4:14u&baseClass=ilObjPluginDispatchGUI&lang=de&limit=20&cmd=asyncGetTableGUI&cmdMode=asynch",
		ilias.BaseURL, res.Loc().RefID,
	)
	doc, err := p.getFragment(ctx, listURL)
	if err != nil {
		return err
	}
	// the fragment is paginated like any other table
	full := findLinkContaining(doc, "trows=800")
	if full == "" {
		return errors.New("video listing link not found")
	}
	full, err = asAsyncTableURL(full)
	if err != nil {
		return err
	}
	doc, err = p.getFragment(ctx, full)
	if err != nil {
		return err
	}
	for _, row := range findAll(doc, func(n *html.Node) bool { return isElement(n, "tr") }) {
		link := findFirst(row, func(n *html.Node) bool {
			return anchorWithHref(n) && attr(n, "target") == "_blank"
		})
		if link == nil {
			continue
		}
		cells := directChildren(row, "td")
		if len(cells) < 3 {
			p.logger.Warn("video row too short", zap.String("path", path))
			continue
		}
		title := strings.TrimSpace(nodeText(cells[2]))
		if strings.HasPrefix(title, "<div") {
			// in-progress uploads render a placeholder widget here
			continue
		}
		video := ilias.New(ilias.KindVideo, title, ilias.RawLocator(attr(link, "href")))
		p.Submit(ctx, video, filepath.Join(path, fsutil.Escape(title)+".mp4"))
	}
	return nil
}

// asAsyncTableURL rewrites the pagination link so it again requests the
// asynchronous table fragment instead of the surrounding page.
func asAsyncTableURL(raw string) (string, error) {
	loc, err := ilias.ParseLocator(raw)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(loc.Raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("cmd", "asyncGetTableGUI")
	q.Set("cmdClass", "xocteventgui")
	q.Set("cmdMode", "asynch")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// processVideo downloads the MP4 sources of one lecture. A single stream is
// written straight to path; a multi-camera lecture turns path into a
// directory holding Stream1.mp4, Stream2.mp4 and so on. With check_videos
// enabled an existing file is compared against the server's Content-Length
// and a mismatch is reported, never overwritten.
func (p *Processor) processVideo(ctx context.Context, res ilias.Resource, path, rel string) error {
	if !p.cfg.Videos {
		return nil
	}
	if _, err := os.Stat(path); err == nil && !p.cfg.Force && !p.cfg.CheckVideos {
		p.logger.Debug("video exists, skipping download", zap.String("path", rel))
		p.emit(progress.StageSkipped, rel, res.Kind(), 0)
		return nil
	}
	sources, err := p.videoSources(ctx, res.Loc().Raw)
	if err != nil {
		return err
	}
	if len(sources) == 1 {
		return p.downloadVideo(ctx, res, sources[0], path, rel)
	}
	if err := fsutil.EnsureDir(path); err != nil {
		return err
	}
	for i, src := range sources {
		name := fmt.Sprintf("Stream%d.mp4", i+1)
		err := p.downloadVideo(ctx, res, src, filepath.Join(path, name), filepath.Join(rel, name))
		if err != nil {
			return err
		}
	}
	return nil
}

// downloadVideo fetches one stream to path unless check_videos turned the
// run into a compare-only pass for already present files.
func (p *Processor) downloadVideo(ctx context.Context, res ilias.Resource, src, path, rel string) error {
	info, statErr := os.Stat(path)
	if statErr == nil && !p.cfg.Force && p.cfg.CheckVideos {
		resp, err := p.client.Head(ctx, src)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.ContentLength >= 0 && resp.ContentLength != info.Size() {
			p.logger.Warn("video was updated",
				zap.String("path", rel),
				zap.Int64("local_size", info.Size()),
				zap.Int64("remote_size", resp.ContentLength),
			)
		}
		return nil
	}
	resp, err := p.client.Get(ctx, src)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	p.logger.Info("writing", zap.String("path", rel))
	n, err := fsutil.WriteFile(path, resp.Body)
	if err != nil {
		return err
	}
	p.recordState(rel, state.FileRecord{Size: n})
	p.emit(progress.StageSynced, rel, res.Kind(), n)
	return nil
}

// videoSources fetches the player page and returns one MP4 source URL per
// stream.
func (p *Processor) videoSources(ctx context.Context, pageURL string) ([]string, error) {
	body, err := p.getText(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return parseVideoSources(body)
}

func parseVideoSources(body string) ([]string, error) {
	m := paellaInitRe.FindStringSubmatch(body)
	if m == nil {
		return nil, errors.New("player configuration not found")
	}
	// init() takes more arguments after the JSON literal; cut them off
	raw := strings.SplitN(m[1], ",\n", 2)[0]
	var cfg paellaConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("parse player configuration: %w", err)
	}
	var sources []string
	for _, stream := range cfg.Streams {
		if len(stream.Sources.MP4) == 0 {
			return nil, errors.New("stream without MP4 source in player configuration")
		}
		sources = append(sources, stream.Sources.MP4[0].Src)
	}
	if len(sources) == 0 {
		return nil, errors.New("no MP4 source in player configuration")
	}
	return sources, nil
}
