package ilias

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingFileMetadata reports a direct file download link found without
// the surrounding markup needed to name the file.
var ErrMissingFileMetadata = errors.New("file link without metadata hint")

// ErrUnclassifiable reports input the classifier cannot route at all.
var ErrUnclassifiable = errors.New("unclassifiable locator")

// FileMetadataHint carries the two item properties the caller extracts from
// the markup around a file link: the extension text and the version label.
type FileMetadataHint struct {
	Extension string
	Version   string
}

const gotoEndpoint = BaseURL + "goto.php"

// Classify routes a parsed link to its resource kind. It is a pure function
// of its inputs; the decision table below is evaluated top to bottom and the
// first match wins. Unrecognized shapes fall through to Generic so that the
// crawl skips them instead of failing.
func Classify(loc *Locator, name string, hint *FileMetadataHint) (Resource, error) {
	if loc == nil {
		return Resource{}, ErrUnclassifiable
	}

	if loc.ThrPK != "" {
		return New(KindThread, "", loc), nil
	}

	if strings.HasPrefix(loc.Raw, gotoEndpoint) {
		return classifyGoto(loc, name, hint)
	}

	if loc.Cmd == "showThreads" {
		return New(KindForum, name, loc), nil
	}

	// the class name is *sometimes* in CamelCase
	switch strings.ToLower(loc.BaseClass) {
	case "ilexercisehandlergui":
		return New(KindExerciseHandler, name, loc), nil
	case "ililwikihandlergui":
		return New(KindWiki, name, loc), nil
	case "illinkresourcehandlergui":
		return New(KindWeblink, name, loc), nil
	case "ilobjsurveygui":
		return New(KindSurvey, name, loc), nil
	case "illmpresentationgui":
		return New(KindPresentation, name, loc), nil
	case "ilrepositorygui":
		switch loc.Cmd {
		case "view", "render":
			return New(KindFolder, name, loc), nil
		case "":
			return New(KindCourse, name, loc), nil
		default:
			return New(KindGeneric, name, loc), nil
		}
	case "ilobjplugindispatchgui":
		return New(KindPluginDispatch, name, loc), nil
	case "ilpersonaldesktopgui":
		return New(KindPersonalDesktop, "", loc), nil
	default:
		return New(KindGeneric, name, loc), nil
	}
}

// classifyGoto branches on the goto.php permalink target prefix.
func classifyGoto(loc *Locator, name string, hint *FileMetadataHint) (Resource, error) {
	target := loc.Target
	if target == "" {
		target = "NONE"
	}
	switch {
	case strings.HasPrefix(target, "wiki_"):
		return New(KindWiki, name, loc), nil
	case strings.HasPrefix(target, "root_"):
		// magazine link, not traversed
		return New(KindGeneric, name, loc), nil
	case strings.HasPrefix(target, "crs_"):
		return New(KindCourse, name, withTargetRefID(loc)), nil
	case strings.HasPrefix(target, "frm_"):
		return New(KindForum, name, withTargetRefID(loc)), nil
	case strings.HasPrefix(target, "lm_"):
		return New(KindPresentation, name, loc), nil
	case strings.HasPrefix(target, "fold_"):
		return New(KindFolder, name, withTargetRefID(loc)), nil
	case strings.HasPrefix(target, "file_"):
		if !strings.HasSuffix(target, "download") {
			// metadata page, not the download itself
			return New(KindGeneric, name, loc), nil
		}
		if hint == nil {
			return Resource{}, fmt.Errorf("%w: %s", ErrMissingFileMetadata, loc.Raw)
		}
		if v, ok := strings.CutPrefix(strings.TrimSpace(hint.Version), "Version: "); ok {
			name += "_v" + v
		}
		name = fmt.Sprintf("%s.%s", name, strings.TrimSpace(hint.Extension))
		return New(KindFile, name, loc), nil
	default:
		return New(KindGeneric, name, loc), nil
	}
}

// withTargetRefID copies loc with RefID set to the token after the first
// underscore in Target, e.g. "crs_55_oldstuff" yields "55".
func withTargetRefID(loc *Locator) *Locator {
	parts := strings.Split(loc.Target, "_")
	if len(parts) < 2 {
		return loc
	}
	out := *loc
	out.RefID = parts[1]
	return &out
}
