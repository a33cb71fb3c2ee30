package ilias

// Kind enumerates the closed set of resource types the crawler understands.
type Kind uint8

// The full variant set. Adding a value here requires updating String,
// IsContainer and every kind switch in the crawl package.
const (
	KindCourse Kind = iota
	KindFolder
	KindPersonalDesktop
	KindFile
	KindForum
	KindThread
	KindWiki
	KindExerciseHandler
	KindWeblink
	KindSurvey
	KindPresentation
	KindPluginDispatch
	KindVideo
	KindGeneric
)

// String returns the tag used in log output.
func (k Kind) String() string {
	switch k {
	case KindCourse:
		return "course"
	case KindFolder:
		return "folder"
	case KindPersonalDesktop:
		return "personal desktop"
	case KindFile:
		return "file"
	case KindForum:
		return "forum"
	case KindThread:
		return "thread"
	case KindWiki:
		return "wiki"
	case KindExerciseHandler:
		return "exercise handler"
	case KindWeblink:
		return "weblink"
	case KindSurvey:
		return "survey"
	case KindPresentation:
		return "presentation"
	case KindPluginDispatch:
		return "plugin dispatch"
	case KindVideo:
		return "video"
	case KindGeneric:
		return "generic"
	}
	return "unknown"
}

// IsContainer reports whether processing a resource of this kind may
// discover and submit child resources.
func (k Kind) IsContainer() bool {
	switch k {
	case KindCourse, KindFolder, KindPersonalDesktop, KindForum, KindThread,
		KindExerciseHandler, KindPluginDispatch:
		return true
	}
	return false
}

// Resource is a typed, addressable handle to one crawlable entity in the
// remote tree. It is immutable after construction.
type Resource struct {
	kind Kind
	name string
	loc  *Locator
}

// New builds a Resource. Thread and Video ignore the passed name and derive
// theirs from the locator; PersonalDesktop carries no name at all.
func New(kind Kind, name string, loc *Locator) Resource {
	return Resource{kind: kind, name: name, loc: loc}
}

// Kind returns the variant tag.
func (r Resource) Kind() Kind { return r.kind }

// Loc returns the locator the resource was classified from.
func (r Resource) Loc() *Locator { return r.loc }

// IsContainer reports whether the resource may spawn children.
func (r Resource) IsContainer() bool { return r.kind.IsContainer() }

// Name returns the display name used to build the destination path.
func (r Resource) Name() string {
	switch r.kind {
	case KindThread:
		return r.loc.ThrPK
	case KindVideo:
		return r.loc.Raw
	default:
		return r.name
	}
}
