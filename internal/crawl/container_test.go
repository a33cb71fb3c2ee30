package crawl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"iliassync/internal/ilias"
)

func parseFixture(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

const courseTextFixture = `<html><body>
<div id="il_center_col"><p>Welcome! The lecture starts on Monday; slides appear here a day in advance.</p></div>
</body></html>`

func TestFindExpandLink(t *testing.T) {
	t.Run("collapsed block", func(t *testing.T) {
		doc := parseFixture(t, `<html><body><a href="ilias.php?ref_id=5&expand=42">Show</a></body></html>`)
		require.Equal(t, "ilias.php?ref_id=5&expand=42", findExpandLink(doc))
	})

	t.Run("collapse links do not count", func(t *testing.T) {
		doc := parseFixture(t, `<html><body><a href="ilias.php?ref_id=5&expand=-42">Hide</a></body></html>`)
		require.Empty(t, findExpandLink(doc))
	})

	t.Run("fully expanded page", func(t *testing.T) {
		doc := parseFixture(t, courseTextFixture)
		require.Empty(t, findExpandLink(doc))
	})
}

func TestContainerMainText(t *testing.T) {
	t.Run("custom text", func(t *testing.T) {
		text := containerMainText(parseFixture(t, courseTextFixture))
		require.Contains(t, text, "lecture starts on Monday")
	})

	t.Run("plain listing has none", func(t *testing.T) {
		doc := parseFixture(t, `<html><body>
<div id="il_center_col"><div class="ilContainerBlock ilNoMargin">listing of a course without any custom text</div></div>
</body></html>`)
		require.Empty(t, containerMainText(doc))
	})

	t.Run("short fragments skipped", func(t *testing.T) {
		doc := parseFixture(t, `<html><body><div id="il_center_col"><p>hi</p></div></body></html>`)
		require.Empty(t, containerMainText(doc))
	})

	t.Run("no center column", func(t *testing.T) {
		doc := parseFixture(t, `<html><body><p>somewhere else entirely</p></body></html>`)
		require.Empty(t, containerMainText(doc))
	})
}

func TestSaveContainerPage(t *testing.T) {
	doc := parseFixture(t, courseTextFixture)

	t.Run("folder page", func(t *testing.T) {
		p := newTestProcessor(t, urlTransport{})
		p.cfg.SavePages = true
		dir := t.TempDir()
		res := ilias.New(ilias.KindFolder, "f", ilias.RawLocator("https://courses.example.org/f"))

		require.NoError(t, p.saveContainerPage(res, doc, dir, "f"))

		_, err := os.Stat(filepath.Join(dir, "folder.html"))
		require.NoError(t, err)
	})

	t.Run("personal desktop is never saved", func(t *testing.T) {
		p := newTestProcessor(t, urlTransport{})
		p.cfg.SavePages = true
		dir := t.TempDir()
		res := ilias.New(ilias.KindPersonalDesktop, "", ilias.RawLocator("https://courses.example.org/"))

		require.NoError(t, p.saveContainerPage(res, doc, dir, "."))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Empty(t, entries)
	})

	t.Run("disabled by default", func(t *testing.T) {
		p := newTestProcessor(t, urlTransport{})
		dir := t.TempDir()
		res := ilias.New(ilias.KindCourse, "c", ilias.RawLocator("https://courses.example.org/c"))

		require.NoError(t, p.saveContainerPage(res, doc, dir, "c"))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Empty(t, entries)
	})
}

func TestProcessContainerExpandsSessionsAndSavesPage(t *testing.T) {
	const collapsed = `<html><body>
<div id="il_center_col"><a href="https://courses.example.org/listing?expand=42">Open all sessions</a></div>
</body></html>`
	p := newTestProcessor(t, urlTransport{
		"https://courses.example.org/listing":           collapsed,
		"https://courses.example.org/listing?expand=42": courseTextFixture,
	})
	p.cfg.SavePages = true
	path := t.TempDir()
	res := ilias.New(ilias.KindCourse, "course", ilias.RawLocator("https://courses.example.org/listing"))

	require.NoError(t, p.processContainer(context.Background(), res, path, "."))

	data, err := os.ReadFile(filepath.Join(path, "course.html"))
	require.NoError(t, err)
	require.Contains(t, string(data), "lecture starts on Monday",
		"the saved page comes from the expanded listing")
}
