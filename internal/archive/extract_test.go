package archive

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/justdev-chris/PawNetwork/internal/domain"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	data := buildZip(t, map[string]string{
		"index.html":   "home",
		"css/":         "",
		"css/site.css": "body{}",
		"./about.html": "about",
	})

	files, err := Extract(data, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"about.html", "css/site.css", "index.html"}, files.Paths())
	require.Equal(t, []byte("home"), files["index.html"])
}

func TestExtract_RejectsEscapingEntries(t *testing.T) {
	for _, evil := range []string{"../evil.sh", "a/../../evil.sh", "a/../index.html", "/etc/passwd", "..\\evil.bat"} {
		t.Run(evil, func(t *testing.T) {
			data := buildZip(t, map[string]string{
				"index.html": "home",
				evil:         "pwned",
			})

			files, err := Extract(data, 0)
			require.ErrorIs(t, err, domain.ErrMalformedArchive)
			require.Nil(t, files)
		})
	}
}

func TestExtract_Corrupt(t *testing.T) {
	_, err := Extract([]byte("definitely not a zip"), 0)
	require.ErrorIs(t, err, domain.ErrMalformedArchive)
}

func TestExtract_SizeLimit(t *testing.T) {
	data := buildZip(t, map[string]string{
		"a.html": "12345",
		"b.html": "67890",
	})

	_, err := Extract(data, 8)
	require.ErrorIs(t, err, ErrTooLarge)

	files, err := Extract(data, 10)
	require.NoError(t, err)
	require.Len(t, files, 2)
}
