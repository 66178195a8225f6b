package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitSRT_RoundTrip(t *testing.T) {
	src := writeTemp(t, "in.srt", sampleSRT)

	file, err := Parse(src)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "out.srt")
	require.NoError(t, Emit(file, dst))

	reparsed, err := Parse(dst)
	require.NoError(t, err)

	require.Len(t, reparsed.Entries, len(file.Entries))
	for i := range file.Entries {
		assert.Equal(t, file.Entries[i].Index, reparsed.Entries[i].Index)
		assert.Equal(t, file.Entries[i].StartTime, reparsed.Entries[i].StartTime)
		assert.Equal(t, file.Entries[i].EndTime, reparsed.Entries[i].EndTime)
		assert.Equal(t, file.Entries[i].Text, reparsed.Entries[i].Text)
	}
}

func TestEmitSRT_UsesTranslatedText(t *testing.T) {
	src := writeTemp(t, "in.srt", sampleSRT)

	file, err := Parse(src)
	require.NoError(t, err)
	file.Entries[0].TranslatedText = "Olá."

	dst := filepath.Join(t.TempDir(), "out.srt")
	require.NoError(t, Emit(file, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Olá.")
	assert.NotContains(t, string(data), "Hello there.")
	// untranslated cues keep their original text
	assert.Contains(t, string(data), "<i>How are you?</i>")
}

func TestEmitASS_PreservesNonDialogueSections(t *testing.T) {
	src := writeTemp(t, "in.ass", sampleASS)

	file, err := Parse(src)
	require.NoError(t, err)
	file.Entries[0].TranslatedText = ReplacePlain(file.Entries[0], "Olá")

	dst := filepath.Join(t.TempDir(), "out.ass")
	require.NoError(t, Emit(file, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "[Script Info]")
	assert.Contains(t, out, "Style: Default,Arial,20")
	assert.Contains(t, out, `{\i1}Olá{\i0}`)
	// timestamps and style fields untouched
	assert.Contains(t, out, "Dialogue: 0,0:00:01.00,0:00:03.50,Default,,0,0,0,,")
}

func TestEmitASS_RoundTripWithoutTranslation(t *testing.T) {
	src := writeTemp(t, "in.ass", sampleASS)

	file, err := Parse(src)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "out.ass")
	require.NoError(t, Emit(file, dst))

	original, err := os.ReadFile(src)
	require.NoError(t, err)
	emitted, err := os.ReadFile(dst)
	require.NoError(t, err)

	assert.Equal(t,
		strings.TrimRight(string(original), "\n"),
		strings.TrimRight(string(emitted), "\n"))
}

func TestEmit_SameCueCount(t *testing.T) {
	src := writeTemp(t, "in.ass", sampleASS)

	file, err := Parse(src)
	require.NoError(t, err)
	for i := range file.Entries {
		file.Entries[i].TranslatedText = ReplacePlain(file.Entries[i], "x")
	}

	dst := filepath.Join(t.TempDir(), "out.ass")
	require.NoError(t, Emit(file, dst))

	reparsed, err := Parse(dst)
	require.NoError(t, err)
	assert.Len(t, reparsed.Entries, len(file.Entries))
}

func TestFormatASSDuration(t *testing.T) {
	assert.Equal(t, "0:00:01.00", FormatASSDuration(1e9))
	assert.Equal(t, "1:02:03.45", FormatASSDuration(3723450*1e6))
}
