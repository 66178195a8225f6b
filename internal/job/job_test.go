package job

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddContext_TrimsToWindow(t *testing.T) {
	t.Parallel()

	j := New("ep1.srt", "12345", "en", "pt-BR", 3, false)
	for i := 0; i < 10; i++ {
		j.AddContext(fmt.Sprintf("linha %d", i))
	}

	// kept at twice the window
	assert.Equal(t, []string{"linha 7", "linha 8", "linha 9"}, j.RecentContext(3))
	assert.Len(t, j.RecentContext(100), 6)
	assert.Nil(t, j.RecentContext(0))
}

func TestAddContext_SkipsEmpty(t *testing.T) {
	t.Parallel()

	j := New("ep1.srt", "", "en", "pt-BR", 5, false)
	j.AddContext("  ")
	j.AddContext("")
	assert.Nil(t, j.RecentContext(5))
}

func TestTrackAutoGlossary(t *testing.T) {
	t.Parallel()

	j := New("ep1.srt", "12345", "en", "pt-BR", 5, true)
	for i := 0; i < 3; i++ {
		j.TrackAutoGlossary("Akane went to Tokyo.", "Akane foi para Tokyo.")
	}
	j.TrackAutoGlossary("The Doctor is here.", "O médico está aqui.")

	suggested := j.SuggestedGlossary(3)
	assert.Equal(t, map[string]string{"akane": "Akane", "tokyo": "Tokyo"}, suggested)

	// threshold of one still excludes words that were translated
	all := j.SuggestedGlossary(1)
	assert.NotContains(t, all, "doctor")
	assert.NotContains(t, all, "the")
}

func TestTrackAutoGlossary_Disabled(t *testing.T) {
	t.Parallel()

	j := New("ep1.srt", "", "en", "pt-BR", 5, false)
	j.TrackAutoGlossary("Akane is here.", "Akane está aqui.")
	assert.Empty(t, j.SuggestedGlossary(1))
}

func TestSuggestedGlossary_PicksMostFrequentForm(t *testing.T) {
	t.Parallel()

	j := New("ep1.srt", "", "en", "pt-BR", 5, true)
	j.TrackAutoGlossary("SENPAI!", "SENPAI!")
	j.TrackAutoGlossary("Senpai, wait.", "Senpai, espere.")
	j.TrackAutoGlossary("Senpai is here.", "Senpai está aqui.")

	assert.Equal(t, map[string]string{"senpai": "Senpai"}, j.SuggestedGlossary(3))
}
