package render_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexmorten/rconsole/internal/render"
)

func TestTemplateRenderer_RendersHeartbeat(t *testing.T) {
	r, err := render.NewTemplateRenderer()
	require.NoError(t, err)

	out, err := r.Render("heartbeat", struct{ Timestamp time.Time }{Timestamp: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)})
	require.NoError(t, err)
	assert.Contains(t, out, "15:04:05")
}

func TestTemplateRenderer_RendersRconResponseAndEscapesHTML(t *testing.T) {
	r, err := render.NewTemplateRenderer()
	require.NoError(t, err)

	out, err := r.Render("rcon/response", struct{ Command, Response string }{
		Command:  "say <script>",
		Response: "ok",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
}

func TestTemplateRenderer_RendersServerListUpdate(t *testing.T) {
	r, err := render.NewTemplateRenderer()
	require.NoError(t, err)

	out, err := r.Render("servers/list_update", struct {
		ServerUID string
		Connected bool
	}{ServerUID: "abc-123", Connected: true})
	require.NoError(t, err)
	assert.Contains(t, out, "abc-123")
	assert.Contains(t, out, "online")
}

func TestTemplateRenderer_UnknownTemplateErrors(t *testing.T) {
	r, err := render.NewTemplateRenderer()
	require.NoError(t, err)

	_, err = r.Render("does/not-exist", nil)
	assert.Error(t, err)
}
