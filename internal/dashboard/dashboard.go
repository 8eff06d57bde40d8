package dashboard

import (
	"bytes"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/taskwise-ai/taskwise/internal/assistant"
	"github.com/taskwise-ai/taskwise/internal/audit"
	"github.com/taskwise-ai/taskwise/internal/records"
)

// Dashboard provides the chat-first web interface to the assistant.
type Dashboard struct {
	assistant *assistant.Assistant
	store     records.Store
	trail     *audit.Store
	md        goldmark.Markdown
	logger    *zap.Logger
}

// New creates a new Dashboard. trail may be nil.
func New(a *assistant.Assistant, store records.Store, trail *audit.Store, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{
		assistant: a,
		store:     store,
		trail:     trail,
		md: goldmark.New(goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(highlighting.WithStyle("monokai")),
		)),
		logger:    logger,
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/dashboard/stats", d.handleStats)
	r.Get("/api/dashboard/recent", d.handleRecent)
	r.Get("/ws/chat", d.handleWebSocket)
}

// renderHTML converts an assistant markdown reply to HTML for display.
func (d *Dashboard) renderHTML(markdown string) string {
	var buf bytes.Buffer
	if err := d.md.Convert([]byte(markdown), &buf); err != nil {
		return ""
	}
	return buf.String()
}
