// Package notify sends operational events to the log and, when configured,
// to a log chat.
package notify

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/dmitrijs2005/stockkeeper/internal/logging"
)

// Forwarder delivers a formatted message to a human-facing sink.
type Forwarder interface {
	Forward(ctx context.Context, text string) error
}

var htmlTag = regexp.MustCompile(`<[^<]+?>`)

// StripHTML removes markup tags, leaving the text.
func StripHTML(s string) string {
	return htmlTag.ReplaceAllString(s, "")
}

const maxForwardedError = 3000

type Notifier struct {
	log logging.Logger
	fwd Forwarder
}

// New returns a Notifier. fwd may be nil.
func New(log logging.Logger, fwd Forwarder) *Notifier {
	return &Notifier{log: log.With("module", "notify"), fwd: fwd}
}

func (n *Notifier) Info(ctx context.Context, text string) {
	n.log.Info(ctx, StripHTML(text))
	n.forward(ctx, "ℹ️ <b>INFO:</b>\n"+text)
}

func (n *Notifier) Warning(ctx context.Context, text string) {
	n.log.Warn(ctx, StripHTML(text))
	n.forward(ctx, "⚠️ <b>WARNING:</b>\n"+text)
}

func (n *Notifier) Error(ctx context.Context, text string, err error) {
	errText := "unknown error"
	if err != nil {
		errText = err.Error()
	}
	n.log.Error(ctx, StripHTML(text), "error", errText)

	if len(errText) > maxForwardedError {
		errText = errText[len(errText)-maxForwardedError:]
	}
	n.forward(ctx, fmt.Sprintf("🚨 <b>ERROR!</b>\n📝 %s\n🛑 <b>Error:</b> <code>%s</code>", text, errText))
}

func (n *Notifier) forward(ctx context.Context, msg string) {
	if n.fwd == nil {
		return
	}
	if err := n.fwd.Forward(ctx, msg); err != nil {
		n.log.Error(ctx, "cannot forward notification", "error", err)
	}
}

// WriterForwarder prints plain-text notifications to w.
type WriterForwarder struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterForwarder(w io.Writer) *WriterForwarder {
	return &WriterForwarder{w: w}
}

func (f *WriterForwarder) Forward(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := fmt.Fprintln(f.w, StripHTML(text))
	return err
}

const barWidth = 10

// ProgressBar renders current/total as a ten-cell bar with a percentage.
func ProgressBar(current, total int) string {
	if total <= 0 {
		return strings.Repeat("░", barWidth) + " 0%"
	}
	if current > total {
		current = total
	}
	if current < 0 {
		current = 0
	}
	filled := current * barWidth / total
	pct := current * 100 / total
	return strings.Repeat("▓", filled) + strings.Repeat("░", barWidth-filled) + fmt.Sprintf(" %d%%", pct)
}
