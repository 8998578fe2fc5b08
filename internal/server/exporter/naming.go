package exporter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/google/uuid"
)

var slugDrop = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// Slug makes a group value safe for a file name: symbols are stripped and
// whitespace runs become underscores. An empty result becomes "group".
func Slug(s string) string {
	s = strings.TrimSpace(slugDrop.ReplaceAllString(s, ""))
	s = strings.Join(strings.Fields(s), "_")
	if s == "" {
		return "group"
	}
	return s
}

// fileName builds "<prefix><slug>_<timestamp>_<rand>.xlsx". The random
// suffix keeps concurrent runs in the same minute apart.
func fileName(prefix, slug string, now time.Time) string {
	return fmt.Sprintf("%s%s_%s_%s.xlsx", prefix, slug, now.Format(common.SourceTimestampLayout), uuid.NewString()[:8])
}
