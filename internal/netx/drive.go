package netx

import (
	"net/url"
	"regexp"
)

var (
	sheetsID = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	fileID   = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	queryID  = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
)

// TransformDriveURL rewrites a Google Drive or Sheets share link into a
// direct download link. Sheets are exported as xlsx. ok is false for links
// it does not recognise.
func TransformDriveURL(link string) (direct string, ok bool) {
	if !isDriveHost(link) {
		return "", false
	}
	if m := sheetsID.FindStringSubmatch(link); m != nil {
		return "https://docs.google.com/spreadsheets/d/" + m[1] + "/export?format=xlsx", true
	}

	id := ""
	if m := fileID.FindStringSubmatch(link); m != nil {
		id = m[1]
	} else if m := queryID.FindStringSubmatch(link); m != nil {
		id = m[1]
	}
	if id == "" {
		return "", false
	}
	return "https://drive.google.com/uc?export=download&confirm=t&id=" + url.QueryEscape(id), true
}

func isDriveHost(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "drive.google.com", "docs.google.com":
		return true
	}
	return false
}
