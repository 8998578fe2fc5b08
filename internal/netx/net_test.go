package netx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformDriveURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "file share link",
			in:   "https://drive.google.com/file/d/1AbC_d-9/view?usp=sharing",
			want: "https://drive.google.com/uc?export=download&confirm=t&id=1AbC_d-9",
			ok:   true,
		},
		{
			name: "open id link",
			in:   "https://drive.google.com/open?id=XYZ123",
			want: "https://drive.google.com/uc?export=download&confirm=t&id=XYZ123",
			ok:   true,
		},
		{
			name: "sheets link",
			in:   "https://docs.google.com/spreadsheets/d/SHEET_1/edit#gid=0",
			want: "https://docs.google.com/spreadsheets/d/SHEET_1/export?format=xlsx",
			ok:   true,
		},
		{name: "plain url", in: "https://example.com/stock.xlsx", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TransformDriveURL(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetch_ContentDispositionName(t *testing.T) {
	payload := strings.Repeat("x", 200*1024)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="../../stock report.xlsx"`)
		_, _ = w.Write([]byte(payload))
	}))
	defer ts.Close()

	dir := t.TempDir()
	p, err := NewDownloader(time.Second).Fetch(context.Background(), ts.URL+"/download", dir)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(p))
	assert.True(t, strings.HasSuffix(p, "_stock report.xlsx"), p)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, len(payload), len(b))
}

func TestFetch_URLBasenameAndFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	defer ts.Close()

	d := NewDownloader(time.Second)
	d.now = func() time.Time { return time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC) }
	dir := t.TempDir()

	p, err := d.Fetch(context.Background(), ts.URL+"/files/stock.csv", dir)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, "_stock.csv"), p)

	p, err = d.Fetch(context.Background(), ts.URL+"/", dir)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, "_import_20250301_102030.xlsx"), p)
}

func TestFetch_NonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	dir := t.TempDir()
	_, err := NewDownloader(time.Second).Fetch(context.Background(), ts.URL+"/x.xlsx", dir)

	var te *common.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.Status)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestFetch_ConnectionError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := NewDownloader(time.Second).Fetch(context.Background(), url+"/x.xlsx", t.TempDir())
	var te *common.TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.Status)
	assert.Error(t, te.Err)
}

func TestFetch_Cancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDownloader(0).Fetch(ctx, ts.URL+"/x.xlsx", t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsDriveHost(t *testing.T) {
	assert.True(t, isDriveHost("https://drive.google.com/uc?id=1"))
	assert.True(t, isDriveHost("https://docs.google.com/spreadsheets/d/1/export"))
	assert.False(t, isDriveHost("https://example.com/drive.google.com"))
	assert.False(t, isDriveHost("::bad"))
}

func TestResolve(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	defer ts.Close()
	d := NewDownloader(time.Second)

	local := filepath.Join(t.TempDir(), "stock.xlsx")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o600))
	got, err := d.Resolve(context.Background(), local, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, local, got)

	got, err = d.Resolve(context.Background(), ts.URL+"/remote.xlsx", t.TempDir())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "_remote.xlsx"))

	_, err = d.Resolve(context.Background(), "/no/such/file.xlsx", t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestFetch_DriveForbiddenHint(t *testing.T) {
	var gotURL string
	d := NewDownloader(time.Second)
	d.client.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return &http.Response{
			StatusCode: http.StatusForbidden,
			Body:       http.NoBody,
			Header:     http.Header{},
			Request:    r,
		}, nil
	})

	_, err := d.Fetch(context.Background(), "https://drive.google.com/file/d/ABC/view", t.TempDir())
	var te *common.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusForbidden, te.Status)
	assert.Contains(t, err.Error(), "Anyone with the link")
	assert.Equal(t, "https://drive.google.com/uc?export=download&confirm=t&id=ABC", gotURL)
}
