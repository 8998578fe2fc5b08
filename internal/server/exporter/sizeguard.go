package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// guardSize replaces path with a single-entry zip archive when the file is
// larger than limit and returns the path of the deliverable file. A limit
// of zero or less disables the guard.
func guardSize(path string, limit int64) (string, error) {
	if limit <= 0 {
		return path, nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if fi.Size() <= limit {
		return path, nil
	}

	zipPath := path + ".zip"
	if err := zipFile(path, zipPath); err != nil {
		_ = os.Remove(zipPath)
		return "", err
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("remove %s: %w", path, err)
	}
	return zipPath, nil
}

func zipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: filepath.Base(src), Method: zip.Deflate})
	if err != nil {
		_ = out.Close()
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("compress %s: %w", src, err)
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
