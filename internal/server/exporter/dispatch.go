package exporter

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/stockkeeper/internal/filex"
	"github.com/dmitrijs2005/stockkeeper/internal/logging"
)

// Deliverer hands one file to its recipient (a chat upload, a console
// print). The file must not be touched after Deliverer returns.
type Deliverer func(ctx context.Context, path string) error

// Dispatch delivers each file in order and then archives it. When
// archiving fails the file is deleted instead. A delivery failure stops
// the run; the undelivered files are deleted and the error is returned.
// It returns the archive locations of the delivered files.
func Dispatch(ctx context.Context, files []string, deliver Deliverer, archiver Archiver, log logging.Logger) ([]string, error) {
	locations := make([]string, 0, len(files))

	for i, f := range files {
		if err := deliver(ctx, f); err != nil {
			for _, rest := range files[i:] {
				if rmErr := filex.Remove(rest); rmErr != nil {
					log.Warn(ctx, "cannot remove undelivered file", "file", rest, "error", rmErr)
				}
			}
			return locations, fmt.Errorf("deliver %s: %w", f, err)
		}

		if archiver == nil {
			if err := filex.Remove(f); err != nil {
				log.Warn(ctx, "cannot remove delivered file", "file", f, "error", err)
			}
			continue
		}

		loc, err := archiver.Archive(ctx, f)
		if err != nil {
			log.Warn(ctx, "archive failed, deleting file", "file", f, "error", err)
			if rmErr := filex.Remove(f); rmErr != nil {
				log.Error(ctx, "cannot remove file", "file", f, "error", rmErr)
			}
			continue
		}
		log.Debug(ctx, "file archived", "file", f, "location", loc)
		locations = append(locations, loc)
	}
	return locations, nil
}
