package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/stockkeeper/internal/filex"
)

// Archiver relocates delivered files out of the working directory.
type Archiver interface {
	// Archive moves the file at path into the archive and returns its new
	// location. The local file no longer exists on success.
	Archive(ctx context.Context, path string) (string, error)
	// Recent lists up to limit archived files, newest first.
	Recent(ctx context.Context, limit int) ([]ArchivedFile, error)
}

// ArchivedFile describes one archived order file.
type ArchivedFile struct {
	Name     string
	Location string
	Size     int64
	ModTime  time.Time
}

func isOrderFile(name string) bool {
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".zip")
}

func newestFirst(files []ArchivedFile, limit int) []ArchivedFile {
	sort.SliceStable(files, func(i, j int) bool { return files[i].ModTime.After(files[j].ModTime) })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files
}

// DirArchiver keeps the archive in a local directory.
type DirArchiver struct {
	dir string
}

func NewDirArchiver(dir string) *DirArchiver {
	return &DirArchiver{dir: dir}
}

func (a *DirArchiver) Archive(_ context.Context, path string) (string, error) {
	if err := os.MkdirAll(a.dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", a.dir, err)
	}
	dst := filepath.Join(a.dir, filepath.Base(path))
	if err := filex.MoveFile(path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (a *DirArchiver) Recent(_ context.Context, limit int) ([]ArchivedFile, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []ArchivedFile
	for _, e := range entries {
		if e.IsDir() || !isOrderFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, ArchivedFile{
			Name:     e.Name(),
			Location: filepath.Join(a.dir, e.Name()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	return newestFirst(files, limit), nil
}

// S3API is the part of the S3 client used by S3Archiver.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Options configures the S3-compatible archive backend.
type S3Options struct {
	Region   string
	User     string
	Password string
	Endpoint string
	Bucket   string
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// NewS3Client builds a path-style S3 client with static credentials, as
// used with MinIO.
func NewS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.User, o.Password, "")))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(opts *s3.Options) {
		if o.Endpoint != "" {
			opts.BaseEndpoint = aws.String(o.Endpoint)
		}
		opts.UsePathStyle = true
	}), nil
}

const s3Prefix = "orders/"

// S3Archiver uploads files to a bucket under orders/YYYY/MM/ and removes
// the local copy.
type S3Archiver struct {
	client S3API
	bucket string
}

func NewS3Archiver(client S3API, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket}
}

func (a *S3Archiver) key(name string, now time.Time) string {
	return fmt.Sprintf("%s%04d/%02d/%s", s3Prefix, now.Year(), int(now.Month()), name)
}

func (a *S3Archiver) Archive(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}

	key := a.key(filepath.Base(path), time.Now())
	contentType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if strings.HasSuffix(path, ".zip") {
		contentType = "application/zip"
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	_ = f.Close()
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}

	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("remove %s: %w", path, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

func (a *S3Archiver) Recent(ctx context.Context, limit int) ([]ArchivedFile, error) {
	var files []ArchivedFile

	p := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(s3Prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := key[strings.LastIndex(key, "/")+1:]
			if !isOrderFile(name) {
				continue
			}
			files = append(files, ArchivedFile{
				Name:     name,
				Location: fmt.Sprintf("s3://%s/%s", a.bucket, key),
				Size:     aws.ToInt64(obj.Size),
				ModTime:  aws.ToTime(obj.LastModified),
			})
		}
	}
	return newestFirst(files, limit), nil
}
