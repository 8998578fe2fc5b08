package exporter

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o600))
	require.NoError(t, os.Chtimes(p, mod, mod))
	return p
}

func TestDirArchiver_ArchiveAndRecent(t *testing.T) {
	tmp := t.TempDir()
	archiveDir := filepath.Join(tmp, "orders_archive")
	a := NewDirArchiver(archiveDir)

	src := touch(t, tmp, "Order_Acme.xlsx", time.Now())
	loc, err := a.Archive(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archiveDir, "Order_Acme.xlsx"), loc)
	assert.NoFileExists(t, src)
	assert.FileExists(t, loc)

	base := time.Now().Add(-time.Hour)
	touch(t, archiveDir, "old.xlsx", base)
	touch(t, archiveDir, "mid.xlsx.zip", base.Add(time.Minute))
	touch(t, archiveDir, "notes.txt", base.Add(2*time.Minute))

	recent, err := a.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Order_Acme.xlsx", recent[0].Name)
	assert.Equal(t, "mid.xlsx.zip", recent[1].Name)
}

func TestDirArchiver_RecentMissingDir(t *testing.T) {
	a := NewDirArchiver(filepath.Join(t.TempDir(), "none"))
	files, err := a.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, files)
}

type fakeS3 struct {
	putKeys   []string
	putBodies []string
	putErr    error
	objects   []types.Object
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, _ := io.ReadAll(in.Body)
	f.putKeys = append(f.putKeys, aws.ToString(in.Key))
	f.putBodies = append(f.putBodies, string(b))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{Contents: f.objects, IsTruncated: aws.Bool(false)}, nil
}

func TestS3Archiver_Archive(t *testing.T) {
	src := touch(t, t.TempDir(), "Order_Acme.xlsx", time.Now())
	fake := &fakeS3{}
	a := NewS3Archiver(fake, "vault")

	loc, err := a.Archive(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, fake.putKeys, 1)
	assert.True(t, strings.HasPrefix(fake.putKeys[0], "orders/"))
	assert.True(t, strings.HasSuffix(fake.putKeys[0], "/Order_Acme.xlsx"))
	assert.Equal(t, "Order_Acme.xlsx", fake.putBodies[0])
	assert.Equal(t, "s3://vault/"+fake.putKeys[0], loc)
	assert.NoFileExists(t, src)
}

func TestS3Archiver_ArchiveErrorKeepsFile(t *testing.T) {
	src := touch(t, t.TempDir(), "Order_Acme.xlsx", time.Now())
	a := NewS3Archiver(&fakeS3{putErr: errors.New("denied")}, "vault")

	_, err := a.Archive(context.Background(), src)
	require.ErrorContains(t, err, "denied")
	assert.FileExists(t, src)
}

func TestS3Archiver_Recent(t *testing.T) {
	now := time.Now()
	fake := &fakeS3{objects: []types.Object{
		{Key: aws.String("orders/2025/01/a.xlsx"), Size: aws.Int64(10), LastModified: aws.Time(now.Add(-2 * time.Hour))},
		{Key: aws.String("orders/2025/01/readme.md"), Size: aws.Int64(1), LastModified: aws.Time(now)},
		{Key: aws.String("orders/2025/02/b.xlsx.zip"), Size: aws.Int64(20), LastModified: aws.Time(now.Add(-time.Hour))},
	}}
	a := NewS3Archiver(fake, "vault")

	files, err := a.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "b.xlsx.zip", files[0].Name)
	assert.Equal(t, "s3://vault/orders/2025/02/b.xlsx.zip", files[0].Location)
	assert.Equal(t, int64(10), files[1].Size)
}

func TestNewS3Client_AppliesOptions(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	c, err := NewS3Client(context.Background(), S3Options{Region: "eu-central-1", User: "u", Password: "p", Endpoint: "http://minio:9000"})
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://minio:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = NewS3Client(context.Background(), S3Options{})
	require.EqualError(t, err, "load-fail")
}
