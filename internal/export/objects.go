package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pblboard/api/internal/util"
)

const presignTTL = 24 * time.Hour

// ObjectStore keeps export artifacts in an S3-compatible bucket.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewObjectStore connects and creates the bucket when it does not exist.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

// objectKey places artifacts under boards/<id>/ with a unique prefix so
// repeated exports never overwrite each other.
func objectKey(boardID, filename string) string {
	return path.Join("boards", boardID, util.NewID("export")+"-"+filename)
}

// Put uploads res and returns a presigned download URL.
func (o *ObjectStore) Put(ctx context.Context, boardID string, res *Result) (string, error) {
	key := objectKey(boardID, res.Filename)
	_, err := o.client.PutObject(ctx, o.bucket, key, bytes.NewReader(res.Data), int64(len(res.Data)),
		minio.PutObjectOptions{ContentType: res.MimeType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	u, err := o.client.PresignedGetObject(ctx, o.bucket, key, presignTTL, params)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}
