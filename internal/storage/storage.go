package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"

	"signage-cms/internal/config"
)

const manifestPrefix = "manifests/"

// Client is the manifest store devices poll for their schedule.
type Client struct {
	backend         StorageProvider
	bucketManifests string
}

func New(cfg *config.Config) (*Client, error) {
	var backend StorageProvider

	if cfg.Storage.Provider == "local" {
		backend = NewLocalProvider(cfg.Storage.LocalRoot)
	} else {
		// S3 or any S3-compatible endpoint (B2, MinIO)
		s3Config := &aws.Config{
			Credentials:      credentials.NewStaticCredentials(cfg.Storage.KeyID, cfg.Storage.AppKey, ""),
			Endpoint:         aws.String(cfg.Storage.Endpoint),
			Region:           aws.String(cfg.Storage.Region),
			S3ForcePathStyle: aws.Bool(true),
		}
		sess, err := session.NewSession(s3Config)
		if err != nil {
			return nil, fmt.Errorf("s3 session: %w", err)
		}
		backend = NewS3Provider(sess)
	}

	return NewWithProvider(backend, cfg.Storage.BucketManifests), nil
}

func NewWithProvider(backend StorageProvider, bucket string) *Client {
	return &Client{backend: backend, bucketManifests: bucket}
}

// ManifestKey is where a playlist's manifest lives in the bucket.
func ManifestKey(playlistID uint) string {
	return fmt.Sprintf("%splaylist-%d.json", manifestPrefix, playlistID)
}

// ManifestID is the inverse of ManifestKey.
func ManifestID(key string) (uint, bool) {
	name, ok := strings.CutPrefix(key, manifestPrefix+"playlist-")
	if !ok {
		return 0, false
	}
	name, ok = strings.CutSuffix(name, ".json")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(name, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (c *Client) PutManifest(ctx context.Context, playlistID uint, body []byte) error {
	return c.backend.Put(ctx, c.bucketManifests, ManifestKey(playlistID), bytes.NewReader(body), "application/json", "no-cache")
}

func (c *Client) GetManifest(ctx context.Context, playlistID uint) ([]byte, error) {
	obj, err := c.backend.Get(ctx, c.bucketManifests, ManifestKey(playlistID))
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()
	return io.ReadAll(obj.Body)
}

func (c *Client) ListManifests(ctx context.Context) ([]string, error) {
	keys, err := c.backend.List(ctx, c.bucketManifests, manifestPrefix)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if strings.HasSuffix(k, ".json") {
			out = append(out, k)
		}
	}
	return out, nil
}

func (c *Client) DeleteManifest(ctx context.Context, playlistID uint) error {
	return c.backend.Delete(ctx, c.bucketManifests, ManifestKey(playlistID))
}

func (c *Client) HasManifest(ctx context.Context, playlistID uint) (bool, error) {
	return c.backend.Exists(ctx, c.bucketManifests, ManifestKey(playlistID))
}
