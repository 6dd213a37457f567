package s3

import (
	"bytes"
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
	"github.com/spindlework/a2ahost/pkg/stores"
)

/*
Store is the S3 Storage backend, one object per key inside a single bucket.
S3 object writes are atomic per key, which is all the Storage contract
requires; the engine serializes read-modify-write cycles above this layer.
*/
type Store struct {
	client *minio.Client
	bucket string
}

type StoreOption func(*Store)

/*
NewStore connects to the endpoint configured under s3.* and makes sure the
bucket exists.
*/
func NewStore(ctx context.Context, options ...StoreOption) (*Store, error) {
	store := &Store{
		bucket: viper.GetString("s3.bucket"),
	}

	for _, option := range options {
		option(store)
	}

	if store.bucket == "" {
		store.bucket = "a2ahost"
	}

	if store.client == nil {
		client, err := minio.New(viper.GetString("s3.endpoint"), &minio.Options{
			Creds: credentials.NewStaticV4(
				viper.GetString("s3.accessKey"),
				viper.GetString("s3.secretKey"),
				"",
			),
			Secure: viper.GetBool("s3.useSSL"),
		})

		if err != nil {
			return nil, err
		}

		store.client = client
	}

	// Object stores often come up moments after the host does, so the
	// bucket check retries before giving up.
	if err := rpcerrors.RetryWithBackoff(rpcerrors.DefaultRetryConfig(), func() error {
		exists, err := store.client.BucketExists(ctx, store.bucket)

		if err != nil {
			return err
		}

		if !exists {
			if err := store.client.MakeBucket(ctx, store.bucket, minio.MakeBucketOptions{}); err != nil {
				return err
			}

			log.Info("created bucket", "bucket", store.bucket)
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return store, nil
}

// WithClient injects a preconfigured minio client, used by tests.
func WithClient(client *minio.Client) StoreOption {
	return func(store *Store) {
		store.client = client
	}
}

// WithBucket overrides the configured bucket name.
func WithBucket(bucket string) StoreOption {
	return func(store *Store) {
		store.bucket = bucket
	}
}

func (store *Store) Read(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))

	for _, key := range keys {
		obj, err := store.client.GetObject(ctx, store.bucket, key, minio.GetObjectOptions{})

		if err != nil {
			return nil, err
		}

		buf, err := io.ReadAll(obj)
		obj.Close()

		if err != nil {
			if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
				continue
			}

			return nil, err
		}

		result[key] = buf
	}

	if len(result) == 0 && len(keys) > 0 {
		return result, stores.ErrNotFound
	}

	return result, nil
}

func (store *Store) Write(ctx context.Context, pairs map[string][]byte) error {
	for key, value := range pairs {
		_, err := store.client.PutObject(
			ctx,
			store.bucket,
			key,
			bytes.NewReader(value),
			int64(len(value)),
			minio.PutObjectOptions{ContentType: "application/json"},
		)

		if err != nil {
			log.Error("failed to put object", "key", key, "error", err)
			return err
		}
	}

	return nil
}

func (store *Store) Delete(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := store.client.RemoveObject(ctx, store.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			log.Error("failed to remove object", "key", key, "error", err)
			return err
		}
	}

	return nil
}
