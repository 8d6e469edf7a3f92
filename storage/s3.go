package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Writer buffers everything written to it and uploads it as one object on Close.
type S3Writer struct {
	ctx    context.Context
	s3     s3Putter
	bucket string
	key    string
	buf    bytes.Buffer
	closed bool
}

func NewS3Writer(ctx context.Context, client s3Putter, bucket, prefix, name string) *S3Writer {
	return &S3Writer{
		ctx:    ctx,
		s3:     client,
		bucket: bucket,
		key:    path.Join(prefix, name),
	}
}

func (w *S3Writer) Key() string { return w.key }

func (w *S3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("write to closed s3 writer %s", w.key)
	}
	return w.buf.Write(p)
}

// Close uploads the buffer. Empty buffers are not uploaded.
func (w *S3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.buf.Len() == 0 {
		return nil
	}

	_, err := w.s3.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(w.key),
		Body:        bytes.NewReader(w.buf.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object s3://%s/%s: %w", w.bucket, w.key, err)
	}
	return nil
}
