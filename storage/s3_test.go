package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	input *s3.PutObjectInput
	body  []byte
	calls int
	err   error
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.calls++
	m.input = params
	m.body, _ = io.ReadAll(params.Body)
	if m.err != nil {
		return nil, m.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Writer(t *testing.T) {
	t.Run("uploads on close", func(t *testing.T) {
		client := &mockS3{}
		w := NewS3Writer(context.Background(), client, "bucket", "exchanges", "1.groq.json")

		_, err := io.WriteString(w, `{"a":1}`)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())

		assert.Equal(t, 1, client.calls)
		assert.Equal(t, "bucket", *client.input.Bucket)
		assert.Equal(t, "exchanges/1.groq.json", *client.input.Key)
		assert.Equal(t, `{"a":1}`, string(client.body))

		_, err = w.Write([]byte("late"))
		assert.Error(t, err)
	})

	t.Run("empty buffer is not uploaded", func(t *testing.T) {
		client := &mockS3{}
		w := NewS3Writer(context.Background(), client, "bucket", "", "empty.json")
		require.NoError(t, w.Close())
		assert.Equal(t, 0, client.calls)
	})

	t.Run("put failure", func(t *testing.T) {
		client := &mockS3{err: errors.New("access denied")}
		w := NewS3Writer(context.Background(), client, "bucket", "p", "x.json")
		w.Write([]byte("x"))
		err := w.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access denied")
	})
}
