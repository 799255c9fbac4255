package r2

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	puts map[string][]byte
	ct   map[string]string
	err  error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.StringValue(in.Key)] = data
	f.ct[aws.StringValue(in.Key)] = aws.StringValue(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New("acct", "", "secret", "bucket", "")
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "files/42/abc/report.pdf", ObjectKey(42, "abc", "report.pdf"))
	assert.Equal(t, "files/42/abc/passwd", ObjectKey(42, "abc", "../../etc/passwd"))
	assert.Equal(t, "files/-100/abc/file", ObjectKey(-100, "abc", ""))
}

func TestClient_Archive(t *testing.T) {
	fake := &fakeS3{puts: map[string][]byte{}, ct: map[string]string{}}
	c := newWithService(fake, "bucket", "https://cdn.example.com/")

	url, err := c.Archive(context.Background(), "files/1/x/a.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/files/1/x/a.png", url)
	assert.Equal(t, []byte("png"), fake.puts["files/1/x/a.png"])
	assert.Equal(t, "image/png", fake.ct["files/1/x/a.png"])

	c = newWithService(fake, "bucket", "")
	key, err := c.Archive(context.Background(), "files/1/x/b.bin", []byte("b"), "")
	require.NoError(t, err)
	assert.Equal(t, "files/1/x/b.bin", key)
	assert.Equal(t, "application/octet-stream", fake.ct["files/1/x/b.bin"])

	fake.err = errors.New("boom")
	_, err = c.Archive(context.Background(), "k", nil, "")
	assert.ErrorContains(t, err, "boom")
}
