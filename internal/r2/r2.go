package r2

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// Client archives uploaded files to a Cloudflare R2 bucket.
type Client struct {
	svc       s3iface.S3API
	bucket    string
	publicURL string
}

// New creates a new R2 client.
func New(accountID, accessKey, secretKey, bucket, publicURL string) (*Client, error) {
	if accountID == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("missing R2 credentials")
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)

	s3Config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String("auto"), // R2 uses 'auto'
		S3ForcePathStyle: aws.Bool(true),
	}

	sess, err := session.NewSession(s3Config)
	if err != nil {
		return nil, err
	}
	return newWithService(s3.New(sess), bucket, publicURL), nil
}

func newWithService(svc s3iface.S3API, bucket, publicURL string) *Client {
	return &Client{svc: svc, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

// ObjectKey is the archive location of one received file.
func ObjectKey(chatID int64, fileID, fileName string) string {
	name := path.Base("/" + fileName)
	if name == "/" || name == "." {
		name = "file"
	}
	return path.Join("files", strconv.FormatInt(chatID, 10), fileID, name)
}

// Archive uploads data under key and returns the public URL if configured,
// or the key.
func (c *Client) Archive(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	if url := c.URL(key); url != "" {
		return url, nil
	}
	return key, nil
}

// URL returns the public URL for a given key, or "" when no public URL is set.
func (c *Client) URL(key string) string {
	if c.publicURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", c.publicURL, key)
}
