package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

// ObjectGetter is the part of the S3 client the loader needs
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SetS3Client overrides the client used for s3:// sources. Without one, a client is built from
// the default AWS configuration chain on first use.
func (l *Loader) SetS3Client(c ObjectGetter) {
	l.s3 = c
}

func (l *Loader) s3Client(ctx context.Context) (ObjectGetter, error) {
	if l.s3 != nil {
		return l.s3, nil
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	l.s3 = s3.NewFromConfig(cfg)
	return l.s3, nil
}

// parseS3URI splits s3://bucket/key
func parseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", models.NewConfigurationError("source", "path", "expected s3://bucket/key, got %q", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", models.NewConfigurationError("source", "path", "object key is missing in %q", uri)
	}
	return u.Host, key, nil
}

// fetchS3 downloads an object and parses it by the key's extension, defaulting to CSV
func (l *Loader) fetchS3(ctx context.Context, source models.DataSource) (*table.Table, error) {
	bucket, key, err := parseS3URI(source.Path)
	if err != nil {
		return nil, err
	}
	client, err := l.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, models.NotFoundError("object", source.Path)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	switch strings.ToLower(path.Ext(key)) {
	case ".json":
		return ReadJSON(out.Body)
	case ".xml":
		return ReadXML(out.Body)
	case ".parquet":
		return ReadParquet(ctx, out.Body)
	default:
		return ReadCSV(out.Body, delimiter(source.Delimiter))
	}
}
