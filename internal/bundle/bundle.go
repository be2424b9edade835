// Package bundle fetches a fixture bundle (a zip of compiled fixture
// metadata, or any blob an operator wants staged alongside slimd) from S3
// before the server starts serving connections. Grounded on the S3 session
// and credential wiring in gravwell's s3Ingester (aws-sdk-go's
// session.NewSession + static credentials), using s3manager's higher-level
// Downloader in place of that example's raw GetObject call since slimd
// fetches one object to a file rather than streaming many.
package bundle

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	awssession "github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// ParseURL splits an "s3://bucket/key" reference, as accepted by slimd's
// --fixture-bundle flag, into its bucket and key.
func ParseURL(raw string) (bucket, key string, err error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("bundle: parsing %q: %w", raw, err)
	}
	if parsed.Scheme != "s3" {
		return "", "", fmt.Errorf("bundle: %q is not an s3:// URL", raw)
	}
	if parsed.Host == "" {
		return "", "", fmt.Errorf("bundle: %q is missing a bucket name", raw)
	}
	key = strings.TrimPrefix(parsed.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("bundle: %q is missing an object key", raw)
	}
	return parsed.Host, key, nil
}

// Source names the S3 object a fixture bundle is fetched from.
type Source struct {
	Region string
	Bucket string
	Key    string
	// AccessKeyID/SecretAccessKey are optional; when empty, the SDK's
	// default credential chain (environment, shared config, instance
	// role) is used instead of credentials.NewStaticCredentials.
	AccessKeyID     string
	SecretAccessKey string
}

// Fetch downloads src's object to destPath, truncating/creating it.
func Fetch(src Source, destPath string) error {
	cfg := aws.Config{Region: aws.String(src.Region)}
	if src.AccessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(src.AccessKeyID, src.SecretAccessKey, "")
	}

	sess, err := awssession.NewSession(&cfg)
	if err != nil {
		return fmt.Errorf("bundle: creating AWS session: %w", err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("bundle: creating %s: %w", destPath, err)
	}
	defer dest.Close()

	downloader := s3manager.NewDownloader(sess)
	_, err = downloader.Download(dest, &s3.GetObjectInput{
		Bucket: aws.String(src.Bucket),
		Key:    aws.String(src.Key),
	})
	if err != nil {
		return fmt.Errorf("bundle: downloading s3://%s/%s: %w", src.Bucket, src.Key, err)
	}
	return nil
}
