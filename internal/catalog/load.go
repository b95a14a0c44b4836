package catalog

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	appconfig "github.com/boostcampwm2025/ios02-damago/internal/config"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
)

// ObjectGetter is the part of the S3 client the loader needs
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client creates an S3 client for the configured endpoint
func NewS3Client(ctx context.Context, cfg appconfig.AWSConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.Contains(endpoint, "://") {
				scheme := "https://"
				if cfg.DisableSSL {
					scheme = "http://"
				}
				endpoint = scheme + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Load reads the catalog from a local path or an s3://bucket/key source.
// getter may be nil for local sources.
func Load(ctx context.Context, source string, getter ObjectGetter) (*Catalog, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "s3://") {
		data, err = readS3(ctx, source, getter)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", source, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("source", source).
		Int("daily_questions", c.Len(models.TrackDailyQuestion)).
		Int("balance_games", c.Len(models.TrackBalanceGame)).
		Strs("pet_types", c.PetTypes()).
		Msg("Catalog loaded")
	return c, nil
}

func readS3(ctx context.Context, source string, getter ObjectGetter) ([]byte, error) {
	if getter == nil {
		return nil, fmt.Errorf("no S3 client configured")
	}
	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("invalid source: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("source must look like s3://bucket/key")
	}

	out, err := getter.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}
