package docstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ideas-go/internal/config"
)

// Credentials are static S3 keys. Empty keys fall back to the default AWS
// credential chain (environment, shared config, instance role).
type Credentials struct {
	AccessKey string
	SecretKey string
	Session   string
}

// NewS3StoreFromConfig builds an S3 client for cfg and wraps it in a Store.
func NewS3StoreFromConfig(ctx context.Context, cfg config.RemoteConfig, creds Credentials) (*S3Store, error) {
	if cfg.Type != "s3" {
		return nil, fmt.Errorf("remote type %q is not s3", cfg.Type)
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 remote requires s3_bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if creds.AccessKey != "" && creds.SecretKey != "" {
		provider := credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, creds.Session)
		opts = append(opts, awsconfig.WithCredentialsProvider(provider))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3PathStyle
	})
	return NewS3Store(client, cfg.S3Bucket, cfg.S3Prefix), nil
}
