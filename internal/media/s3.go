package media

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/eleven-am/foodgram/internal/logger"
)

// objectAPI is the part of *s3.Client the store uses
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config selects a bucket on AWS or an S3-compatible service
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
	Public    bool   `yaml:"public"`
}

// S3Store keeps images as objects under prefix
type S3Store struct {
	client objectAPI
	bucket string
	prefix string
	public bool
	log    logger.Logger
}

// NewS3Store loads the AWS configuration chain, overriding credentials and
// endpoint when they are set in cfg.
func NewS3Store(ctx context.Context, cfg S3Config, prefix string) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return newS3Store(client, cfg, prefix), nil
}

func newS3Store(client objectAPI, cfg S3Config, prefix string) *S3Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
		public: cfg.Public,
		log:    logger.Media().WithFields(map[string]interface{}{"backend": "s3", "bucket": cfg.Bucket}),
	}
}

func (s *S3Store) Save(ctx context.Context, data string) (string, error) {
	img, err := DecodeDataURI(data)
	if err != nil {
		return "", err
	}

	key := objectKey(s.prefix, img.Ext)
	input := &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(img.Data),
		ContentType:  aws.String(img.ContentType),
		CacheControl: aws.String("public, max-age=31536000"),
	}
	if s.public {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload image %s: %w", key, err)
	}

	s.log.WithField("key", key).Debug("image uploaded")
	return key, nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	key, err := cleanRef(s.prefix, ref)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
