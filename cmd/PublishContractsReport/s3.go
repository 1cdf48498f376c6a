package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsTransport "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3GetObjectAPI is the interface for retrieving objects from an S3 bucket
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3PutObjectAPI is the interface for writing new or replacement objects in an S3 bucket
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ReadWriteObjectAPI is the interface for reading sheets and publishing reports
type S3ReadWriteObjectAPI interface {
	S3GetObjectAPI
	s3.HeadObjectAPIClient
	S3PutObjectAPI
}

// GetS3LastModified gets the "Last Modified" time for the S3 object.
// If the specified object does not exist, the returned *time.Time and error are both nil.
func GetS3LastModified(ctx context.Context, c s3.HeadObjectAPIClient, bucket, key string) (*time.Time, error) {
	headOutput, err := c.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key)})
	if err != nil {
		var respError *awsTransport.ResponseError
		if errors.As(err, &respError) && respError.ResponseError.HTTPStatusCode() == 404 {
			return nil, nil
		}
		return nil, err
	}
	return headOutput.LastModified, nil
}

// UploadS3Object uploads bytes read from r to an S3 object at the given bucket and key.
func UploadS3Object(ctx context.Context, c S3PutObjectAPI, bucket, key, contentType string, r io.Reader) error {
	_, err := c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(bucket),
		Key:                  aws.String(key),
		Body:                 r,
		ContentType:          aws.String(contentType),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	return err
}

// s3Source opens a contracts sheet stored in S3.
type s3Source struct {
	client S3GetObjectAPI
	bucket string
	key    string
}

func (s s3Source) String() string {
	return "s3://" + s.bucket + "/" + s.key
}

func (s s3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
