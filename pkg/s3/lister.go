package s3

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	tzc "github.com/meteotest/quadkeys/pkg/coord"
)

// Object is a listed tile object.
type Object struct {
	Key   string
	Coord tzc.Coord
}

// Lister pages through a bucket and parses every object key into a tile
// coordinate.
type Lister struct {
	svc    s3iface.S3API
	bucket string
	// OnSkip, when set, is called for keys that are not tile objects.
	OnSkip func(key string, err error)
}

func NewLister(svc s3iface.S3API, bucket string) *Lister {
	return &Lister{svc: svc, bucket: bucket}
}

// List calls fn with the tiles found on each page under prefix. It stops at
// the first error from the service or when ctx is done.
func (l *Lister) List(ctx context.Context, prefix string, fn func([]Object)) error {
	input := awss3.ListObjectsInput{
		Bucket: aws.String(l.bucket),
		Prefix: aws.String(prefix),
	}
	return l.svc.ListObjectsPagesWithContext(ctx, &input, func(output *awss3.ListObjectsOutput, lastPage bool) bool {
		objects := make([]Object, 0, len(output.Contents))
		for _, obj := range output.Contents {
			key := aws.StringValue(obj.Key)
			c, err := ParseCoordFromKey(key)
			if err != nil {
				if l.OnSkip != nil {
					l.OnSkip(key, err)
				}
				continue
			}
			objects = append(objects, Object{Key: key, Coord: *c})
		}
		fn(objects)
		return ctx.Err() == nil
	})
}
