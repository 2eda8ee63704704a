package testutil

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/s3api"
)

// FakeObject is an object stored by FakeS3.
type FakeObject struct {
	Data        []byte
	ETag        string // unquoted
	ContentType string
}

type fakeUpload struct {
	bucket string
	key    string
	parts  map[int32][]byte
}

// FakeS3 is an in-memory S3 that assigns ETags the way S3 does: the MD5 of the
// body for PutObject, and the MD5 of the concatenated part MD5s plus "-N" for
// a completed multipart upload. It records call counts for assertions and lets
// tests inject failures per call.
type FakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]FakeObject
	uploads map[string]*fakeUpload
	nextID  int

	// Calls counts requests per operation name.
	calls map[string]int

	// Aborted lists the upload IDs passed to AbortMultipartUpload.
	aborted []string

	// PutObjectHook, when set, runs before a PutObject is applied; a non-nil error fails the call.
	PutObjectHook func(ctx context.Context, key string, attempt int) error

	// UploadPartHook, when set, runs before a part is stored; a non-nil error fails the call.
	UploadPartHook func(ctx context.Context, key string, partNumber int32, attempt int) error

	// ETagHook, when set, may rewrite the ETag returned for a committed object.
	ETagHook func(key, etag string) string

	// HeadObjectHook, when set, runs before HeadObject; a non-nil error fails the call.
	HeadObjectHook func(ctx context.Context, key string) error

	// DenyAccess makes HeadBucket fail with 403.
	DenyAccess bool

	partAttempts map[string]int
	putAttempts  map[string]int
}

var _ s3api.S3API = (*FakeS3)(nil)

// NewFakeS3 creates a fake with the given buckets.
func NewFakeS3(buckets ...string) *FakeS3 {
	f := &FakeS3{
		buckets:      map[string]bool{},
		objects:      map[string]FakeObject{},
		uploads:      map[string]*fakeUpload{},
		calls:        map[string]int{},
		partAttempts: map[string]int{},
		putAttempts:  map[string]int{},
	}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	return f
}

func objectID(bucket, key string) string {
	return bucket + "/" + key
}

// Seed stores an object directly with the given ETag, bypassing ETag computation.
func (f *FakeS3) Seed(bucket, key string, data []byte, etag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectID(bucket, key)] = FakeObject{Data: data, ETag: etag}
}

// Object returns a stored object.
func (f *FakeS3) Object(bucket, key string) (FakeObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[objectID(bucket, key)]
	return o, ok
}

// Calls returns how often operation op was invoked.
func (f *FakeS3) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Aborted returns the aborted upload IDs.
func (f *FakeS3) Aborted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.aborted...)
}

// OpenUploads returns the number of multipart uploads neither completed nor aborted.
func (f *FakeS3) OpenUploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *FakeS3) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *FakeS3) checkBucket(bucket string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.buckets[bucket] {
		return APIError("NoSuchBucket")
	}
	return nil
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// HeadBucket implements s3api.S3API.
func (f *FakeS3) HeadBucket(
	ctx context.Context,
	params *s3.HeadBucketInput,
	_ ...func(*s3.Options),
) (*s3.HeadBucketOutput, error) {
	f.count("HeadBucket")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.DenyAccess {
		return nil, HTTPError(403)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.buckets[aws.ToString(params.Bucket)] {
		return nil, &awstypes.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

// HeadObject implements s3api.S3API.
func (f *FakeS3) HeadObject(
	ctx context.Context,
	params *s3.HeadObjectInput,
	_ ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	f.count("HeadObject")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := aws.ToString(params.Key)
	if f.HeadObjectHook != nil {
		if err := f.HeadObjectHook(ctx, key); err != nil {
			return nil, err
		}
	}
	if err := f.checkBucket(aws.ToString(params.Bucket)); err != nil {
		return nil, err
	}

	o, ok := f.Object(aws.ToString(params.Bucket), key)
	if !ok {
		return nil, &awstypes.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ETag:          aws.String(Quote(o.ETag)),
		ContentLength: aws.Int64(int64(len(o.Data))),
		ContentType:   aws.String(o.ContentType),
	}, nil
}

// PutObject implements s3api.S3API.
func (f *FakeS3) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	f.count("PutObject")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bucket, key := aws.ToString(params.Bucket), aws.ToString(params.Key)

	f.mu.Lock()
	f.putAttempts[objectID(bucket, key)]++
	attempt := f.putAttempts[objectID(bucket, key)]
	f.mu.Unlock()

	if f.PutObjectHook != nil {
		if err := f.PutObjectHook(ctx, key, attempt); err != nil {
			return nil, err
		}
	}
	if err := f.checkBucket(bucket); err != nil {
		return nil, err
	}

	var data []byte
	if params.Body != nil {
		var err error
		if data, err = io.ReadAll(params.Body); err != nil {
			return nil, err
		}
	}
	if params.ContentLength != nil && aws.ToInt64(params.ContentLength) != int64(len(data)) {
		return nil, APIError("IncompleteBody")
	}

	etag := md5Hex(data)
	if f.ETagHook != nil {
		etag = f.ETagHook(key, etag)
	}

	f.mu.Lock()
	f.objects[objectID(bucket, key)] = FakeObject{Data: data, ETag: etag, ContentType: aws.ToString(params.ContentType)}
	f.mu.Unlock()

	return &s3.PutObjectOutput{ETag: aws.String(Quote(etag))}, nil
}

// CreateMultipartUpload implements s3api.S3API.
func (f *FakeS3) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	f.count("CreateMultipartUpload")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.checkBucket(aws.ToString(params.Bucket)); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := "upload-" + strconv.Itoa(f.nextID)
	f.uploads[id] = &fakeUpload{
		bucket: aws.ToString(params.Bucket),
		key:    aws.ToString(params.Key),
		parts:  map[int32][]byte{},
	}
	return &s3.CreateMultipartUploadOutput{
		Bucket:   params.Bucket,
		Key:      params.Key,
		UploadId: aws.String(id),
	}, nil
}

// UploadPart implements s3api.S3API.
func (f *FakeS3) UploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	_ ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	f.count("UploadPart")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := aws.ToString(params.UploadId)
	number := aws.ToInt32(params.PartNumber)
	key := aws.ToString(params.Key)

	f.mu.Lock()
	attemptKey := fmt.Sprintf("%s#%d", id, number)
	f.partAttempts[attemptKey]++
	attempt := f.partAttempts[attemptKey]
	_, open := f.uploads[id]
	f.mu.Unlock()

	if !open {
		return nil, APIError("NoSuchUpload")
	}
	if f.UploadPartHook != nil {
		if err := f.UploadPartHook(ctx, key, number, attempt); err != nil {
			return nil, err
		}
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	up, ok := f.uploads[id]
	if !ok {
		return nil, APIError("NoSuchUpload")
	}
	up.parts[number] = data
	return &s3.UploadPartOutput{ETag: aws.String(Quote(md5Hex(data)))}, nil
}

// CompleteMultipartUpload implements s3api.S3API.
// Parts must be listed in ascending order and match the uploaded part ETags.
func (f *FakeS3) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	f.count("CompleteMultipartUpload")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id := aws.ToString(params.UploadId)
	up, ok := f.uploads[id]
	if !ok {
		return nil, APIError("NoSuchUpload")
	}
	if params.MultipartUpload == nil || len(params.MultipartUpload.Parts) == 0 {
		return nil, APIError("MalformedXML")
	}

	listed := params.MultipartUpload.Parts
	if !sort.SliceIsSorted(listed, func(i, j int) bool {
		return aws.ToInt32(listed[i].PartNumber) < aws.ToInt32(listed[j].PartNumber)
	}) {
		return nil, APIError("InvalidPartOrder")
	}

	var (
		content []byte
		concat  []byte
	)
	for _, p := range listed {
		data, ok := up.parts[aws.ToInt32(p.PartNumber)]
		if !ok || Quote(md5Hex(data)) != aws.ToString(p.ETag) {
			return nil, APIError("InvalidPart")
		}
		sum := md5.Sum(data)
		concat = append(concat, sum[:]...)
		content = append(content, data...)
	}

	etag := fmt.Sprintf("%s-%d", md5Hex(concat), len(listed))
	if f.ETagHook != nil {
		etag = f.ETagHook(up.key, etag)
	}

	f.objects[objectID(up.bucket, up.key)] = FakeObject{Data: content, ETag: etag}
	delete(f.uploads, id)

	return &s3.CompleteMultipartUploadOutput{
		Bucket: aws.String(up.bucket),
		Key:    aws.String(up.key),
		ETag:   aws.String(Quote(etag)),
	}, nil
}

// AbortMultipartUpload implements s3api.S3API.
func (f *FakeS3) AbortMultipartUpload(
	ctx context.Context,
	params *s3.AbortMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	f.count("AbortMultipartUpload")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.ToString(params.UploadId)
	f.aborted = append(f.aborted, id)
	if _, ok := f.uploads[id]; !ok {
		return nil, APIError("NoSuchUpload")
	}
	delete(f.uploads, id)
	return &s3.AbortMultipartUploadOutput{}, nil
}
