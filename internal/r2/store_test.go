package r2

import (
	"archive/zip"
	"bytes"
	"context"
	"image/color"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appconfig "github.com/HaiFongPan/rbrowse/internal/config"
	"github.com/HaiFongPan/rbrowse/internal/model"
)

// memS3 is an in-memory bucket
type memS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	refuse   map[string]bool
	pageSize int
}

func newMemS3(keys ...string) *memS3 {
	m := &memS3{objects: map[string][]byte{}, types: map[string]string{}, refuse: map[string]bool{}}
	for _, k := range keys {
		m.objects[k] = []byte("data:" + k)
	}
	return m
}

func (m *memS3) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := aws.ToString(in.Prefix)
	delimiter := aws.ToString(in.Delimiter)

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	// collapse into ordered results: object keys or common prefixes
	type result struct {
		key    string
		common bool
	}
	var results []result
	seen := map[string]bool{}
	for _, k := range keys {
		if delimiter != "" {
			rest := strings.TrimPrefix(k, prefix)
			if i := strings.Index(rest, delimiter); i >= 0 {
				cp := prefix + rest[:i+1]
				if !seen[cp] {
					seen[cp] = true
					results = append(results, result{key: cp, common: true})
				}
				continue
			}
		}
		results = append(results, result{key: k})
	}

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		start, _ = strconv.Atoi(tok)
	}
	size := len(results)
	if m.pageSize > 0 {
		size = m.pageSize
	}
	if in.MaxKeys != nil && int(*in.MaxKeys) < size {
		size = int(*in.MaxKeys)
	}
	end := min(start+size, len(results))

	out := &s3.ListObjectsV2Output{}
	for _, r := range results[start:end] {
		if r.common {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(r.key)})
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(r.key),
			Size:         aws.Int64(int64(len(m.objects[r.key]))),
			LastModified: aws.Time(time.Unix(1700000000, 0)),
		})
	}
	if end < len(results) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (m *memS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (m *memS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Key)] = data
	m.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) CopyObject(ctx context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	_, escaped, _ := strings.Cut(aws.ToString(in.CopySource), "/")
	segments := strings.Split(escaped, "/")
	for i, seg := range segments {
		segments[i], _ = url.PathUnescape(seg)
	}
	source := strings.Join(segments, "/")

	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[source]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	m.objects[aws.ToString(in.Key)] = data
	return &s3.CopyObjectOutput{}, nil
}

func (m *memS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (m *memS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &s3.DeleteObjectsOutput{}
	for _, obj := range in.Delete.Objects {
		key := aws.ToString(obj.Key)
		if m.refuse[key] {
			out.Errors = append(out.Errors, types.Error{Key: obj.Key, Message: aws.String("AccessDenied")})
			continue
		}
		delete(m.objects, key)
	}
	return out, nil
}

func fixtureBucket() *memS3 {
	return newMemS3(
		"output/a/x.txt",
		"output/a/deeper/y.txt",
		"output/b/",
		"output/img1.png",
		"output/notes.txt",
		"unrelated/z.txt",
	)
}

func listNames(t *testing.T, s *Store, dir string) []string {
	t.Helper()
	entries, err := s.List(context.Background(), dir)
	require.NoError(t, err)
	return model.Names(model.Normalize(dir, entries))
}

func TestList_FoldersAndFiles(t *testing.T) {
	s := NewStore(fixtureBucket(), "bucket", "output", model.RootPath)

	entries, err := s.List(context.Background(), model.RootPath)
	require.NoError(t, err)
	entries = model.Normalize(model.RootPath, entries)

	assert.Equal(t, []string{"a", "b", "img1.png", "notes.txt"}, model.Names(entries))
	assert.True(t, entries[0].IsFolder())
	assert.True(t, entries[2].IsPreviewable())
	assert.Equal(t, int64(len("data:output/notes.txt")), entries[3].Size)

	assert.Equal(t, []string{"deeper", "x.txt"}, listNames(t, s, "/output/a"))
	assert.Empty(t, listNames(t, s, "/output/b"), "marker object is not an entry")
}

func TestList_Paginates(t *testing.T) {
	bucket := fixtureBucket()
	bucket.pageSize = 1
	s := NewStore(bucket, "bucket", "output", model.RootPath)

	assert.Equal(t, []string{"a", "b", "img1.png", "notes.txt"}, listNames(t, s, model.RootPath))
}

func TestList_MissingAndOutsideRoot(t *testing.T) {
	s := NewStore(fixtureBucket(), "bucket", "output", model.RootPath)

	_, err := s.List(context.Background(), "/output/ghost")
	assert.True(t, model.IsNotFound(err))

	_, err = s.List(context.Background(), "/elsewhere")
	assert.True(t, model.IsNotFound(err))
}

func TestList_HidesArchives(t *testing.T) {
	bucket := newMemS3(".rbrowse-archives/old.zip", "photo.png")
	s := NewStore(bucket, "bucket", "", model.RootPath)
	assert.Equal(t, []string{"photo.png"}, listNames(t, s, model.RootPath))
}

func TestRename_File(t *testing.T) {
	bucket := fixtureBucket()
	s := NewStore(bucket, "bucket", "output", model.RootPath)
	ctx := context.Background()

	require.NoError(t, s.Rename(ctx, "/output/notes.txt", "/output/my notes.txt"))
	assert.False(t, bucket.has("output/notes.txt"))
	assert.True(t, bucket.has("output/my notes.txt"))

	err := s.Rename(ctx, "/output/img1.png", "/output/a")
	assert.True(t, model.IsConflict(err), "a folder occupies the name")
}

func TestRename_Folder(t *testing.T) {
	bucket := fixtureBucket()
	s := NewStore(bucket, "bucket", "output", model.RootPath)

	require.NoError(t, s.Rename(context.Background(), "/output/a", "/output/c"))
	assert.True(t, bucket.has("output/c/x.txt"))
	assert.True(t, bucket.has("output/c/deeper/y.txt"))
	assert.False(t, bucket.has("output/a/x.txt"))

	err := s.Rename(context.Background(), "/output/ghost", "/output/d")
	assert.True(t, model.IsNotFound(err))
}

func TestDeleteMany_PartialFailure(t *testing.T) {
	bucket := fixtureBucket()
	bucket.refuse["output/img1.png"] = true
	s := NewStore(bucket, "bucket", "output", model.RootPath)

	err := s.DeleteMany(context.Background(), model.RootPath, []string{"/output/a", "/output/img1.png", "/output/notes.txt"})
	var se *model.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "failed to delete 1 of 3 items", se.Message)

	assert.Equal(t, []string{"b", "img1.png"}, listNames(t, s, model.RootPath))
	assert.True(t, bucket.has("unrelated/z.txt"))
}

func TestCreateFolder(t *testing.T) {
	bucket := fixtureBucket()
	s := NewStore(bucket, "bucket", "output", model.RootPath)
	ctx := context.Background()

	require.NoError(t, s.CreateFolder(ctx, model.RootPath, "new"))
	assert.True(t, bucket.has("output/new/"))
	assert.Contains(t, listNames(t, s, model.RootPath), "new")
	assert.Empty(t, listNames(t, s, "/output/new"))

	assert.True(t, model.IsConflict(s.CreateFolder(ctx, model.RootPath, "a")))
	assert.True(t, model.IsConflict(s.CreateFolder(ctx, model.RootPath, "notes.txt")))
}

func TestUpload(t *testing.T) {
	bucket := fixtureBucket()
	s := NewStore(bucket, "bucket", "output", model.RootPath)
	ctx := context.Background()

	err := s.Upload(ctx, "/output/b", []model.UploadFile{
		{Name: "one.txt", Body: strings.NewReader("1")},
		{Name: "two.png", Body: io.NopCloser(strings.NewReader("not seekable"))},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one.txt", "two.png"}, listNames(t, s, "/output/b"))
	assert.Equal(t, "image/png", bucket.types["output/b/two.png"])
	assert.Equal(t, []byte("not seekable"), bucket.objects["output/b/two.png"])

	err = s.Upload(ctx, model.RootPath, []model.UploadFile{{Name: "notes.txt", Body: strings.NewReader("x")}})
	assert.True(t, model.IsConflict(err))
}

func TestArchiveLifecycle(t *testing.T) {
	bucket := fixtureBucket()
	s := NewStore(bucket, "bucket", "output", model.RootPath)
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	ctx := context.Background()

	id, err := s.Archive(ctx, model.RootPath, []string{"/output/a", "/output/notes.txt"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "output-20240102T030405Z-"), id)
	assert.True(t, bucket.has(archivePrefix+id))

	body, err := s.FetchArchive(ctx, id)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	body.Close()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a/deeper/y.txt", "a/x.txt", "notes.txt"}, names)

	require.NoError(t, s.DeleteArchive(ctx, id))
	assert.False(t, bucket.has(archivePrefix+id))

	_, err = s.FetchArchive(ctx, "../escape.zip")
	assert.Error(t, err)
}

func TestArchive_UnprefixedRoot(t *testing.T) {
	bucket := newMemS3("a/x.txt", "notes.txt")
	s := NewStore(bucket, "bucket", "", model.RootPath)
	ctx := context.Background()

	first, err := s.Archive(ctx, "/", []string{model.RootPath})
	require.NoError(t, err)
	second, err := s.Archive(ctx, "/", []string{model.RootPath})
	require.NoError(t, err)
	assert.True(t, bucket.has(archivePrefix+first))

	body, err := s.FetchArchive(ctx, second)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	body.Close()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	// 之前生成的临时归档不会被打包进去
	assert.Equal(t, []string{"output/a/x.txt", "output/notes.txt"}, names)
}

func TestPreview_Thumbnail(t *testing.T) {
	var png bytes.Buffer
	require.NoError(t, imaging.Encode(&png, imaging.New(256, 256, color.NRGBA{G: 255, A: 255}), imaging.PNG))
	bucket := newMemS3()
	bucket.objects["output/big.png"] = png.Bytes()
	s := NewStore(bucket, "bucket", "output", model.RootPath)

	rc, err := s.Preview(context.Background(), "/output/big.png", true)
	require.NoError(t, err)
	img, err := imaging.Decode(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())

	_, err = s.Preview(context.Background(), "/output/ghost.png", false)
	assert.True(t, model.IsNotFound(err))
}

func TestMapError(t *testing.T) {
	denied := &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusForbidden}},
		Err:      &smithy.GenericAPIError{Code: "AccessDenied", Message: "access denied"},
	}
	err := mapError("list", "/output", denied)
	var se *model.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Status)
	assert.Equal(t, "access denied", se.Message)

	assert.True(t, model.IsNotFound(mapError("get", "/x", &types.NoSuchKey{})))
	assert.True(t, model.IsNetwork(mapError("get", "/x", io.ErrUnexpectedEOF)))
	assert.ErrorIs(t, mapError("get", "/x", context.Canceled), context.Canceled)
	assert.NoError(t, mapError("get", "/x", nil))
}

func TestKeyspace(t *testing.T) {
	k := newKeyspace("/output", "/media/")
	assert.Equal(t, "media/", k.folderKey("/output"))
	assert.Equal(t, "media/a/b.png", k.objectKey("/output/a/b.png"))
	assert.Equal(t, "media/a/", k.folderKey("/output/a"))
	assert.True(t, k.contains("/output/a"))
	assert.False(t, k.contains("/outputs"))

	bare := newKeyspace("/output", "")
	assert.Equal(t, "", bare.folderKey("/output"))
	assert.Equal(t, "x/", bare.folderKey("/output/x"))
}

// MockS3 用于验证调用序列
type MockS3 struct {
	mock.Mock
	S3API
}

func (m *MockS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *MockS3) CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.CopyObjectOutput)
	return out, args.Error(1)
}

func TestRename_AccessDeniedDoesNotCopy(t *testing.T) {
	api := &MockS3{}
	denied := &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusForbidden}},
		Err:      &smithy.GenericAPIError{Code: "AccessDenied", Message: "access denied"},
	}
	api.On("HeadObject", mock.Anything, mock.Anything).Return(nil, denied)

	s := NewStore(api, "bucket", "output", model.RootPath)
	err := s.Rename(context.Background(), "/output/a.txt", "/output/b.txt")

	assert.Equal(t, http.StatusForbidden, model.StatusOf(err))
	api.AssertNotCalled(t, "CopyObject", mock.Anything, mock.Anything)
	api.AssertNumberOfCalls(t, "HeadObject", 1)
}

func TestEndpointFor(t *testing.T) {
	assert.Equal(t, "https://acc.r2.cloudflarestorage.com",
		endpointFor(&appconfig.R2Config{AccountID: "acc"}))
	assert.Equal(t, "https://acc.r2.cloudflarestorage.com",
		endpointFor(&appconfig.R2Config{AccountID: "acc", Endpoint: "auto"}))
	assert.Equal(t, "http://localhost:9000",
		endpointFor(&appconfig.R2Config{AccountID: "acc", Endpoint: "http://localhost:9000"}))
}
