// Package r2 implements the directory client over an R2 (S3 compatible)
// bucket, treating "/" separated key prefixes as folders.
package r2

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/utils"
)

// S3API is the subset of the S3 client the store uses, so tests can fake it
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

const (
	// maxDeleteBatch is the S3 limit of keys per DeleteObjects call
	maxDeleteBatch = 1000
	// transferConcurrency bounds parallel copies and uploads
	transferConcurrency = 8
)

// Store browses one bucket prefix as a folder tree
type Store struct {
	api    S3API
	bucket string
	keys   keyspace
	now    func() time.Time
}

// NewStore creates a store over bucket, exposing prefix as root
func NewStore(api S3API, bucket, prefix, root string) *Store {
	return &Store{
		api:    api,
		bucket: bucket,
		keys:   newKeyspace(root, prefix),
		now:    time.Now,
	}
}

// List returns the folders (common prefixes) and objects directly under dirPath
func (s *Store) List(ctx context.Context, dirPath string) ([]model.Entry, error) {
	if !s.keys.contains(dirPath) {
		return nil, &model.NotFoundError{Op: "list", Path: dirPath}
	}
	prefix := s.keys.folderKey(dirPath)

	var entries []model.Entry
	found := prefix == s.keys.prefix

	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError("list", dirPath, err)
		}

		for _, cp := range page.CommonPrefixes {
			key := aws.ToString(cp.Prefix)
			found = true
			if s.keys.hidden(key) {
				continue
			}
			entries = append(entries, model.Entry{
				Name: strings.TrimSuffix(strings.TrimPrefix(key, prefix), "/"),
				Kind: model.KindFolder,
			})
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			found = true
			if key == prefix || s.keys.hidden(key) {
				// folder marker
				continue
			}
			name := strings.TrimPrefix(key, prefix)
			modified := aws.ToTime(obj.LastModified)
			entries = append(entries, model.Entry{
				Name:      name,
				Kind:      model.KindFile,
				Media:     utils.MediaOf(name),
				Size:      aws.ToInt64(obj.Size),
				CreatedAt: modified,
				UpdatedAt: modified,
			})
		}
	}

	if !found {
		return nil, &model.NotFoundError{Op: "list", Path: dirPath}
	}
	logrus.Debugf("r2: listed s3://%s/%s (%d entries)", s.bucket, prefix, len(entries))
	return entries, nil
}

// Rename moves a file or, key by key, a folder. S3 has no rename so this is
// copy then delete.
func (s *Store) Rename(ctx context.Context, entryPath, newFullPath string) error {
	if !s.keys.contains(entryPath) || !s.keys.contains(newFullPath) {
		return &model.ServerError{Op: "rename", Status: 400, Message: "path is outside the browsed root"}
	}

	isFile, err := s.objectExists(ctx, s.keys.objectKey(entryPath))
	if err != nil {
		return mapError("rename", entryPath, err)
	}
	if taken, err := s.pathExists(ctx, newFullPath); err != nil {
		return mapError("rename", newFullPath, err)
	} else if taken {
		return &model.ConflictError{Op: "rename", Path: newFullPath, Message: model.Base(newFullPath) + " already exists"}
	}

	if isFile {
		from, to := s.keys.objectKey(entryPath), s.keys.objectKey(newFullPath)
		if err := s.copyObject(ctx, from, to); err != nil {
			return mapError("rename", entryPath, err)
		}
		if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(from)}); err != nil {
			return mapError("rename", entryPath, err)
		}
		return nil
	}

	fromPrefix, toPrefix := s.keys.folderKey(entryPath), s.keys.folderKey(newFullPath)
	keys, err := s.keysUnder(ctx, fromPrefix)
	if err != nil {
		return mapError("rename", entryPath, err)
	}
	if len(keys) == 0 {
		return &model.NotFoundError{Op: "rename", Path: entryPath}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(transferConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			return s.copyObject(gctx, key, toPrefix+strings.TrimPrefix(key, fromPrefix))
		})
	}
	if err := g.Wait(); err != nil {
		return mapError("rename", entryPath, err)
	}

	if failed, err := s.deleteKeys(ctx, keys); err != nil {
		return mapError("rename", entryPath, err)
	} else if failed > 0 {
		return &model.ServerError{Op: "rename", Status: 500, Message: fmt.Sprintf("copied but failed to remove %d old objects", failed)}
	}
	logrus.Infof("r2: renamed folder %s to %s (%d objects)", fromPrefix, toPrefix, len(keys))
	return nil
}

// DeleteMany removes every entry, files and whole folders alike. A partial
// failure is reported as one server error.
func (s *Store) DeleteMany(ctx context.Context, dirPath string, entryPaths []string) error {
	var keys []string
	failed := 0
	for _, p := range entryPaths {
		if !s.keys.contains(p) || path.Clean(p) == s.keys.root {
			failed++
			continue
		}
		fileKey := s.keys.objectKey(p)
		isFile, err := s.objectExists(ctx, fileKey)
		if err != nil {
			return mapError("delete", p, err)
		}
		if isFile {
			keys = append(keys, fileKey)
			continue
		}
		under, err := s.keysUnder(ctx, s.keys.folderKey(p))
		if err != nil {
			return mapError("delete", p, err)
		}
		if len(under) == 0 {
			failed++
			continue
		}
		keys = append(keys, under...)
	}

	n, err := s.deleteKeys(ctx, keys)
	if err != nil {
		return mapError("delete", dirPath, err)
	}
	if failed > 0 || n > 0 {
		return &model.ServerError{Op: "delete", Status: 500, Message: fmt.Sprintf("failed to delete %d of %d items", min(failed+n, len(entryPaths)), len(entryPaths))}
	}
	return nil
}

// CreateFolder writes the empty marker object of a new folder
func (s *Store) CreateFolder(ctx context.Context, dirPath, name string) error {
	target := model.Join(dirPath, name)
	if taken, err := s.pathExists(ctx, target); err != nil {
		return mapError("create folder", target, err)
	} else if taken {
		return &model.ConflictError{Op: "create folder", Path: target, Message: name + " already exists"}
	}

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keys.folderKey(target)),
		Body:   bytes.NewReader(nil),
	})
	return mapError("create folder", target, err)
}

// Upload puts the files in parallel. Existing names are rejected up front.
func (s *Store) Upload(ctx context.Context, dirPath string, files []model.UploadFile) error {
	for _, f := range files {
		target := model.Join(dirPath, f.Name)
		if taken, err := s.pathExists(ctx, target); err != nil {
			return mapError("upload", target, err)
		} else if taken {
			return &model.ConflictError{Op: "upload", Path: target, Message: f.Name + " already exists"}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(transferConcurrency)
	for _, f := range files {
		g.Go(func() error {
			return s.putFile(gctx, s.keys.objectKey(model.Join(dirPath, f.Name)), f)
		})
	}
	return mapError("upload", dirPath, g.Wait())
}

func (s *Store) putFile(ctx context.Context, key string, f model.UploadFile) error {
	body, ok := f.Body.(io.ReadSeeker)
	if !ok {
		// the request signer needs a seekable body
		data, err := io.ReadAll(f.Body)
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
		body = bytes.NewReader(data)
	}

	contentType, err := utils.DetectContentType(f.Name, body)
	if err != nil {
		return fmt.Errorf("detect content type of %s: %w", f.Name, err)
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return err
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	return err
}

// Archive zips the entries into a temporary object and returns its name
func (s *Store) Archive(ctx context.Context, dirPath string, entryPaths []string) (string, error) {
	name := archiveName(dirPath, entryPaths, s.now())

	tmp, err := os.CreateTemp("", "rbrowse-*.zip")
	if err != nil {
		return "", err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := s.writeArchive(ctx, tmp, entryPaths); err != nil {
		return "", mapError("archive", dirPath, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(archivePrefix + name),
		Body:        tmp,
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return "", mapError("archive", dirPath, err)
	}
	logrus.Infof("r2: archived %d entries into %s", len(entryPaths), name)
	return name, nil
}

func (s *Store) writeArchive(ctx context.Context, w io.Writer, entryPaths []string) error {
	zw := zip.NewWriter(w)
	for _, p := range entryPaths {
		base := model.Base(p)
		fileKey := s.keys.objectKey(p)
		isFile := false
		// the mounted root maps to a folder prefix, never an object
		if fileKey != "" && !strings.HasSuffix(fileKey, "/") {
			var err error
			if isFile, err = s.objectExists(ctx, fileKey); err != nil {
				return err
			}
		}
		if isFile {
			if err := s.copyToZip(ctx, zw, fileKey, base); err != nil {
				return err
			}
			continue
		}

		prefix := s.keys.folderKey(p)
		keys, err := s.keysUnder(ctx, prefix)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if s.keys.hidden(key) {
				continue
			}
			name := base + "/" + strings.TrimPrefix(key, prefix)
			if strings.HasSuffix(key, "/") {
				if _, err := zw.Create(name); err != nil {
					return err
				}
				continue
			}
			if err := s.copyToZip(ctx, zw, key, name); err != nil {
				return err
			}
		}
	}
	return zw.Close()
}

func (s *Store) copyToZip(ctx context.Context, zw *zip.Writer, key, name string) error {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return err
	}
	defer out.Body.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: aws.ToTime(out.LastModified),
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, out.Body)
	return err
}

// FetchArchive streams a temporary archive
func (s *Store) FetchArchive(ctx context.Context, archiveID string) (io.ReadCloser, error) {
	if !validArchiveName(archiveID) {
		return nil, &model.ServerError{Op: "fetch archive", Status: 400, Message: "invalid archive name"}
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(archivePrefix + archiveID),
	})
	if err != nil {
		return nil, mapError("fetch archive", archiveID, err)
	}
	return out.Body, nil
}

// DeleteArchive removes a temporary archive
func (s *Store) DeleteArchive(ctx context.Context, archiveID string) error {
	if !validArchiveName(archiveID) {
		return &model.ServerError{Op: "delete archive", Status: 400, Message: "invalid archive name"}
	}
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(archivePrefix + archiveID),
	})
	return mapError("delete archive", archiveID, err)
}

// Preview streams an image, fitted into a thumbnail when asked
func (s *Store) Preview(ctx context.Context, entryPath string, thumbnail bool) (io.ReadCloser, error) {
	if !s.keys.contains(entryPath) {
		return nil, &model.NotFoundError{Op: "preview", Path: entryPath}
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keys.objectKey(entryPath)),
	})
	if err != nil {
		return nil, mapError("preview", entryPath, err)
	}
	if !thumbnail {
		return out.Body, nil
	}

	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, mapError("preview", entryPath, err)
	}
	thumb, err := utils.Thumbnail(data, entryPath)
	if err != nil {
		return nil, &model.ServerError{Op: "preview", Status: 415, Message: "not a decodable image"}
	}
	return io.NopCloser(bytes.NewReader(thumb)), nil
}

// objectExists reports whether exactly key exists
func (s *Store) objectExists(ctx context.Context, key string) (bool, error) {
	if key == "" || strings.HasSuffix(key, "/") {
		return false, nil
	}
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// pathExists reports whether a file or a folder occupies virtual
func (s *Store) pathExists(ctx context.Context, virtual string) (bool, error) {
	if ok, err := s.objectExists(ctx, s.keys.objectKey(virtual)); err != nil || ok {
		return ok, err
	}
	out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.keys.folderKey(virtual)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(out.Contents) > 0, nil
}

// keysUnder lists every key below prefix, recursively
func (s *Store) keysUnder(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// deleteKeys removes keys in batches and returns how many S3 refused
func (s *Store) deleteKeys(ctx context.Context, keys []string) (int, error) {
	failed := 0
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return failed, err
		}
		for _, e := range out.Errors {
			logrus.WithField("key", aws.ToString(e.Key)).Warnf("r2: delete refused: %s", aws.ToString(e.Message))
			failed++
		}
	}
	return failed, nil
}

func (s *Store) copyObject(ctx context.Context, from, to string) error {
	_, err := s.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(copySource(s.bucket, from)),
		Key:        aws.String(to),
	})
	return err
}

func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

func archiveName(dirPath string, entryPaths []string, now time.Time) string {
	base := model.Base(dirPath)
	if len(entryPaths) == 1 {
		name := model.Base(entryPaths[0])
		base = strings.TrimSuffix(name, path.Ext(name))
	}
	if base == "" || base == "/" {
		base = "archive"
	}
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s-%s.zip", base, now.UTC().Format("20060102T150405Z"), suffix)
}

func validArchiveName(name string) bool {
	return name != "" && !strings.Contains(name, "/") && strings.HasSuffix(name, ".zip")
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// mapError translates SDK failures into the model error taxonomy
func mapError(op, target string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if alreadyMapped(err) {
		return err
	}
	if isNotFound(err) {
		return &model.NotFoundError{Op: op, Path: target}
	}

	var apiErr smithy.APIError
	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &apiErr) {
		code := 500
		if errors.As(err, &status) {
			code = status.HTTPStatusCode()
		}
		logrus.WithFields(logrus.Fields{"op": op, "target": target, "code": apiErr.ErrorCode()}).Warnf("r2: request rejected: %s", apiErr.ErrorMessage())
		return &model.ServerError{Op: op, Status: code, Message: apiErr.ErrorMessage()}
	}
	return &model.NetworkError{Op: op, Err: err}
}

func alreadyMapped(err error) bool {
	var conflict *model.ConflictError
	var notFound *model.NotFoundError
	var server *model.ServerError
	var network *model.NetworkError
	return errors.As(err, &conflict) || errors.As(err, &notFound) ||
		errors.As(err, &server) || errors.As(err, &network)
}
