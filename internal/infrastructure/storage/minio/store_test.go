package minio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemPrep/internal/logging"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

// fakeAPI is an in-memory MinIOAPI: objects are stored as byte slices keyed
// by bucket/object.
type fakeAPI struct {
	buckets map[string]bool
	objects map[string][]byte
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{buckets: map[string]bool{}, objects: map[string][]byte{}}
}

func (f *fakeAPI) ListBuckets(context.Context) ([]miniogo.BucketInfo, error) {
	var out []miniogo.BucketInfo
	for b := range f.buckets {
		out = append(out, miniogo.BucketInfo{Name: b})
	}
	return out, nil
}

func (f *fakeAPI) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeAPI) MakeBucket(_ context.Context, bucket string, _ miniogo.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeAPI) FPutObject(_ context.Context, bucket, object, filePath string, _ miniogo.PutObjectOptions) (miniogo.UploadInfo, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return miniogo.UploadInfo{}, err
	}
	f.objects[bucket+"/"+object] = data
	return miniogo.UploadInfo{Bucket: bucket, Key: object, Size: int64(len(data))}, nil
}

func (f *fakeAPI) FGetObject(_ context.Context, bucket, object, filePath string, _ miniogo.GetObjectOptions) error {
	data, ok := f.objects[bucket+"/"+object]
	if !ok {
		return os.ErrNotExist
	}
	return os.WriteFile(filePath, data, 0o644)
}

func (f *fakeAPI) ListObjects(_ context.Context, bucket string, opts miniogo.ListObjectsOptions) <-chan miniogo.ObjectInfo {
	ch := make(chan miniogo.ObjectInfo)
	go func() {
		defer close(ch)
		for key := range f.objects {
			if !strings.HasPrefix(key, bucket+"/") {
				continue
			}
			name := strings.TrimPrefix(key, bucket+"/")
			if strings.HasPrefix(name, opts.Prefix) {
				ch <- miniogo.ObjectInfo{Key: name}
			}
		}
	}()
	return ch
}

func (f *fakeAPI) RemoveObject(_ context.Context, bucket, object string, _ miniogo.RemoveObjectOptions) error {
	delete(f.objects, bucket+"/"+object)
	return nil
}

func newTestStore(t *testing.T) (*ShardStore, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	api.buckets["shards"] = true
	return NewShardStoreWithClient(api, "shards", logging.NewNopLogger()), api
}

func TestShardStore_UploadAndDownload(t *testing.T) {
	store, api := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	local := filepath.Join(dir, "actives-0.sdf")
	require.NoError(t, os.WriteFile(local, []byte("fake shard payload"), 0o644))

	require.NoError(t, store.UploadFile(ctx, local, "actives-0.sdf"))
	assert.Equal(t, []byte("fake shard payload"), api.objects["shards/actives-0.sdf"])

	fetched := filepath.Join(dir, "fetched.sdf")
	require.NoError(t, store.Download(ctx, "actives-0.sdf", fetched))
	data, err := os.ReadFile(fetched)
	require.NoError(t, err)
	assert.Equal(t, "fake shard payload", string(data))
}

func TestShardStore_UploadMissingFile(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.UploadFile(context.Background(), filepath.Join(t.TempDir(), "absent.sdf"), "absent.sdf")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeShardUploadFailed))
}

func TestShardStore_ListShardsByPrefix(t *testing.T) {
	store, api := newTestStore(t)
	api.objects["shards/actives-0.sdf"] = []byte("a")
	api.objects["shards/actives-1.sdf"] = []byte("b")
	api.objects["shards/decoys-0.sdf"] = []byte("c")

	names, err := store.ListShards(context.Background(), "actives-")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"actives-0.sdf", "actives-1.sdf"}, names)
}

func TestShardStore_Remove(t *testing.T) {
	store, api := newTestStore(t)
	api.objects["shards/actives-0.sdf"] = []byte("a")

	require.NoError(t, store.Remove(context.Background(), "actives-0.sdf"))
	assert.Empty(t, api.objects)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/gzip", contentTypeFor("x.gob.gz"))
	assert.Equal(t, "chemical/x-mdl-sdfile", contentTypeFor("x.sdf"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("x.gob"))
}
