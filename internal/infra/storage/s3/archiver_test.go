package s3

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monteur/internal/app/dto"
)

type fakeObjects struct {
	exists  bool
	made    int
	objects map[string][]byte
	meta    map[string]map[string]string
	err     error
}

func (f *fakeObjects) BucketExists(context.Context, string) (bool, error) { return f.exists, f.err }

func (f *fakeObjects) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	f.made++
	f.exists = true
	return nil
}

func (f *fakeObjects) PutObject(_ context.Context, _ string, key string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.meta = map[string]map[string]string{}
	}
	f.objects[key] = body
	f.meta[key] = opts.UserMetadata
	return minio.UploadInfo{Key: key, Size: int64(len(body))}, nil
}

func snapshot() dto.ReservationSnapshot {
	return dto.ReservationSnapshot{
		Reservation: dto.Reservation{ID: "res-1", Unit: "kombi", Start: "2026-03-01", End: "2026-03-05"},
		PurgedAt:    time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
		PurgedBy:    "admin",
	}
}

func TestArchiverWritesSnapshot(t *testing.T) {
	objects := &fakeObjects{}
	a := newArchiver(objects, "audit", "", nil)

	require.NoError(t, a.Archive(context.Background(), snapshot()))
	require.NoError(t, a.Archive(context.Background(), snapshot()))
	assert.Equal(t, 1, objects.made)

	key := "purged-reservations/2026/res-1-1775044800.json"
	require.Contains(t, objects.objects, key)
	var got dto.ReservationSnapshot
	require.NoError(t, json.Unmarshal(objects.objects[key], &got))
	assert.Equal(t, "res-1", got.Reservation.ID)
	assert.Equal(t, "admin", objects.meta[key]["purged-by"])
}

func TestArchiverReportsBucketErrors(t *testing.T) {
	a := newArchiver(&fakeObjects{err: errors.New("access denied")}, "audit", "snapshots/", nil)
	assert.Error(t, a.Archive(context.Background(), snapshot()))

	assert.Error(t, newArchiver(&fakeObjects{}, "audit", "", nil).Archive(context.Background(), dto.ReservationSnapshot{}))
}

func TestNewArchiverValidatesConfig(t *testing.T) {
	_, err := NewArchiver(Config{Bucket: "audit"}, nil)
	assert.Error(t, err)
	_, err = NewArchiver(Config{Endpoint: "http://localhost:9000"}, nil)
	assert.Error(t, err)
}
