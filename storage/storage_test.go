package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	etag    string
	body    string
	headErr error
	getErr  error
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{
		ETag:          aws.String(f.etag),
		ContentLength: aws.Int64(int64(len(f.body))),
	}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3Store_HeadAndGet(t *testing.T) {
	store := NewS3StoreWithClient(&fakeS3{etag: `"abc"`, body: "Date,Home\n"})
	ctx := context.Background()

	meta, err := store.HeadObject(ctx, "tips", "outputs/2025-10-08/omqb_results.csv")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, meta.VersionTag)
	assert.Equal(t, int64(10), meta.Size)

	rc, err := store.GetObject(ctx, "tips", "outputs/2025-10-08/omqb_results.csv")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Date,Home\n", string(body))
}

func TestS3Store_ErrorClassification(t *testing.T) {
	forbidden := &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusForbidden}},
		Err:      errors.New("forbidden"),
	}

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no such key", &types.NoSuchKey{}, ErrNotFound},
		{"head not found", &types.NotFound{}, ErrNotFound},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, ErrAuth},
		{"bad key id", &smithy.GenericAPIError{Code: "InvalidAccessKeyId"}, ErrAuth},
		{"bare 403", forbidden, ErrAuth},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewS3StoreWithClient(&fakeS3{headErr: tc.err, getErr: tc.err})

			_, err := store.HeadObject(context.Background(), "b", "k")
			assert.ErrorIs(t, err, tc.want)

			_, err = store.GetObject(context.Background(), "b", "k")
			assert.ErrorIs(t, err, tc.want)

			var objErr *ObjectError
			require.ErrorAs(t, err, &objErr)
			assert.Equal(t, "get", objErr.Op)
			assert.Equal(t, "k", objErr.Key)
		})
	}
}

func TestS3Store_UnknownErrorPassesThrough(t *testing.T) {
	boom := errors.New("connection reset")
	store := NewS3StoreWithClient(&fakeS3{headErr: boom})

	_, err := store.HeadObject(context.Background(), "b", "k")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAuth)
}

func TestDirStore(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "tips", "history", "full_history.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("DataExecucao,PL_Acumulado\n"), 0o644))

	store := NewDirStore(root)
	ctx := context.Background()

	meta, err := store.HeadObject(ctx, "tips", "history/full_history.csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(meta.VersionTag, `"`))
	assert.Len(t, meta.VersionTag, 34)

	again, err := store.HeadObject(ctx, "tips", "history/full_history.csv")
	require.NoError(t, err)
	assert.Equal(t, meta.VersionTag, again.VersionTag, "same content, same tag")

	require.NoError(t, os.WriteFile(p, []byte("DataExecucao,PL_Acumulado\n2025-10-08,10\n"), 0o644))
	changed, err := store.HeadObject(ctx, "tips", "history/full_history.csv")
	require.NoError(t, err)
	assert.NotEqual(t, meta.VersionTag, changed.VersionTag)

	rc, err := store.GetObject(ctx, "tips", "history/full_history.csv")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Contains(t, string(body), "2025-10-08,10")

	_, err = store.HeadObject(ctx, "tips", "outputs/missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetObject(ctx, "tips", "outputs/missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirStore_KeyCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	store := NewDirStore(filepath.Join(root, "store"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.csv"), []byte("x"), 0o644))

	_, err := store.GetObject(context.Background(), "tips", "../../secret.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}
