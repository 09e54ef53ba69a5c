package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/visitor-insight/internal/domain"
	"github.com/V4T54L/visitor-insight/internal/pkg/config"
)

// fakeAPI serves pages of keys keyed by continuation token ("" is the first page).
type fakeAPI struct {
	pages   map[string]*s3.ListObjectsV2Output
	objects map[string][]byte
	listErr error
	getErr  error
	inputs  []*s3.ListObjectsV2Input
}

func (f *fakeAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.inputs = append(f.inputs, in)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.pages[aws.ToString(in.ContinuationToken)], nil
}

func (f *fakeAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func objects(keys ...string) []types.Object {
	out := make([]types.Object, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Object{Key: aws.String(k)})
	}
	return out
}

func newTestStore(api API) *Store {
	return New(api, "bucket", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("http error"),
		},
	}
}

func TestStore_ListFollowsPages(t *testing.T) {
	api := &fakeAPI{pages: map[string]*s3.ListObjectsV2Output{
		"": {
			Contents:              objects("p/part-0", "p/part-1"),
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("t1"),
		},
		"t1": {
			Contents:    objects("p/part-2"),
			IsTruncated: aws.Bool(false),
		},
	}}

	keys, err := newTestStore(api).List(context.Background(), "p/")
	require.NoError(t, err)
	assert.Equal(t, []string{"p/part-0", "p/part-1", "p/part-2"}, keys)

	require.Len(t, api.inputs, 2)
	assert.Equal(t, "bucket", aws.ToString(api.inputs[0].Bucket))
	assert.Equal(t, "p/", aws.ToString(api.inputs[0].Prefix))
	assert.Equal(t, "t1", aws.ToString(api.inputs[1].ContinuationToken))
}

func TestStore_Get(t *testing.T) {
	api := &fakeAPI{objects: map[string][]byte{"p/part-0": []byte("PAR1")}}
	store := newTestStore(api)

	data, err := store.Get(context.Background(), "p/part-0")
	require.NoError(t, err)
	assert.Equal(t, []byte("PAR1"), data)

	_, err = store.Get(context.Background(), "p/missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "s3://bucket/p/missing")
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want error
	}{
		{"Access denied code", &smithy.GenericAPIError{Code: "AccessDenied"}, domain.ErrAuth},
		{"Bad signature code", &smithy.GenericAPIError{Code: "SignatureDoesNotMatch"}, domain.ErrAuth},
		{"No such bucket", &types.NoSuchBucket{}, domain.ErrNotFound},
		{"NotFound code", &smithy.GenericAPIError{Code: "NotFound"}, domain.ErrNotFound},
		{"HTTP 403", responseError(http.StatusForbidden), domain.ErrAuth},
		{"HTTP 404", responseError(http.StatusNotFound), domain.ErrNotFound},
		{"Deadline", context.DeadlineExceeded, domain.ErrTimeout},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			assert.ErrorIs(t, got, tc.want)
			assert.ErrorIs(t, got, tc.err)
		})
	}

	t.Run("Unknown errors pass through", func(t *testing.T) {
		err := errors.New("connection reset")
		got := classify(err)
		assert.Equal(t, err, got)
		assert.NotErrorIs(t, got, domain.ErrAuth)
	})
}

func TestStore_ListAuthFailure(t *testing.T) {
	api := &fakeAPI{listErr: &smithy.GenericAPIError{Code: "InvalidAccessKeyId", Message: "bad key"}}

	_, err := newTestStore(api).List(context.Background(), "p/")
	require.ErrorIs(t, err, domain.ErrAuth)
	assert.Equal(t, domain.KindAuth, domain.KindOf(err))
}

func TestNewStore(t *testing.T) {
	cfg := config.StorageConfig{
		Bucket:          "bucket",
		Region:          "eu-west-1",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		MaxAttempts:     2,
	}
	store, err := NewStore(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, "bucket", store.bucket)

	client, ok := store.client.(*s3.Client)
	require.True(t, ok)
	opts := client.Options()
	assert.Equal(t, "eu-west-1", opts.Region)
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
}
