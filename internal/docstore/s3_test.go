package docstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket that honours If-Match and If-None-Match.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
	putErr  error
	keys    []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func etag(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}

	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(append([]byte(nil), data...))),
		ETag: aws.String(etag(data)),
	}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.putErr != nil {
		return nil, f.putErr
	}

	key := aws.ToString(params.Key)
	f.keys = append(f.keys, key)
	current, exists := f.objects[key]

	precondition := &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	if aws.ToString(params.IfNoneMatch) == "*" && exists {
		return nil, precondition
	}
	if params.IfMatch != nil && (!exists || etag(current) != aws.ToString(params.IfMatch)) {
		return nil, precondition
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[key] = data
	return &s3.PutObjectOutput{ETag: aws.String(etag(data))}, nil
}

func TestS3Store(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewS3Store(newFakeS3(), "bucket", "promo/", zerolog.Nop())
	})
}

func TestS3Store_ObjectKeyUsesPrefix(t *testing.T) {
	fake := newFakeS3()
	store := NewS3Store(fake, "bucket", "promo/", zerolog.Nop())

	_, err := store.PutIfVersion(context.Background(), "commissionSettings", []byte(`{}`), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"promo/commissionSettings.json"}, fake.keys)
}

func TestS3Store_BackendErrors(t *testing.T) {
	fake := newFakeS3()
	fake.getErr = errors.New("connection reset")
	fake.putErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	store := NewS3Store(fake, "bucket", "", zerolog.Nop())

	_, err := store.Get(context.Background(), "doc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "bucket=bucket")

	_, err = store.PutIfVersion(context.Background(), "doc", []byte(`{}`), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVersionConflict)
}

func TestIsPreconditionFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"precondition failed", &smithy.GenericAPIError{Code: "PreconditionFailed"}, true},
		{"conditional request conflict", &smithy.GenericAPIError{Code: "ConditionalRequestConflict"}, true},
		{"wrapped", fmt.Errorf("put: %w", &smithy.GenericAPIError{Code: "PreconditionFailed"}), true},
		{"other api error", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPreconditionFailure(tt.err))
		})
	}
}
