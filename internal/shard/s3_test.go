package shard

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	keys   []string
	bodies []string
	err    error
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.keys = append(f.keys, aws.ToString(input.Bucket)+"/"+aws.ToString(input.Key))
	f.bodies = append(f.bodies, string(body))
	return &manager.UploadOutput{Location: aws.ToString(input.Key)}, nil
}

type countingWaiter struct {
	keys []string
	err  error
}

func (w *countingWaiter) Wait(ctx context.Context, key string) error {
	w.keys = append(w.keys, key)
	return w.err
}

func TestS3Sink_Put(t *testing.T) {
	up := &fakeUploader{}
	waiter := &countingWaiter{}
	sink := NewS3SinkWithUploader(up, "reports", "mimic/v1", waiter)

	require.NoError(t, sink.Put(context.Background(), "mimic_cxr_000.csv", []byte("s1,x\n")))

	assert.Equal(t, []string{"reports/mimic/v1/mimic_cxr_000.csv"}, up.keys)
	assert.Equal(t, []string{"s1,x\n"}, up.bodies)
	assert.Equal(t, []string{"reports"}, waiter.keys)
}

func TestS3Sink_Key(t *testing.T) {
	assert.Equal(t, "a.csv", NewS3SinkWithUploader(nil, "b", "", nil).Key("a.csv"))
	assert.Equal(t, "p/a.csv", NewS3SinkWithUploader(nil, "b", "p/", nil).Key("a.csv"))
}

func TestS3Sink_Errors(t *testing.T) {
	up := &fakeUploader{err: errors.New("denied")}
	sink := NewS3SinkWithUploader(up, "b", "", nil)
	assert.ErrorContains(t, sink.Put(context.Background(), "a.csv", nil), "s3 upload")

	waiter := &countingWaiter{err: context.DeadlineExceeded}
	sink = NewS3SinkWithUploader(&fakeUploader{}, "b", "", waiter)
	assert.ErrorIs(t, sink.Put(context.Background(), "a.csv", nil), context.DeadlineExceeded)
}

func TestS3Sink_WithWriter(t *testing.T) {
	up := &fakeUploader{}
	w := NewWriter(NewS3SinkWithUploader(up, "b", "out", nil), Options{Size: 2, Prefix: "mimic_cxr"})

	ctx := context.Background()
	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, w.Add(ctx, selection(id)))
	}
	require.NoError(t, w.Close(ctx))

	assert.Equal(t, []string{"b/out/mimic_cxr_000.csv", "b/out/mimic_cxr_001.csv"}, up.keys)
}
