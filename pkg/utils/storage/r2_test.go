package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("Products", "Maçã Fuji", ".webp", time.Unix(1700000000, 0))

	assert.True(t, strings.HasPrefix(key, "products/maca-fuji/1700000000-"), key)
	assert.True(t, strings.HasSuffix(key, ".webp"))
}

func TestUploadAndDelete(t *testing.T) {
	fake := &fakeObjects{}
	store := &R2Store{client: fake, bucket: "fruitbox", publicURL: "https://cdn.fruitbox.com.br"}
	ctx := context.Background()

	url, err := store.Upload(ctx, "products", "Pitaya", ".webp", "image/webp", []byte("img"))
	require.NoError(t, err)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "fruitbox", *fake.puts[0].Bucket)
	assert.Equal(t, "https://cdn.fruitbox.com.br/"+*fake.puts[0].Key, url)

	require.NoError(t, store.Delete(ctx, url))
	require.Len(t, fake.deletes, 1)
	assert.Equal(t, *fake.puts[0].Key, *fake.deletes[0].Key)

	assert.Error(t, store.Delete(ctx, "https://elsewhere.example.com/x.png"))
}
