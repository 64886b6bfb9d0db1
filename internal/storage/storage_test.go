package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/comicverse/unigraph/pkg/common"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryObjects struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	failPuts     int
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memoryObjects) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPuts > 0 {
		m.failPuts--
		return nil, errors.New("slow down")
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*params.Key] = body
	m.contentTypes[*params.Key] = *params.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryObjects) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.objects[*params.Key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(body)))}, nil
}

func TestKeys(t *testing.T) {
	date := time.Date(2021, 6, 16, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "transform/UniverseGraph_2021_06_16.json", GraphSnapshotKey(date))
	assert.Equal(t, "transform/WikiDataframe_2021_06_16.json", CharactersKey(date))
	assert.Equal(t, "load/wiki__BatmanDC2021_06_16.txt", ArticleKey("Batman", common.UniverseDC, date))
	assert.Equal(t, "transform/Api_sentiment_Batman_2021_06_16.json", SentimentKey("Batman", date))
}

func TestBlobStore_PutGetWithRetry(t *testing.T) {
	objects := newMemoryObjects()
	objects.failPuts = 2
	blobs := NewBlobStore(objects, "comics")

	require.NoError(t, blobs.PutFile(context.Background(), "transform/a.json", []byte(`{}`)))
	assert.Equal(t, "application/json", objects.contentTypes["transform/a.json"])

	got, err := blobs.GetFile(context.Background(), "transform/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))

	objects.failPuts = 3
	assert.Error(t, blobs.PutFile(context.Background(), "transform/b.json", []byte(`{}`)))

	_, err = blobs.GetFile(context.Background(), "missing")
	assert.Error(t, err)
}

func TestUploadSnapshot(t *testing.T) {
	objects := newMemoryObjects()
	blobs := NewBlobStore(objects, "comics")
	date := time.Date(2021, 6, 16, 0, 0, 0, 0, time.UTC)

	keys, err := blobs.UploadSnapshot(context.Background(), UploadSnapshotParams{
		Date: date,
		Graph: GraphSnapshot{
			RunID: "run1",
			Nodes: []common.NodeRow{{ID: "Bruce_Wayne", Universe: common.UniverseDC}},
		},
		Characters: []common.CharacterRecord{
			{Character: common.Character{ID: "Bruce_Wayne", Name: "Batman", Universe: common.UniverseDC}, Sentiment: &common.Sentiment{Label: "mixed"}},
			{Character: common.Character{ID: "Loner", Name: "Loner", Universe: common.UniverseMarvel}},
		},
		Articles: []RawArticle{
			{Name: "Batman", Universe: common.UniverseDC, Raw: []byte("raw")},
			{Name: "Loner", Universe: common.UniverseMarvel},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"transform/UniverseGraph_2021_06_16.json",
		"transform/WikiDataframe_2021_06_16.json",
		"load/wiki__BatmanDC2021_06_16.txt",
		"transform/Api_sentiment_Batman_2021_06_16.json",
	}, keys)
	assert.Len(t, objects.objects, 4)

	var snapshot GraphSnapshot
	require.NoError(t, json.Unmarshal(objects.objects[keys[0]], &snapshot))
	assert.Equal(t, "run1", snapshot.RunID)
	assert.Equal(t, "raw", string(objects.objects[keys[2]]))
}
