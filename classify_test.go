package hirezzie

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClassifier is a test double for the Classifier interface.
type mockClassifier struct {
	response string
	err      error

	mu     sync.Mutex
	calls  int
	images []ImageInput
}

func (m *mockClassifier) Classify(_ context.Context, _ string, images []ImageInput) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.images = append(m.images, images...)
	return m.response, m.err
}

func TestParseVisionResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		resp string
		want string
	}{
		{"PHOTO", VerdictPhoto},
		{"  photo.\n", VerdictPhoto},
		{"Stock", VerdictStock},
		{"REJECT: banner", VerdictReject},
		{"I think this is a photo", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseVisionResponse(tt.resp), "response %q", tt.resp)
	}
}

func TestClassifyImage(t *testing.T) {
	t.Parallel()

	srv, _ := newSiteServer(t)
	mc := &mockClassifier{response: "STOCK"}
	cfg := testConfig(srv)
	cfg.Classifier = mc

	assert.Equal(t, VerdictStock, cfg.ClassifyImage(context.Background(), srv.URL+"/render?id=1"))
	require.Len(t, mc.images, 1)
	assert.True(t, strings.HasPrefix(mc.images[0].URL, "data:image/png;base64,"))

	// Non-image responses never reach the classifier.
	assert.Empty(t, cfg.ClassifyImage(context.Background(), srv.URL+"/article"))
	assert.Equal(t, 1, mc.calls)
}

func TestClassifyImageDegrades(t *testing.T) {
	t.Parallel()

	srv, _ := newSiteServer(t)
	cfg := testConfig(srv)
	assert.Empty(t, cfg.ClassifyImage(context.Background(), srv.URL+"/render"), "no classifier")

	cfg.Classifier = &mockClassifier{err: errors.New("model overloaded")}
	assert.Empty(t, cfg.ClassifyImage(context.Background(), srv.URL+"/render"))
}

func TestClassifyImageCached(t *testing.T) {
	t.Parallel()

	srv, _ := newSiteServer(t)
	mc := &mockClassifier{response: "PHOTO"}
	cfg := testConfig(srv)
	cfg.Classifier = mc
	cfg.Cache = NewLRUCache(8, time.Minute)

	for range 3 {
		assert.Equal(t, VerdictPhoto, cfg.ClassifyImage(context.Background(), srv.URL+"/render"))
	}
	assert.Equal(t, 1, mc.calls)
}

func TestClassifyPrefersCompleteThumbnail(t *testing.T) {
	t.Parallel()

	srv, _ := newSiteServer(t)
	thumb := pngBytes(t, 64, 48)
	mc := &mockClassifier{response: "PHOTO"}
	cfg := testConfig(srv)
	cfg.Classifier = mc
	cfg.VisionMaxBytes = int64(len(thumb))

	c := Candidate{ImageURL: srv.URL + "/render?id=2", ThumbnailURL: srv.URL + "/thumb.png"}
	assert.Equal(t, VerdictPhoto, cfg.classifyCandidate(context.Background(), c))
	require.Len(t, mc.images, 1)
	assert.Equal(t, encodeDataURL(thumb, "image/png"), mc.images[0].URL, "the whole thumbnail is sent")

	// The full image is over the limit: it is skipped, never sent cut off.
	c.ThumbnailURL = ""
	assert.Empty(t, cfg.classifyCandidate(context.Background(), c))
	assert.Equal(t, 1, mc.calls)

	// A broken thumbnail falls back to the full image when it fits.
	cfg.VisionMaxBytes = DefaultVisionMaxBytes
	c.ThumbnailURL = srv.URL + "/broken"
	assert.Equal(t, VerdictPhoto, cfg.classifyCandidate(context.Background(), c))
	assert.Equal(t, 2, mc.calls)
	assert.True(t, strings.HasPrefix(mc.images[1].URL, "data:image/png;base64,"))
}

func TestEnrichAppliesVerdict(t *testing.T) {
	t.Parallel()

	srv, _ := newSiteServer(t)
	for _, tt := range []struct {
		response     string
		stock, graph bool
	}{
		{"STOCK", true, false},
		{"REJECT", false, true},
		{"PHOTO", false, false},
	} {
		cfg := testConfig(srv)
		cfg.Classifier = &mockClassifier{response: tt.response}
		got := cfg.Enrich(context.Background(), Candidate{PageURL: srv.URL + "/probe"}, Analyze("anything"))
		assert.Equal(t, tt.stock, got.Stock, tt.response)
		assert.Equal(t, tt.graph, got.Graphic, tt.response)
	}
}
