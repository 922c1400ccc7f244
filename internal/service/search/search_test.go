package search

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/stretchr/testify/require"
)

// stubTransport answers every request with the same canned body, the way a
// single-shard cluster would.
type stubTransport struct {
	body    string
	lastReq []byte
}

func (t *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		t.lastReq, _ = io.ReadAll(req.Body)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"X-Elastic-Product": []string{"Elasticsearch"},
			"Content-Type":      []string{"application/json"},
		},
		Body: io.NopCloser(strings.NewReader(t.body)),
	}, nil
}

func newStubClient(t *testing.T, transport *stubTransport) *elasticsearch.Client {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://search.invalid:9200"},
		Transport: transport,
	})
	require.NoError(t, err)
	return client
}

func TestSearchDecodesHits(t *testing.T) {
	transport := &stubTransport{body: `{
		"hits": {
			"total": {"value": 2},
			"hits": [
				{"_source": {"id": 7, "name": "Synth Pack", "description": "all the synths", "price_in_cents": 1999, "image_path": "products/abc-image.png", "is_available": true}},
				{"_source": {"id": 3, "name": "Drum Loops", "price_in_cents": 999, "image_path": "products/def-image.png", "is_available": true}}
			]
		}
	}`}
	client := newStubClient(t, transport)

	total, products, err := Search(t.Context(), client, "products", "synth", 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, products, 2)
	require.Equal(t, 7, products[0].ID)
	require.Equal(t, "Synth Pack", products[0].Name)
	require.Equal(t, 1999, products[0].PriceInCents)
	require.Equal(t, 3, products[1].ID)
	require.Equal(t, "Drum Loops", products[1].Name)

	var sent struct {
		Query struct {
			MultiMatch struct {
				Query  string   `json:"query"`
				Fields []string `json:"fields"`
			} `json:"multi_match"`
		} `json:"query"`
		From int `json:"from"`
		Size int `json:"size"`
	}
	require.NoError(t, json.Unmarshal(transport.lastReq, &sent))
	require.Equal(t, "synth", sent.Query.MultiMatch.Query)
	require.Equal(t, []string{"name^2", "description"}, sent.Query.MultiMatch.Fields)
	require.Equal(t, 0, sent.From)
	require.Equal(t, 10, sent.Size)
}

func TestSearchEmptyResult(t *testing.T) {
	transport := &stubTransport{body: `{"hits": {"total": {"value": 0}, "hits": []}}`}
	client := newStubClient(t, transport)

	total, products, err := Search(t.Context(), client, "products", "nothing", 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(0), total)
	require.Empty(t, products)
}
