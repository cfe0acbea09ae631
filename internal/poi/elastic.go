package poi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/olivere/elastic/v7"
	"github.com/sirupsen/logrus"

	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/logging"
)

const (
	defaultElasticIndex = "stores"
	// brand filtering happens after the query, so fetch a wider page
	brandedPageSize = 100
)

// ElasticStore is the document shape of the store index
type ElasticStore struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Brand       string           `json:"brand,omitempty"`
	Address     string           `json:"address"`
	RoadAddress string           `json:"road_address,omitempty"`
	Phone       string           `json:"phone,omitempty"`
	Location    elastic.GeoPoint `json:"location"`
}

// ElasticSearcher queries an Elasticsearch index with a geo_point field
// named "location"
type ElasticSearcher struct {
	client *elastic.Client
	index  string
	logger *logrus.Entry
}

// ElasticOption configures an ElasticSearcher
type ElasticOption func(*ElasticSearcher)

// WithIndex sets the index name
func WithIndex(index string) ElasticOption {
	return func(s *ElasticSearcher) {
		s.index = index
	}
}

// WithElasticLogger sets the logger
func WithElasticLogger(logger *logrus.Entry) ElasticOption {
	return func(s *ElasticSearcher) {
		s.logger = logger
	}
}

// NewElasticSearcher connects to the cluster at url. Sniffing and the
// startup health check are disabled so a single node behind a proxy works.
func NewElasticSearcher(url string, httpClient *http.Client, opts ...ElasticOption) (*ElasticSearcher, error) {
	clientOpts := []elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	}
	if httpClient != nil {
		clientOpts = append(clientOpts, elastic.SetHttpClient(httpClient))
	}

	client, err := elastic.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	s := &ElasticSearcher{
		client: client,
		index:  defaultElasticIndex,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name implements Searcher
func (s *ElasticSearcher) Name() string { return "elastic" }

// SearchNearby implements Searcher
func (s *ElasticSearcher) SearchNearby(ctx context.Context, q Query) ([]Item, error) {
	query := elastic.NewBoolQuery()
	if q.Radius > 0 {
		query = query.Filter(elastic.NewGeoDistanceQuery("location").
			Point(q.Center.Latitude, q.Center.Longitude).
			Distance(fmt.Sprintf("%dm", q.Radius)))
	}

	size := q.Limit
	if q.Brand != "" || size <= 0 {
		size = brandedPageSize
	}

	result, err := s.client.Search().
		Index(s.index).
		Query(query).
		SortBy(elastic.NewGeoDistanceSort("location").
			Point(q.Center.Latitude, q.Center.Longitude).
			Asc().
			Unit("m").
			DistanceType("arc").
			IgnoreUnmapped(true)).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch query failed: %w", err)
	}

	var items []Item
	for _, hit := range result.Hits.Hits {
		var doc ElasticStore
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			s.logger.WithError(err).Warnf("Skipping document %s", hit.Id)
			continue
		}

		id := doc.ID
		if id == "" {
			id = hit.Id
		}
		brand := doc.Brand
		if brand == "" {
			brand = leadingToken(doc.Name)
		}
		item := Item{
			ID:          "elastic:" + id,
			Name:        doc.Name,
			Address:     doc.Address,
			RoadAddress: doc.RoadAddress,
			Phone:       doc.Phone,
			Brand:       brand,
			Location:    geo.Location{Latitude: doc.Location.Lat, Longitude: doc.Location.Lon},
			Source:      "elastic",
		}
		if d, ok := sortDistance(hit.Sort); ok {
			item.Distance = &d
		}
		items = append(items, item)
	}

	s.logger.Debugf("Elasticsearch returned %d stores around %s", len(items), q.Center)

	withDistance(items, q.Center)
	SortByDistance(items)
	return filter(items, q), nil
}

// sortDistance extracts the geo_distance sort value of a hit
func sortDistance(sort []interface{}) (float64, bool) {
	if len(sort) == 0 {
		return 0, false
	}
	switch v := sort[0].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
