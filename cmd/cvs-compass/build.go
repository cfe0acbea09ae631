package main

import (
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Ch00k/cvs-compass/internal/config"
	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
	"github.com/Ch00k/cvs-compass/internal/location"
	"github.com/Ch00k/cvs-compass/internal/logging"
	"github.com/Ch00k/cvs-compass/internal/poi"
	"github.com/Ch00k/cvs-compass/internal/session"
)

// newLogger builds the root logger. interactive is true when the full-screen
// UI owns the terminal.
func newLogger(cfg *config.Config, deps Dependencies, interactive bool) (*logrus.Entry, io.Closer, error) {
	return logging.New("cvs-compass", logging.Options{
		Level:       cfg.LogLevel(),
		Format:      cfg.LogFormat(),
		File:        cfg.Log.File,
		Interactive: interactive,
		Output:      deps.LogOutput,
	})
}

func newProvider(cfg *config.Config, logger *logrus.Entry) (location.Provider, error) {
	switch cfg.Location.Provider {
	case config.ProviderFixed:
		return location.NewFixedProvider(cfg.FixedLocation(), cfg.AuthorizationStatus()), nil
	case config.ProviderIP:
		client := location.NewClient(
			location.WithURL(cfg.Location.URL),
			location.WithVersion(Version),
			location.WithLogger(logging.Component(logger, "ipapi")),
		)
		return location.NewIPProvider(client, cfg.Location.Interval, cfg.AuthorizationStatus(), logging.Component(logger, "ip")), nil
	case config.ProviderStream:
		return location.NewStreamProvider(cfg.Location.StreamURL, location.WithStreamLogger(logging.Component(logger, "stream"))), nil
	case config.ProviderTrack:
		return location.NewTrackProvider(cfg.Location.TrackFile, cfg.Location.TrackPoll, logging.Component(logger, "track")), nil
	}
	return nil, apperrors.ConfigInvalid("location.provider", "unknown provider "+cfg.Location.Provider)
}

// newSearcher builds one searcher per enabled source behind a MultiSearcher,
// so results are deduplicated, sorted and limited the same way for any mix
// of sources
func newSearcher(cfg *config.Config, logger *logrus.Entry) (poi.Searcher, error) {
	searchers := make([]poi.Searcher, 0, len(cfg.Search.Sources))
	for _, source := range cfg.Search.Sources {
		switch source {
		case config.SourceKakao:
			searchers = append(searchers, poi.NewKakaoClient(cfg.Search.Kakao.APIKey,
				poi.WithKakaoURL(cfg.Search.Kakao.URL),
				poi.WithKakaoVersion(Version),
				poi.WithKakaoLogger(logging.Component(logger, "kakao")),
			))
		case config.SourceCatalog:
			searchers = append(searchers, poi.NewCatalog(cfg.Search.Catalog.Path))
		case config.SourceElastic:
			es, err := poi.NewElasticSearcher(cfg.Search.Elastic.URL,
				&http.Client{Timeout: cfg.Search.Timeout},
				poi.WithIndex(cfg.Search.Elastic.Index),
				poi.WithElasticLogger(logging.Component(logger, "elastic")),
			)
			if err != nil {
				return nil, apperrors.ProviderUnavailable(config.SourceElastic, err)
			}
			searchers = append(searchers, es)
		default:
			return nil, apperrors.ConfigInvalid("search.sources", "unknown source "+source)
		}
	}

	return poi.NewMultiSearcher(searchers,
		poi.WithSourceTimeout(cfg.Search.Timeout),
		poi.WithMultiLogger(logging.Component(logger, "search")),
	), nil
}

func sessionOptions(cfg *config.Config, logger *logrus.Entry) session.Options {
	opts := session.Options{
		Query: poi.Query{
			Radius: cfg.Search.Radius,
			Limit:  cfg.Search.Limit,
			Brand:  cfg.Search.Brand,
		},
		CenterOnFirstFix: cfg.Location.CenterOnFirstFix,
		Logger:           logger,
	}
	if cfg.HasSource(config.SourceCatalog) && cfg.Search.Catalog.Watch {
		opts.WatchPath = cfg.Search.Catalog.Path
	}
	return opts
}
