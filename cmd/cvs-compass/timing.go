package main

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ch00k/cvs-compass/internal/poi"
)

// timedSearcher logs how long each search takes and reports failures that
// the router does not surface
type timedSearcher struct {
	poi.Searcher
	logger *logrus.Entry
	onFail func(error)
}

func (s timedSearcher) SearchNearby(ctx context.Context, q poi.Query) ([]poi.Item, error) {
	start := time.Now()
	defer func() {
		s.logger.Debugf("Search around %s via %s completed in %v", q.Center, s.Name(), time.Since(start))
	}()

	items, err := s.Searcher.SearchNearby(ctx, q)
	if err != nil && !errors.Is(err, context.Canceled) && s.onFail != nil {
		s.onFail(err)
	}
	return items, err
}

// timed runs fn and logs its duration at debug level
func timed(logger *logrus.Entry, what string, fn func() error) error {
	start := time.Now()
	defer func() {
		logger.Debugf("%s completed in %v", what, time.Since(start))
	}()
	return fn()
}
