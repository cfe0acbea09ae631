package location

import (
	"context"
	"fmt"
	"io"
	stdlog "log"

	"github.com/hpcloud/tail"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
	"github.com/Ch00k/cvs-compass/internal/logging"
)

// TrackProvider replays and follows a track file, one Message (or bare
// "lat,lon" pair) per line. Lines appended while running are delivered as
// they arrive.
type TrackProvider struct {
	path   string
	poll   bool
	logger *logrus.Entry
}

// NewTrackProvider creates a provider following the file at path. With poll
// set, the file is polled instead of watched through inotify.
func NewTrackProvider(path string, poll bool, logger *logrus.Entry) *TrackProvider {
	if logger == nil {
		logger = logging.Discard()
	}
	return &TrackProvider{path: path, poll: poll, logger: logger}
}

// Name implements Provider
func (p *TrackProvider) Name() string { return "track" }

// Run implements Provider
func (p *TrackProvider) Run(ctx context.Context, sink Sink) error {
	t, err := tail.TailFile(p.path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      p.poll,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return apperrors.ProviderUnavailable(p.Name(), fmt.Errorf("open track file: %w", err))
	}
	defer t.Cleanup()
	defer func() { _ = t.Stop() }()

	p.logger.Infof("Following track file %s", p.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				if err := t.Err(); err != nil {
					return apperrors.ProviderUnavailable(p.Name(), err)
				}
				return nil
			}
			if line.Err != nil {
				sink.LocationUpdateFailed(apperrors.LocationUpdateFailed(line.Err))
				continue
			}
			p.handleLine(line.Text, sink)
		}
	}
}

func (p *TrackProvider) handleLine(text string, sink Sink) {
	msg, ok, err := parseLine(text)
	if !ok {
		return
	}
	if err == nil {
		err = deliver(msg, sink)
	}
	if err != nil {
		p.logger.WithError(err).Warn("Rejected track line")
		sink.LocationUpdateFailed(apperrors.LocationUpdateFailed(err))
	}
}
