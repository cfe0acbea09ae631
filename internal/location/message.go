package location

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
	"github.com/Ch00k/cvs-compass/internal/geo"
)

// Message types understood by the stream and track providers
const (
	MessageLocation      = "location"
	MessageAuthorization = "authorization"
	MessageError         = "error"
)

// Message is one event on the wire, as sent by a companion device over a
// websocket or written one per line into a track file:
//
//	{"type":"location","latitude":37.39,"longitude":127.11}
//	{"type":"authorization","status":"denied"}
//	{"type":"error","message":"GPS signal lost"}
type Message struct {
	Type      string   `json:"type"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Status    string   `json:"status,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// LocationMessage builds a location message for loc
func LocationMessage(loc geo.Location) Message {
	lat, lon := loc.Latitude, loc.Longitude
	return Message{Type: MessageLocation, Latitude: &lat, Longitude: &lon}
}

// deliver forwards msg to sink. Malformed messages are returned as errors and
// nothing is delivered.
func deliver(msg Message, sink Sink) error {
	switch msg.Type {
	case MessageLocation:
		if msg.Latitude == nil || msg.Longitude == nil {
			return fmt.Errorf("location message without coordinates")
		}
		loc := geo.Location{Latitude: *msg.Latitude, Longitude: *msg.Longitude}
		if err := loc.Validate(); err != nil {
			return err
		}
		sink.LocationUpdated(loc)
	case MessageAuthorization:
		status, err := ParseAuthorizationStatus(msg.Status)
		if err != nil {
			return err
		}
		sink.AuthorizationChanged(status)
	case MessageError:
		if msg.Message == "" {
			sink.LocationUpdateFailed(apperrors.LocationUpdateFailed(nil))
		} else {
			sink.LocationUpdateFailed(apperrors.New(apperrors.ErrCodeLocationUpdateFailed, msg.Message))
		}
	default:
		return fmt.Errorf("unknown message type: %q", msg.Type)
	}
	return nil
}

// parseLine decodes one track line. Lines are either a JSON Message or a bare
// "latitude,longitude" pair. ok is false for blank and comment lines.
func parseLine(line string) (msg Message, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Message{}, false, nil
	}

	if strings.HasPrefix(line, "{") {
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return Message{}, true, fmt.Errorf("invalid track line: %w", err)
		}
		return msg, true, nil
	}

	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return Message{}, true, fmt.Errorf("invalid track line: %q", line)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Message{}, true, fmt.Errorf("invalid latitude in track line: %q", line)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Message{}, true, fmt.Errorf("invalid longitude in track line: %q", line)
	}
	return LocationMessage(geo.Location{Latitude: lat, Longitude: lon}), true, nil
}
