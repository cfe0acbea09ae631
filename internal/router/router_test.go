package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/location"
	"github.com/Ch00k/cvs-compass/internal/poi"
)

const (
	authDeniedMessage   = "위치 정보를 비활성화하면 사용자의 현재 위치를 알 수 없습니다."
	updateFailedMessage = "현재 위치를 불러오지 못했습니다. 잠시 후 다시 시도해 주세요."
)

var pangyo = geo.Location{Latitude: 37.39, Longitude: 127.11}

// recorder collects every signal in emission order
type recorder struct {
	centers  []geo.Location
	errors   []string
	entries  [][]StoreListEntry
	searches []geo.Location
	order    []string
}

func (rec *recorder) signals() Signals {
	return Signals{
		MapCenter: func(l geo.Location) {
			rec.centers = append(rec.centers, l)
			rec.order = append(rec.order, "center")
		},
		ErrorMessage: func(m string) {
			rec.errors = append(rec.errors, m)
			rec.order = append(rec.order, "error")
		},
		Entries: func(e []StoreListEntry) {
			rec.entries = append(rec.entries, e)
			rec.order = append(rec.order, "entries")
		},
		Search: func(l geo.Location) {
			rec.searches = append(rec.searches, l)
			rec.order = append(rec.order, "search")
		},
	}
}

func newRouter(opts ...Option) (*Router, *recorder) {
	rec := &recorder{}
	return New(rec.signals(), opts...), rec
}

func stores() []poi.Item {
	far := 900.0
	return []poi.Item{
		{ID: "1", Name: "GS25 판교점", Address: "백현동 532", RoadAddress: "판교역로 166", Location: pangyo.Offset(350, 0), Distance: &far},
		{ID: "2", Name: "CU 판교점", Address: "삼평동 1", Location: pangyo.Offset(0, 1240)},
	}
}

func TestAuthorizationChanged(t *testing.T) {
	tests := []struct {
		status     location.AuthorizationStatus
		wantState  AuthState
		wantErrors []string
	}{
		{location.AuthorizedAlways, Authorized, nil},
		{location.AuthorizedWhenInUse, Authorized, nil},
		{location.NotDetermined, Undetermined, nil},
		{location.Denied, Denied, []string{authDeniedMessage}},
		{location.Restricted, Denied, []string{authDeniedMessage}},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			r, rec := newRouter()
			r.AuthorizationChanged(tt.status)

			assert.Equal(t, tt.wantState, r.State().Auth)
			assert.Equal(t, tt.wantErrors, rec.errors)
			assert.Len(t, rec.order, len(tt.wantErrors))
		})
	}
}

func TestDenialIsReportedAsAuthDeniedError(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r, rec := newRouter(WithLogger(logrus.NewEntry(logger)))
	r.AuthorizationChanged(location.Restricted)

	require.Equal(t, []string{authDeniedMessage}, rec.errors)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "restricted", entry.Data["status"])

	err, ok := entry.Data[logrus.ErrorKey].(error)
	require.True(t, ok)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeLocationAuthDenied))
	assert.Equal(t, authDeniedMessage, apperrors.LocationFailureMessage(err))
}

func TestAuthorizationStateDependsOnLastEventOnly(t *testing.T) {
	statuses := []location.AuthorizationStatus{
		location.NotDetermined,
		location.AuthorizedAlways,
		location.AuthorizedWhenInUse,
		location.Denied,
		location.Restricted,
	}
	want := map[location.AuthorizationStatus]AuthState{
		location.NotDetermined:       Undetermined,
		location.AuthorizedAlways:    Authorized,
		location.AuthorizedWhenInUse: Authorized,
		location.Denied:              Denied,
		location.Restricted:          Denied,
	}

	// every ordered pair, then every triple ending in each status
	for _, a := range statuses {
		for _, b := range statuses {
			for _, c := range statuses {
				r, _ := newRouter()
				r.AuthorizationChanged(a)
				r.AuthorizationChanged(b)
				r.AuthorizationChanged(c)
				assert.Equal(t, want[c], r.State().Auth, "%s -> %s -> %s", a, b, c)
			}
		}
	}
}

func TestDeniedRecoversOnlyThroughAuthorization(t *testing.T) {
	r, rec := newRouter()
	r.AuthorizationChanged(location.Denied)
	r.CurrentLocationUpdated(pangyo)
	assert.Equal(t, Denied, r.State().Auth)

	r.AuthorizationChanged(location.AuthorizedWhenInUse)
	assert.Equal(t, Authorized, r.State().Auth)
	assert.Equal(t, []string{authDeniedMessage}, rec.errors)
}

func TestRepeatedDenialReemits(t *testing.T) {
	r, rec := newRouter()
	r.AuthorizationChanged(location.Denied)
	r.AuthorizationChanged(location.Denied)
	assert.Equal(t, []string{authDeniedMessage, authDeniedMessage}, rec.errors)
}

func TestLocationUpdateThenRecenterIsIdentity(t *testing.T) {
	locs := []geo.Location{
		pangyo,
		{Latitude: -33.865143, Longitude: 151.2099},
		{Latitude: 0, Longitude: 0},
		{Latitude: 89.999999, Longitude: -179.999999},
	}
	for _, l := range locs {
		r, rec := newRouter()
		r.CurrentLocationUpdated(l)
		r.RecenterRequested()
		require.Len(t, rec.centers, 1)
		assert.Equal(t, l, rec.centers[0])
		assert.Empty(t, rec.errors)
	}
}

func TestEveryUpdateReplacesCurrentLocation(t *testing.T) {
	r, rec := newRouter()
	r.CurrentLocationUpdated(pangyo)
	// a noisy fix a few metres away is accepted, not filtered
	noisy := pangyo.Offset(3, 0)
	r.CurrentLocationUpdated(noisy)
	r.CurrentLocationUpdated(noisy)

	require.NotNil(t, r.State().CurrentLocation)
	assert.Equal(t, noisy, *r.State().CurrentLocation)
	assert.Empty(t, rec.order)
}

func TestRecenterBeforeFirstFixIsNoop(t *testing.T) {
	r, rec := newRouter()
	assert.NotPanics(t, r.RecenterRequested)
	assert.Empty(t, rec.order)
	assert.Nil(t, r.State().CurrentLocation)
}

func TestLocationUpdateFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil error", nil, updateFailedMessage},
		{"fixed message", apperrors.LocationUpdateFailed(errors.New("gps off")), updateFailedMessage},
		{"provider text", errors.New("GPS signal lost"), "GPS signal lost"},
		{"provider app error", apperrors.New(apperrors.ErrCodeLocationUpdateFailed, "네트워크 오류"), "네트워크 오류"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rec := newRouter()
			r.CurrentLocationUpdated(pangyo)
			r.CurrentLocationUpdateFailed(tt.err)

			assert.Equal(t, []string{tt.want}, rec.errors)
			assert.Equal(t, []string{"error"}, rec.order)
			require.NotNil(t, r.State().CurrentLocation)
			assert.Equal(t, pangyo, *r.State().CurrentLocation)
			assert.Equal(t, tt.want, r.State().ErrorMessage)
		})
	}
}

func TestLocationUpdateFailedBeforeAnyFix(t *testing.T) {
	r, rec := newRouter()
	r.CurrentLocationUpdateFailed(errors.New("timeout"))
	assert.Nil(t, r.State().CurrentLocation)
	assert.Len(t, rec.errors, 1)
}

func TestErrorMessageIsNotClearedBySuccess(t *testing.T) {
	r, _ := newRouter()
	r.CurrentLocationUpdateFailed(nil)
	r.CurrentLocationUpdated(pangyo)
	r.AuthorizationChanged(location.AuthorizedAlways)
	assert.Equal(t, updateFailedMessage, r.State().ErrorMessage)
}

func TestMapMoveFinishedRequestsSearch(t *testing.T) {
	r, rec := newRouter()
	center := pangyo.Offset(100, 100)
	r.MapMoveFinished(center)

	require.NotNil(t, r.State().MapCenter)
	assert.Equal(t, center, *r.State().MapCenter)
	assert.Equal(t, []geo.Location{center}, rec.searches)
	assert.Empty(t, rec.centers)
}

func TestPOISelectedIsNeverHandled(t *testing.T) {
	r, rec := newRouter()
	item := stores()[0]
	assert.Equal(t, NotHandled, r.POISelected(item))
	assert.Equal(t, NotHandled, r.POISelected(stores()[1]))

	require.NotNil(t, r.State().SelectedPOI)
	assert.Equal(t, "CU 판교점", r.State().SelectedPOI.Name)
	assert.Empty(t, rec.order)
}

func TestNearbyStoresFoundBuildsEntries(t *testing.T) {
	r, rec := newRouter()
	r.MapMoveFinished(pangyo)

	// no current location yet: backend distance or nothing
	r.NearbyStoresFound(pangyo, stores())
	require.Len(t, rec.entries, 1)
	assert.Equal(t, []StoreListEntry{
		{PlaceName: "GS25 판교점", Address: "판교역로 166", Distance: "900m", Location: pangyo.Offset(350, 0)},
		{PlaceName: "CU 판교점", Address: "삼평동 1", Distance: "", Location: pangyo.Offset(0, 1240)},
	}, rec.entries[0])
	assert.Equal(t, rec.entries[0], r.State().Entries)
}

func TestEntriesFollowCurrentLocation(t *testing.T) {
	r, rec := newRouter()
	r.CurrentLocationUpdated(pangyo)
	r.MapMoveFinished(pangyo)
	r.NearbyStoresFound(pangyo, stores())

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "350m", rec.entries[0][0].Distance)
	assert.Equal(t, "1.2km", rec.entries[0][1].Distance)

	// moving changes distances, so entries are re-emitted
	r.CurrentLocationUpdated(pangyo.Offset(350, 0))
	require.Len(t, rec.entries, 2)
	assert.Equal(t, "0m", rec.entries[1][0].Distance)

	// the same fix again changes nothing
	r.CurrentLocationUpdated(pangyo.Offset(350, 0))
	assert.Len(t, rec.entries, 2)
}

func TestStaleSearchResultsAreDropped(t *testing.T) {
	r, rec := newRouter()
	r.MapMoveFinished(pangyo)
	moved := pangyo.Offset(500, 0)
	r.MapMoveFinished(moved)

	r.NearbyStoresFound(pangyo, stores())
	assert.Empty(t, rec.entries)

	r.NearbyStoresFound(moved, stores()[:1])
	require.Len(t, rec.entries, 1)
	assert.Len(t, rec.entries[0], 1)
}

func TestNearbyStoresSearchFailedKeepsEntries(t *testing.T) {
	r, rec := newRouter()
	r.MapMoveFinished(pangyo)
	r.NearbyStoresFound(pangyo, stores())
	r.NearbyStoresSearchFailed(pangyo, errors.New("quota exceeded"))

	assert.Len(t, r.State().Entries, 2)
	assert.Empty(t, rec.errors)
	assert.Empty(t, r.State().ErrorMessage)
}

func TestEntrySelected(t *testing.T) {
	r, rec := newRouter()
	r.MapMoveFinished(pangyo)
	r.NearbyStoresFound(pangyo, stores())

	r.EntrySelected(1)
	assert.Equal(t, []geo.Location{pangyo.Offset(0, 1240)}, rec.centers)
	require.NotNil(t, r.State().SelectedPOI)
	assert.Equal(t, "2", r.State().SelectedPOI.ID)

	r.EntrySelected(2)
	r.EntrySelected(-1)
	assert.Len(t, rec.centers, 1)
}

func TestRefreshRequested(t *testing.T) {
	r, rec := newRouter()
	r.RefreshRequested()
	assert.Empty(t, rec.searches)

	r.MapMoveFinished(pangyo)
	r.RefreshRequested()
	assert.Equal(t, []geo.Location{pangyo, pangyo}, rec.searches)
}

func TestCenterOnFirstFix(t *testing.T) {
	r, rec := newRouter(WithCenterOnFirstFix(true))
	r.CurrentLocationUpdated(pangyo)
	r.CurrentLocationUpdated(pangyo.Offset(10, 0))
	assert.Equal(t, []geo.Location{pangyo}, rec.centers)

	r, rec = newRouter()
	r.CurrentLocationUpdated(pangyo)
	assert.Empty(t, rec.centers)
}

func TestStateIsACopy(t *testing.T) {
	r, _ := newRouter()
	r.CurrentLocationUpdated(pangyo)
	r.MapMoveFinished(pangyo)
	r.NearbyStoresFound(pangyo, stores())
	r.POISelected(stores()[0])

	s := r.State()
	s.CurrentLocation.Latitude = 0
	s.Entries[0].PlaceName = "changed"
	*s.SelectedPOI.Distance = 1

	fresh := r.State()
	assert.Equal(t, pangyo, *fresh.CurrentLocation)
	assert.Equal(t, "GS25 판교점", fresh.Entries[0].PlaceName)
	assert.Equal(t, 900.0, *fresh.SelectedPOI.Distance)
}

func TestSignalsSeePublishedState(t *testing.T) {
	var r *Router
	var seen *geo.Location
	r = New(Signals{
		MapCenter: func(geo.Location) {
			seen = r.State().CurrentLocation
		},
	}, WithCenterOnFirstFix(true))

	r.CurrentLocationUpdated(pangyo)
	require.NotNil(t, seen)
	assert.Equal(t, pangyo, *seen)
}

func TestNilSignalsAreSkipped(t *testing.T) {
	r := New(Signals{})
	assert.NotPanics(t, func() {
		r.AuthorizationChanged(location.Denied)
		r.CurrentLocationUpdated(pangyo)
		r.RecenterRequested()
		r.MapMoveFinished(pangyo)
		r.NearbyStoresFound(pangyo, stores())
		r.EntrySelected(0)
	})
}

func TestScenarioUndeterminedThenFixThenRecenter(t *testing.T) {
	r, rec := newRouter()
	fix := geo.Location{Latitude: 37.39, Longitude: 127.11}

	r.AuthorizationChanged(location.NotDetermined)
	assert.Empty(t, rec.order)

	r.CurrentLocationUpdated(fix)
	require.NotNil(t, r.State().CurrentLocation)
	assert.Equal(t, fix, *r.State().CurrentLocation)

	r.RecenterRequested()
	assert.Equal(t, []geo.Location{fix}, rec.centers)
	assert.Equal(t, []string{"center"}, rec.order)
}

func TestScenarioDenied(t *testing.T) {
	r, rec := newRouter()
	r.AuthorizationChanged(location.Denied)
	assert.Equal(t, []string{"위치 정보를 비활성화하면 사용자의 현재 위치를 알 수 없습니다."}, rec.errors)
	assert.Equal(t, []string{"error"}, rec.order)
}

func TestRunProcessesInOrder(t *testing.T) {
	r, rec := newRouter()
	events := make(chan Event, 8)
	events <- LocationUpdated{Location: pangyo}
	events <- LocationUpdated{Location: pangyo.Offset(10, 0)}
	events <- RecenterRequested{}
	events <- LocationUpdateFailed{Err: errors.New("lost")}
	events <- RecenterRequested{}
	close(events)

	require.NoError(t, r.Run(context.Background(), events))
	assert.Equal(t, []geo.Location{pangyo.Offset(10, 0), pangyo.Offset(10, 0)}, rec.centers)
	assert.Equal(t, []string{"center", "error", "center"}, rec.order)
}

func TestRunStopsOnCancel(t *testing.T) {
	r, _ := newRouter()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, make(chan Event)) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEventStrings(t *testing.T) {
	assert.Equal(t, "recenter requested", RecenterRequested{}.String())
	assert.Equal(t, "entry 3 selected", EntrySelected{Index: 3}.String())
	assert.Equal(t, "map moved to 37.390000,127.110000", MapMoveFinished{Center: pangyo}.String())
	assert.Equal(t, "not handled", NotHandled.String())
	assert.Equal(t, "denied", Denied.String())
}
