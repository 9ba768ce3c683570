package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apierrors "liciel/internal/errors"
	"liciel/internal/exporter"
	"liciel/internal/files"
	"liciel/internal/infrastructure"
	"liciel/internal/mission"
	"liciel/internal/payload"
	"liciel/internal/scanner"
	"liciel/internal/shared/testutil"
	"liciel/internal/synthesis"
	ws "liciel/internal/websocket"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockNotifier struct {
	mock.Mock
	mu       sync.Mutex
	progress []int
}

func (m *mockNotifier) Broadcast(msgType string, data any) {
	m.Called(msgType, data)
}

func (m *mockNotifier) BroadcastScanProgress(scanID string, scanned, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = append(m.progress, scanned)
}

func missionRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	lyon := testutil.NewMissionFixture(t, root, "2024-001", "XML")
	lyon.WriteTable("Table_General_Bien.xml", testutil.GeneralXML("General_Bien", map[string]string{
		"Immeuble_Commune":  "Lyon",
		"Immeuble_Adresse1": "1 place Bellecour",
	}))
	lyon.WriteTable("Table_Z_Amiante.xml", testutil.ItemsXML("Table_Z_Amiante",
		map[string]string{"Num_Materiau": "1", "Resultats": "Présence"},
		map[string]string{"Num_Materiau": "2", "Resultats": "Absence"}))

	paris := testutil.NewMissionFixture(t, root, "2024-002", "XML")
	paris.WriteTable("Table_General_Bien.xml", testutil.GeneralXML("General_Bien", map[string]string{
		"Immeuble_Commune":  "Paris",
		"Immeuble_Adresse1": "3 rue de Rivoli",
	}))
	paris.WriteTable("Table_Z_Amiante.xml", testutil.ItemsXML("Table_Z_Amiante",
		map[string]string{"Num_Materiau": "1", "Resultats": "Absence"}))
	return root
}

type fixture struct {
	store    *payload.MemoryStore
	payloads *PayloadService
	scans    *ScanService
	notifier *mockNotifier
}

func newFixture(t *testing.T, root string) *fixture {
	t.Helper()
	logger := infrastructure.DiscardLogger()

	store := payload.NewMemoryStore(16, time.Minute)
	t.Cleanup(store.Stop)

	notifier := &mockNotifier{}
	sc := scanner.New(mission.NewBuilder(mission.WithLogger(logger)), scanner.WithLogger(logger))
	return &fixture{
		store:    store,
		payloads: NewPayloadService(store, logger),
		scans:    NewScanService(sc, store, notifier, ScanServiceConfig{Root: root, Workers: 2}, logger),
		notifier: notifier,
	}
}

func TestScanServiceScan(t *testing.T) {
	f := newFixture(t, missionRoot(t))
	f.notifier.On("Broadcast", ws.TypeScanStarted, mock.Anything).Once()
	f.notifier.On("Broadcast", ws.TypeScanComplete, mock.AnythingOfType("*services.ScanSummary")).Once()

	_, err := f.scans.Missions(mission.Filter{})
	assert.ErrorIs(t, err, ErrNoScan)

	sum, err := f.scans.Scan(context.Background(), ScanRequest{})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Missions)
	assert.Equal(t, 3, sum.Rows)
	assert.NotEmpty(t, sum.ScanID)
	require.NotEmpty(t, sum.PayloadID)
	require.NotNil(t, sum.ExpiresAt)
	f.notifier.AssertExpectations(t)
	assert.Equal(t, []int{1, 2}, f.notifier.progress)

	stored, err := f.payloads.Get(context.Background(), sum.PayloadID)
	require.NoError(t, err)
	assert.Equal(t, sum.ETag, stored.ETag)
	assert.Equal(t, "2 mission(s)", stored.Payload.Meta.Label)
	assert.Equal(t, payload.SourceMissions, stored.Payload.Meta.Source)

	last, ok := f.scans.LastSummary()
	require.True(t, ok)
	assert.Equal(t, sum.ScanID, last.ScanID)
}

func TestScanServiceFilter(t *testing.T) {
	f := newFixture(t, missionRoot(t))
	f.notifier.On("Broadcast", mock.Anything, mock.Anything)

	sum, err := f.scans.Scan(context.Background(), ScanRequest{
		Filter: mission.Filter{Field: mission.FieldVille, Value: "Paris"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Missions)
	assert.Equal(t, 1, sum.Rows)

	stored, err := f.payloads.Get(context.Background(), sum.PayloadID)
	require.NoError(t, err)
	assert.Equal(t, "Ville : Paris", stored.Payload.Meta.Label)

	paris, err := f.scans.Missions(mission.Filter{Field: mission.FieldVille, Value: "Paris"})
	require.NoError(t, err)
	require.Len(t, paris, 1)
	assert.Equal(t, "2024-002", paris[0].ID)

	m, err := f.scans.Mission("2024-001")
	require.NoError(t, err)
	assert.Equal(t, "Lyon", m.General.Commune)

	_, err = f.scans.Mission("nope")
	assert.ErrorIs(t, err, ErrMissionNotFound)

	facets, domains, err := f.scans.Facets()
	require.NoError(t, err)
	assert.NotEmpty(t, facets)
	assert.Equal(t, 2, domains["Amiante"])
}

func TestScanServiceNoMissions(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.notifier.On("Broadcast", ws.TypeScanStarted, mock.Anything).Once()
	f.notifier.On("Broadcast", ws.TypeScanFailed, mock.AnythingOfType("services.ScanFailure")).Once()

	_, err := f.scans.Scan(context.Background(), ScanRequest{})
	assert.ErrorIs(t, err, scanner.ErrNoMissions)
	assert.False(t, f.scans.Running())
	f.notifier.AssertExpectations(t)

	_, ok := f.scans.LastSummary()
	assert.False(t, ok)
}

func TestScanServiceRejectsConcurrentScan(t *testing.T) {
	f := newFixture(t, missionRoot(t))
	f.scans.running.Store(true)

	_, err := f.scans.Scan(context.Background(), ScanRequest{})
	assert.ErrorIs(t, err, ErrScanRunning)

	// Rescan swallows the conflict
	f.scans.Rescan(context.Background())
	f.notifier.AssertNotCalled(t, "Broadcast", ws.TypeScanStarted, mock.Anything)
}

func TestScanServiceSnapshot(t *testing.T) {
	f := newFixture(t, missionRoot(t))
	f.notifier.On("Broadcast", mock.Anything, mock.Anything)

	_, err := f.scans.Snapshot(context.Background(), mission.Filter{})
	assert.ErrorIs(t, err, ErrNoScan)

	_, err = f.scans.Scan(context.Background(), ScanRequest{})
	require.NoError(t, err)

	stored, err := f.scans.Snapshot(context.Background(), mission.Filter{Field: mission.FieldVille, Value: "Lyon"})
	require.NoError(t, err)
	assert.Len(t, stored.Payload.Rows, 2)
	assert.Equal(t, 2, f.store.Len())
}

func TestPayloadServicePut(t *testing.T) {
	f := newFixture(t, t.TempDir())

	_, err := f.payloads.Put(context.Background(), &payload.Payload{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.payloads.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, payload.ErrNotFound)
	assert.NoError(t, f.payloads.Ping(context.Background()))
}

func scannedPayload(t *testing.T, f *fixture) string {
	t.Helper()
	f.notifier.On("Broadcast", mock.Anything, mock.Anything)
	sum, err := f.scans.Scan(context.Background(), ScanRequest{})
	require.NoError(t, err)
	return sum.PayloadID
}

func TestPayloadServiceGroups(t *testing.T) {
	f := newFixture(t, missionRoot(t))
	id := scannedPayload(t, f)

	tree, err := f.payloads.Groups(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, tree.Cities(), 2)
	assert.Equal(t, "Lyon", tree.Cities()[0].Key)
}

func TestExportService(t *testing.T) {
	f := newFixture(t, missionRoot(t))
	id := scannedPayload(t, f)

	out := t.TempDir()
	svc := NewExportService(f.payloads, exporter.New(), files.NewManager(out), infrastructure.DiscardLogger())

	exp, err := svc.Render(context.Background(), id, exporter.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, exporter.FormatCSV, exp.Format)
	assert.Contains(t, string(exp.Data), "Lyon")
	assert.Equal(t, exporter.Filename("2 mission(s)", exporter.FormatCSV), exp.Filename)

	_, err = svc.Render(context.Background(), id, exporter.FormatPDF)
	assert.ErrorIs(t, err, exporter.ErrUnavailable)

	path, err := svc.Save(context.Background(), id, exporter.FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, out, filepath.Dir(path))

	_, err = NewExportService(f.payloads, exporter.New(), nil, nil).Save(context.Background(), id, exporter.FormatCSV)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

type brokenStore struct {
	payload.Store
}

func (brokenStore) Get(context.Context, string) (*payload.Stored, error) {
	return nil, errors.New("connection reset")
}

func TestPayloadServiceWrapsBackendFailures(t *testing.T) {
	store := payload.NewMemoryStore(0, time.Minute)
	t.Cleanup(store.Stop)
	svc := NewPayloadService(brokenStore{store}, infrastructure.DiscardLogger())

	_, err := svc.Get(context.Background(), "p1")
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeStorage, appErr.Type)
	assert.Equal(t, "p1", appErr.Context["payload_id"])

	_, err = NewPayloadService(store, nil).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, payload.ErrNotFound)
	assert.False(t, errors.As(err, &appErr))
}

type pingFailStore struct {
	payload.Store
}

func (pingFailStore) Ping(context.Context) error { return errors.New("connection refused") }

type clients int

func (c clients) ClientCount() int { return int(c) }

func TestHealthService(t *testing.T) {
	f := newFixture(t, t.TempDir())

	hs := NewHealthService("1.0.0", f.payloads, f.scans, clients(3), infrastructure.DiscardLogger())
	assert.Equal(t, StatusOK, hs.HealthCheck(context.Background()).Status)

	ready := hs.ReadinessCheck(context.Background())
	assert.Equal(t, StatusReady, ready.Status)
	assert.Equal(t, "idle", ready.Services["scanner"].Message)
	assert.Equal(t, "3 client(s)", ready.Services["websocket"].Message)

	broken := NewHealthService("1.0.0", NewPayloadService(pingFailStore{f.store}, nil), nil, nil, infrastructure.DiscardLogger())
	status := broken.ReadinessCheck(context.Background())
	assert.Equal(t, StatusNotReady, status.Status)
	assert.Equal(t, "connection refused", status.Services["payload_store"].Message)
}

func TestPayloadServiceRejectsInvalidMeta(t *testing.T) {
	f := newFixture(t, t.TempDir())

	p := &payload.Payload{
		Rows: []synthesis.Row{{Commune: "Lyon"}},
		Meta: payload.Meta{Label: strings.Repeat("x", 600)},
	}
	_, err := f.payloads.Put(context.Background(), p)
	assert.ErrorIs(t, err, ErrInvalidInput)

	p.Meta.Label = "ok"
	stored, err := f.payloads.Put(context.Background(), p)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Payload.Meta.ID)
}
