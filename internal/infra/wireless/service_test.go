package wireless

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefinder/config"
	"storefinder/internal/domain/entity"
	"storefinder/internal/domain/service"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(scanner Scanner) service.WirelessService {
	cfg := &config.Config{
		Wireless: &config.WirelessConfig{Enabled: true, ScanInterval: 10 * time.Millisecond},
	}
	cfg.ApplyDefaults()

	return NewService(scanner, cfg, newDiscardLogger())
}

func fingerprintStore(name, ssid, bssid string) *entity.Store {
	return &entity.Store{
		ID:   uuid.New(),
		Name: name,
		Fingerprints: []entity.WirelessFingerprint{
			{SSID: ssid, BSSID: bssid},
		},
	}
}

func dbm(v int) *int { return &v }

func TestService_MatchToStores_SignalConfidence(t *testing.T) {
	svc := newTestService(NewSimScanner())

	tests := []struct {
		name           string
		store          *entity.Store
		network        entity.ObservedNetwork
		wantConfidence int
		wantByBSSID    bool
	}{
		{
			name:           "strong signal with hardware address caps at 100",
			store:          fingerprintStore("Walmart", "Walmart-Guest", "aa:bb:cc:dd:ee:01"),
			network:        entity.ObservedNetwork{SSID: "Walmart-Guest", BSSID: "aa:bb:cc:dd:ee:01", SignalDBM: dbm(-55)},
			wantConfidence: 100,
			wantByBSSID:    true,
		},
		{
			name:           "moderate signal with hardware address",
			store:          fingerprintStore("Walmart", "Walmart-Guest", "aa:bb:cc:dd:ee:01"),
			network:        entity.ObservedNetwork{SSID: "Walmart-Guest", BSSID: "aa:bb:cc:dd:ee:01", SignalDBM: dbm(-65)},
			wantConfidence: 95,
			wantByBSSID:    true,
		},
		{
			name:           "moderate signal name-only",
			store:          fingerprintStore("Walmart", "Walmart-Guest", ""),
			network:        entity.ObservedNetwork{SSID: "Walmart-Guest", BSSID: "ff:ff:ff:00:00:01", SignalDBM: dbm(-65)},
			wantConfidence: 85,
			wantByBSSID:    false,
		},
		{
			name:           "weak signal name-only",
			store:          fingerprintStore("CVS", "CVS-WiFi", ""),
			network:        entity.ObservedNetwork{SSID: "CVS-WiFi", SignalDBM: dbm(-75)},
			wantConfidence: 70,
			wantByBSSID:    false,
		},
		{
			name:           "very weak signal floors at 50",
			store:          fingerprintStore("CVS", "CVS-WiFi", ""),
			network:        entity.ObservedNetwork{SSID: "CVS-WiFi", SignalDBM: dbm(-90)},
			wantConfidence: 50,
			wantByBSSID:    false,
		},
		{
			name:           "unreported signal floors at 50",
			store:          fingerprintStore("CVS", "CVS-WiFi", ""),
			network:        entity.ObservedNetwork{SSID: "CVS-WiFi"},
			wantConfidence: 50,
			wantByBSSID:    false,
		},
		{
			name:           "unreported signal with hardware address still earns the bonus",
			store:          fingerprintStore("CVS", "CVS-WiFi", "aa:bb:cc:dd:ee:02"),
			network:        entity.ObservedNetwork{SSID: "CVS-WiFi", BSSID: "aa:bb:cc:dd:ee:02"},
			wantConfidence: 60,
			wantByBSSID:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := svc.MatchToStores([]entity.ObservedNetwork{tt.network}, []*entity.Store{tt.store})
			require.Len(t, matches, 1)
			assert.Equal(t, tt.wantConfidence, matches[0].Confidence)
			assert.Equal(t, tt.wantByBSSID, matches[0].MatchedByBSSID)
			assert.Equal(t, tt.store.ID, matches[0].Store.ID)
		})
	}
}

func TestService_MatchToStores_NoMatchForForeignNetworks(t *testing.T) {
	svc := newTestService(NewSimScanner())
	store := fingerprintStore("Walmart", "Walmart-Guest", "aa:bb:cc:dd:ee:01")

	observed := []entity.ObservedNetwork{
		{SSID: "CoffeeShop", BSSID: "11:22:33:44:55:66", SignalDBM: dbm(-40)},
	}
	assert.Empty(t, svc.MatchToStores(observed, []*entity.Store{store}))
}

func TestService_MatchToStores_HardwareMismatchBeatsNameEquality(t *testing.T) {
	// Both sides report hardware addresses, so address equality decides
	// even though the network names agree.
	svc := newTestService(NewSimScanner())
	store := fingerprintStore("Walmart", "Walmart-Guest", "aa:bb:cc:dd:ee:01")

	observed := []entity.ObservedNetwork{
		{SSID: "Walmart-Guest", BSSID: "99:99:99:99:99:99", SignalDBM: dbm(-50)},
	}
	assert.Empty(t, svc.MatchToStores(observed, []*entity.Store{store}))
}

func TestService_MatchToStores_SortsByConfidenceDescending(t *testing.T) {
	svc := newTestService(NewSimScanner())

	near := fingerprintStore("Walmart", "Walmart-Guest", "aa:bb:cc:dd:ee:01")
	far := fingerprintStore("CVS", "CVS-WiFi", "aa:bb:cc:dd:ee:02")

	observed := []entity.ObservedNetwork{
		{SSID: "CVS-WiFi", BSSID: "aa:bb:cc:dd:ee:02", SignalDBM: dbm(-78)},
		{SSID: "Walmart-Guest", BSSID: "aa:bb:cc:dd:ee:01", SignalDBM: dbm(-52)},
	}

	matches := svc.MatchToStores(observed, []*entity.Store{far, near})
	require.Len(t, matches, 2)
	assert.Equal(t, near.ID, matches[0].Store.ID)
	assert.Equal(t, 100, matches[0].Confidence)
	assert.Equal(t, far.ID, matches[1].Store.ID)
	assert.Equal(t, 80, matches[1].Confidence)
}

func TestService_MatchToStores_KeepsBestNetworkPerStore(t *testing.T) {
	svc := newTestService(NewSimScanner())
	store := &entity.Store{
		ID:   uuid.New(),
		Name: "Walmart",
		Fingerprints: []entity.WirelessFingerprint{
			{SSID: "Walmart-Guest", BSSID: "aa:bb:cc:dd:ee:01"},
			{SSID: "Walmart-Guest", BSSID: "aa:bb:cc:dd:ee:02"},
		},
	}

	observed := []entity.ObservedNetwork{
		{SSID: "Walmart-Guest", BSSID: "aa:bb:cc:dd:ee:01", SignalDBM: dbm(-82)},
		{SSID: "Walmart-Guest", BSSID: "aa:bb:cc:dd:ee:02", SignalDBM: dbm(-58)},
	}

	matches := svc.MatchToStores(observed, []*entity.Store{store})
	require.Len(t, matches, 1)
	assert.Equal(t, 100, matches[0].Confidence)
	assert.Equal(t, "aa:bb:cc:dd:ee:02", matches[0].Network.BSSID)
}

func TestService_HasChanged(t *testing.T) {
	svc := newTestService(NewSimScanner())

	a := entity.ObservedNetwork{SSID: "Walmart-Guest", BSSID: "aa:bb:cc:dd:ee:01", SignalDBM: dbm(-60)}
	b := entity.ObservedNetwork{SSID: "CVS-WiFi", BSSID: "aa:bb:cc:dd:ee:02", SignalDBM: dbm(-70)}

	aQuieter := a
	aQuieter.SignalDBM = dbm(-75)

	assert.False(t, svc.HasChanged([]entity.ObservedNetwork{a, b}, []entity.ObservedNetwork{b, a}),
		"order must not matter")
	assert.False(t, svc.HasChanged([]entity.ObservedNetwork{a}, []entity.ObservedNetwork{aQuieter}),
		"signal fluctuation alone is not a change")
	assert.True(t, svc.HasChanged([]entity.ObservedNetwork{a}, []entity.ObservedNetwork{a, b}))
	assert.True(t, svc.HasChanged([]entity.ObservedNetwork{a, b}, []entity.ObservedNetwork{a}))
	assert.True(t, svc.HasChanged(nil, []entity.ObservedNetwork{a}))
	assert.False(t, svc.HasChanged(nil, nil))
}

func TestService_Scan_Unsupported(t *testing.T) {
	scanner := NewSimScanner()
	scanner.SetSupported(false)
	svc := newTestService(scanner)

	_, err := svc.Scan(context.Background())
	assert.ErrorIs(t, err, service.ErrScanUnsupported)

	_, err = svc.Watch(context.Background(), func([]entity.ObservedNetwork) {})
	assert.ErrorIs(t, err, service.ErrScanUnsupported)
}

func TestService_Watch_EmitsOnlyOnChange(t *testing.T) {
	scanner := NewSimScanner(
		entity.ObservedNetwork{SSID: "Walmart-Guest", BSSID: "aa:bb:cc:dd:ee:01", SignalDBM: dbm(-60)},
	)
	svc := newTestService(scanner)

	var mu sync.Mutex
	var emits [][]entity.ObservedNetwork
	sub, err := svc.Watch(context.Background(), func(observed []entity.ObservedNetwork) {
		mu.Lock()
		emits = append(emits, observed)
		mu.Unlock()
	})
	require.NoError(t, err)

	// First scan always emits; the unchanged environment then stays quiet.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(emits) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Len(t, emits, 1)
	mu.Unlock()

	// A new network in range triggers the next emit.
	scanner.SetNetworks(
		entity.ObservedNetwork{SSID: "Walmart-Guest", BSSID: "aa:bb:cc:dd:ee:01", SignalDBM: dbm(-60)},
		entity.ObservedNetwork{SSID: "CVS-WiFi", BSSID: "aa:bb:cc:dd:ee:02", SignalDBM: dbm(-70)},
	)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(emits) == 2
	}, time.Second, 5*time.Millisecond)

	sub.Cancel()
	mu.Lock()
	after := len(emits)
	mu.Unlock()

	scanner.SetNetworks()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Len(t, emits, after, "no emit may fire after Cancel returns")
	mu.Unlock()
}

func TestService_Watch_SingleLoopPerInstance(t *testing.T) {
	svc := newTestService(NewSimScanner())

	sub, err := svc.Watch(context.Background(), func([]entity.ObservedNetwork) {})
	require.NoError(t, err)

	_, err = svc.Watch(context.Background(), func([]entity.ObservedNetwork) {})
	assert.ErrorIs(t, err, ErrWatchActive)

	sub.Cancel()

	sub2, err := svc.Watch(context.Background(), func([]entity.ObservedNetwork) {})
	require.NoError(t, err)
	sub2.Cancel()
}
