package entity

// WirelessFingerprint is a known wireless network associated with a store.
// The hardware address (BSSID) is unique when present; the network name
// (SSID) may be absent or shared across many locations of a chain.
type WirelessFingerprint struct {
	SSID  string `json:"ssid,omitempty"`
	BSSID string `json:"bssid,omitempty"`
}

// ObservedNetwork is a wireless network seen during a live scan, with the
// measured signal strength when the platform reports one.
type ObservedNetwork struct {
	SSID      string `json:"ssid,omitempty"`
	BSSID     string `json:"bssid,omitempty"`
	SignalDBM *int   `json:"signal_dbm,omitempty"` // nil when unknown
}
