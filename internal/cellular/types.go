package cellular

// NetworkType is the radio access technology reported by the network.
type NetworkType string

const (
	NetNone     NetworkType = "none"
	NetGSM      NetworkType = "gsm"
	NetGPRS     NetworkType = "gprs"
	NetEDGE     NetworkType = "edge"
	NetUMTS     NetworkType = "umts"
	NetHSDPA    NetworkType = "hsdpa"
	NetHSUPA    NetworkType = "hsupa"
	NetHSPA     NetworkType = "hspa"
	NetHSPAPlus NetworkType = "hspa+"
	NetLTE      NetworkType = "lte"
	NetLTECA    NetworkType = "lte_ca"
	NetNR5GNSA  NetworkType = "nr5g_nsa"
	NetNR5GSA   NetworkType = "nr5g_sa"
)

// networkTypeFromAcT maps the 3GPP TS 27.007 <AcT> code from +COPS.
func networkTypeFromAcT(act int) NetworkType {
	switch act {
	case 0:
		return NetGSM
	case 1:
		return NetGPRS
	case 2:
		return NetUMTS
	case 3:
		return NetEDGE
	case 4:
		return NetHSDPA
	case 5:
		return NetHSUPA
	case 6:
		return NetHSPA
	case 7:
		return NetLTE
	case 8:
		return NetLTECA
	case 11:
		return NetNR5GNSA
	case 12:
		return NetNR5GSA
	default:
		return NetNone
	}
}

// RegistrationStatus mirrors the six <stat> codes of 3GPP TS 27.007 +CREG.
type RegistrationStatus int

const (
	RegNotRegistered RegistrationStatus = 0
	RegHome          RegistrationStatus = 1
	RegSearching     RegistrationStatus = 2
	RegDenied        RegistrationStatus = 3
	RegUnknown       RegistrationStatus = 4
	RegRoaming       RegistrationStatus = 5
)

func (r RegistrationStatus) String() string {
	switch r {
	case RegNotRegistered:
		return "not_registered"
	case RegHome:
		return "registered_home"
	case RegSearching:
		return "searching"
	case RegDenied:
		return "denied"
	case RegRoaming:
		return "registered_roaming"
	default:
		return "unknown"
	}
}

// Registered reports whether data service is allowed (home or roaming).
func (r RegistrationStatus) Registered() bool {
	return r == RegHome || r == RegRoaming
}

type SIMStatus string

const (
	SIMReady       SIMStatus = "ready"
	SIMNotInserted SIMStatus = "not_inserted"
	SIMPINRequired SIMStatus = "pin_required"
	SIMPUKRequired SIMStatus = "puk_required"
	SIMError       SIMStatus = "error"
)

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateSuspended    ConnectionState = "suspended"
	StateError        ConnectionState = "error"
)

// SignalQuality is a per-query snapshot of radio metrics. RSSI/BER come from
// +CSQ; the LTE metrics come from the vendor serving-cell query and stay at
// their floor values on non-LTE service.
type SignalQuality struct {
	RSSIdBm int     `json:"rssi_dbm"`
	RSRPdBm int     `json:"rsrp_dbm"`
	RSRQdB  float64 `json:"rsrq_db"`
	SINRdB  float64 `json:"sinr_db"`
	BER     int     `json:"ber"`
	Bars    int     `json:"bars"`
}

// QualityPercent maps RSSI linearly from [-113,-51] dBm onto [0,100],
// clamped at both ends.
func (s SignalQuality) QualityPercent() int {
	if s.RSSIdBm <= -113 {
		return 0
	}
	if s.RSSIdBm >= -51 {
		return 100
	}
	return (s.RSSIdBm + 113) * 100 / 62
}

func barsFromRSSI(rssi int) int {
	if rssi <= -113 {
		return 0
	}
	if rssi >= -51 {
		return 5
	}
	return (rssi+113)/12 + 1
}

// CellInfo describes the serving cell at query time.
type CellInfo struct {
	LAC         int         `json:"lac"`
	CellID      int         `json:"cell_id"`
	Operator    string      `json:"operator"`
	NetworkType NetworkType `json:"network_type"`
}

// ModemInfo is the modem's identity block.
type ModemInfo struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Revision     string `json:"revision"`
	IMEI         string `json:"imei"`
	IMSI         string `json:"imsi"`
	ICCID        string `json:"iccid"`
}

// DataUsage is a session counter snapshot.
type DataUsage struct {
	TxBytes            int64 `json:"tx_bytes"`
	RxBytes            int64 `json:"rx_bytes"`
	SessionDurationSec int64 `json:"session_duration_sec"`
}

func (d DataUsage) TotalMB() float64 {
	return float64(d.TxBytes+d.RxBytes) / (1024 * 1024)
}
