// Package cellular drives an LTE modem (Quectel EG25-G class) through its AT
// command interface, and supervises the data connection.
package cellular

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"kagami-orb/internal/at"
	"kagami-orb/internal/transport"
)

const (
	// smsTerminator ends an SMS body in raw mode (Ctrl-Z).
	smsTerminator = "\x1a"

	defaultConnectTimeout = 60 * time.Second
	defaultSMSTimeout     = 10 * time.Second
)

var detectDeviceFn = func() string {
	return transport.FindDevice(
		[]string{"quectel", "simcom", "modem", "lte", "usb_serial", "usb serial"},
		[]string{"/dev/ttyUSB2", "/dev/ttyUSB0", "/dev/ttyACM0"},
	)
}

var openSerialFn = transport.OpenSerial

type Config struct {
	// Device is the AT command port; auto-detected when empty.
	Device string
	// Baud defaults to 115200.
	Baud int
	// APN used when activating the PDP context. Defaults to "internet".
	APN string
	// ConnectTimeout bounds PDP context activation. Defaults to 60s.
	ConnectTimeout time.Duration
	Simulate       bool
}

type Modem struct {
	cfg Config

	port transport.Port
	eng  *at.Engine

	simulated   bool
	initialized bool

	mu    sync.Mutex
	state ConnectionState
}

// New opens and initializes the modem. Like the GNSS driver, a missing or
// unresponsive modem degrades into simulation mode instead of failing: a
// missing peripheral must never stop the system from starting.
func New(cfg Config) *Modem {
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.APN == "" {
		cfg.APN = "internet"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	m := &Modem{cfg: cfg, state: StateDisconnected}

	if !cfg.Simulate {
		if m.openHardware() {
			return m
		}
	}

	m.simulated = true
	m.port = NewSimPort()
	m.eng = at.NewEngine(m.port)
	m.initSequence()
	m.initialized = true
	return m
}

func (m *Modem) openHardware() bool {
	device := m.cfg.Device
	if device == "" {
		device = detectDeviceFn()
	}
	if device == "" {
		log.Printf("cellular: no modem port found, running in simulation mode")
		return false
	}

	port, err := openSerialFn(device, m.cfg.Baud)
	if err != nil {
		log.Printf("cellular: open failed device=%s baud=%d: %v (simulating)", device, m.cfg.Baud, err)
		return false
	}

	m.port = port
	m.eng = at.NewEngine(port)

	if !m.initSequence() {
		log.Printf("cellular: modem not responding on %s, running in simulation mode", device)
		_ = port.Close()
		m.port = nil
		m.eng = nil
		return false
	}

	m.initialized = true
	log.Printf("cellular: modem on device=%s baud=%d", device, m.cfg.Baud)
	return true
}

// initSequence puts the link into a known state: liveness probe, echo off,
// verbose errors, unsolicited registration notifications on. A false return
// means the port is dead and the discovery guess was wrong.
func (m *Modem) initSequence() bool {
	if !m.eng.ExchangeOK("AT") {
		return false
	}
	m.eng.ExchangeOK("ATE0")
	m.eng.ExchangeOK("AT+CMEE=2")
	m.eng.ExchangeOK("AT+CREG=2")
	m.eng.ExchangeOK("AT+CEREG=2")
	return true
}

func (m *Modem) Simulated() bool   { return m.simulated }
func (m *Modem) Initialized() bool { return m.initialized }

// Close releases the transport; safe to call repeatedly.
func (m *Modem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.port == nil {
		return nil
	}
	err := m.port.Close()
	m.port = nil
	m.initialized = false
	return err
}

// State returns the last known connection state without touching the modem.
func (m *Modem) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Modem) setState(s ConnectionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Info queries the modem identity block. Fields that fail to parse stay
// empty; identity is advisory, not load-bearing.
func (m *Modem) Info() ModemInfo {
	var info ModemInfo

	if ok, lines := m.eng.Exchange("ATI", at.Options{}); ok {
		body := withoutFinal(lines)
		if len(body) > 0 {
			info.Manufacturer = body[0]
		}
		if len(body) > 1 {
			info.Model = body[1]
		}
		for _, l := range body {
			if strings.HasPrefix(l, "Revision:") {
				info.Revision = strings.TrimSpace(strings.TrimPrefix(l, "Revision:"))
			}
		}
	}
	if ok, lines := m.eng.Exchange("AT+GSN", at.Options{}); ok {
		if body := withoutFinal(lines); len(body) > 0 {
			info.IMEI = body[0]
		}
	}
	if ok, lines := m.eng.Exchange("AT+CIMI", at.Options{}); ok {
		if body := withoutFinal(lines); len(body) > 0 {
			info.IMSI = body[0]
		}
	}
	if _, lines := m.eng.Exchange("AT+CCID", at.Options{}); len(lines) > 0 {
		for _, l := range lines {
			if strings.HasPrefix(l, "+CCID:") {
				info.ICCID = strings.TrimSpace(strings.TrimPrefix(l, "+CCID:"))
			}
		}
	}
	return info
}

// withoutFinal drops the trailing OK/ERROR result line.
func withoutFinal(lines []string) []string {
	if n := len(lines); n > 0 {
		last := lines[n-1]
		if last == "OK" || strings.HasPrefix(last, "ERROR") || strings.HasPrefix(last, "+CME ERROR") {
			return lines[:n-1]
		}
	}
	return lines
}

// SIM reports the SIM card state from AT+CPIN?.
func (m *Modem) SIM() SIMStatus {
	ok, lines := m.eng.Exchange("AT+CPIN?", at.Options{})
	for _, l := range lines {
		if !strings.Contains(l, "+CPIN:") {
			continue
		}
		status := strings.TrimSpace(l[strings.Index(l, ":")+1:])
		switch status {
		case "READY":
			return SIMReady
		case "SIM PIN":
			return SIMPINRequired
		case "SIM PUK":
			return SIMPUKRequired
		}
	}
	if !ok {
		for _, l := range lines {
			if strings.Contains(l, "SIM not inserted") {
				return SIMNotInserted
			}
		}
	}
	return SIMError
}

var (
	csqRe  = regexp.MustCompile(`\+CSQ:\s*(\d+),(\d+)`)
	cregRe = regexp.MustCompile(`\+CREG:\s*\d+,(\d+)(?:,"([^"]*)","([^"]*)")?`)
	copsRe = regexp.MustCompile(`\+COPS:\s*\d+,\d+,"([^"]*)",(\d+)`)
)

// Signal reads RSSI/BER via +CSQ and, when the modem is on LTE, the richer
// serving-cell metrics via the vendor +QENG query.
func (m *Modem) Signal() SignalQuality {
	sq := SignalQuality{
		RSSIdBm: -113,
		RSRPdBm: -140,
		RSRQdB:  -20.0,
		SINRdB:  -20.0,
		BER:     99,
	}

	_, lines := m.eng.Exchange("AT+CSQ", at.Options{})
	for _, l := range lines {
		match := csqRe.FindStringSubmatch(l)
		if match == nil {
			continue
		}
		code, _ := strconv.Atoi(match[1])
		sq.BER, _ = strconv.Atoi(match[2])
		if code == 99 {
			sq.RSSIdBm = -999 // not known or not detectable
		} else {
			sq.RSSIdBm = -113 + 2*code
		}
	}

	_, lines = m.eng.Exchange(`AT+QENG="servingcell"`, at.Options{})
	for _, l := range lines {
		if !strings.Contains(l, "+QENG:") || !strings.Contains(l, "LTE") {
			continue
		}
		// Positional fields per the Quectel LTE serving-cell response:
		// ...,<tac>,<rsrp>,<rsrq>,<rssi>,<sinr>,... with <rsrp> at offset 13.
		parts := strings.Split(l, ",")
		if len(parts) > 14 {
			if v, err := strconv.Atoi(strings.TrimSpace(parts[13])); err == nil {
				sq.RSRPdBm = v
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(parts[14]), 64); err == nil {
				sq.RSRQdB = v
			}
			if len(parts) > 16 {
				if v, err := strconv.ParseFloat(strings.TrimSpace(parts[16]), 64); err == nil {
					sq.SINRdB = v
				}
			}
		}
	}

	sq.Bars = barsFromRSSI(sq.RSSIdBm)
	return sq
}

// Registration queries +CREG and, when the network reported a serving cell,
// the operator name and access technology from +COPS.
func (m *Modem) Registration() (RegistrationStatus, *CellInfo) {
	status := RegUnknown
	var cell *CellInfo

	_, lines := m.eng.Exchange("AT+CREG?", at.Options{})
	for _, l := range lines {
		match := cregRe.FindStringSubmatch(l)
		if match == nil {
			continue
		}
		if stat, err := strconv.Atoi(match[1]); err == nil && stat >= 0 && stat <= 5 {
			status = RegistrationStatus(stat)
		}
		if match[2] == "" || match[3] == "" {
			continue
		}
		lac, err1 := strconv.ParseInt(match[2], 16, 32)
		cid, err2 := strconv.ParseInt(match[3], 16, 64)
		if err1 != nil || err2 != nil {
			continue
		}

		cell = &CellInfo{LAC: int(lac), CellID: int(cid), NetworkType: NetNone}
		_, opLines := m.eng.Exchange("AT+COPS?", at.Options{})
		for _, ol := range opLines {
			opMatch := copsRe.FindStringSubmatch(ol)
			if opMatch == nil {
				continue
			}
			cell.Operator = opMatch[1]
			if act, err := strconv.Atoi(opMatch[2]); err == nil {
				cell.NetworkType = networkTypeFromAcT(act)
			}
		}
	}
	return status, cell
}

// Connect brings up the data connection: registration gate, APN, PDP context
// activation. Returns false (state Error) when the network is not home or
// roaming registered, or activation fails.
func (m *Modem) Connect() bool {
	m.setState(StateConnecting)

	status, _ := m.Registration()
	if !status.Registered() {
		log.Printf("cellular: connect refused, registration=%s", status)
		m.setState(StateError)
		return false
	}

	m.eng.ExchangeOK(fmt.Sprintf(`AT+CGDCONT=1,"IP","%s"`, m.cfg.APN))

	ok, _ := m.eng.Exchange("AT+CGACT=1,1", at.Options{Timeout: m.cfg.ConnectTimeout})
	if !ok {
		log.Printf("cellular: pdp context activation failed")
		m.setState(StateError)
		return false
	}

	m.setState(StateConnected)
	log.Printf("cellular: data connection established apn=%s", m.cfg.APN)
	return true
}

// Disconnect deactivates the PDP context.
func (m *Modem) Disconnect() bool {
	ok := m.eng.ExchangeOK("AT+CGACT=0,1")
	if ok {
		m.setState(StateDisconnected)
	}
	return ok
}

// IsConnected queries packet-domain attachment and refreshes the cached
// connection state to match the modem's view.
func (m *Modem) IsConnected() bool {
	_, lines := m.eng.Exchange("AT+CGATT?", at.Options{})
	for _, l := range lines {
		_, val, found := strings.Cut(l, "+CGATT:")
		if !found {
			continue
		}
		attached := strings.TrimSpace(val) == "1"
		if attached {
			m.setState(StateConnected)
		} else {
			m.setState(StateDisconnected)
		}
		return attached
	}
	return false
}

// SendSMS sends one text-mode message.
func (m *Modem) SendSMS(number, message string) bool {
	m.eng.ExchangeOK("AT+CMGF=1")
	m.eng.ExchangeOK(`AT+CSCS="GSM"`)

	ok, _ := m.eng.Exchange(fmt.Sprintf(`AT+CMGS="%s"`, number), at.Options{
		WaitFor: ">",
		Timeout: 2 * time.Second,
	})
	if !ok {
		return false
	}

	if err := m.eng.WriteRaw([]byte(message + smsTerminator)); err != nil {
		return false
	}
	ok, _ = m.eng.Exchange("", at.Options{Timeout: defaultSMSTimeout})
	return ok
}

// Usage reads the session data counters from the vendor +QGDCNT query.
func (m *Modem) Usage() DataUsage {
	var u DataUsage
	_, lines := m.eng.Exchange("AT+QGDCNT?", at.Options{})
	for _, l := range lines {
		idx := strings.Index(l, "+QGDCNT:")
		if idx == -1 {
			continue
		}
		parts := strings.Split(strings.TrimSpace(l[idx+len("+QGDCNT:"):]), ",")
		if len(parts) < 2 {
			continue
		}
		if v, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64); err == nil {
			u.TxBytes = v
		}
		if v, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64); err == nil {
			u.RxBytes = v
		}
	}
	return u
}

// EnableGNSS turns on the modem's integrated GNSS receiver.
func (m *Modem) EnableGNSS() bool { return m.eng.ExchangeOK("AT+QGPS=1") }

// DisableGNSS turns the integrated receiver off.
func (m *Modem) DisableGNSS() bool { return m.eng.ExchangeOK("AT+QGPSEND") }

// GNSSLocation reads one fix from the integrated receiver. A thin
// pass-through; the standalone receiver path lives in the gnss package.
func (m *Modem) GNSSLocation() (lat, lon, alt float64, ok bool) {
	_, lines := m.eng.Exchange("AT+QGPSLOC?", at.Options{})
	for _, l := range lines {
		idx := strings.Index(l, "+QGPSLOC:")
		if idx == -1 {
			continue
		}
		parts := strings.Split(strings.TrimSpace(l[idx+len("+QGPSLOC:"):]), ",")
		if len(parts) < 5 {
			continue
		}
		la, err1 := strconv.ParseFloat(parts[1], 64)
		lo, err2 := strconv.ParseFloat(parts[2], 64)
		al, err3 := strconv.ParseFloat(parts[4], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		return la, lo, al, true
	}
	return 0, 0, 0, false
}
