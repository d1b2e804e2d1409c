package cellular

import (
	"io"
	"strconv"
	"strings"
	"sync"
)

// SimPort is a scripted AT responder used when no physical modem is present
// and by the package tests. It models a home-registered LTE modem with a
// ready SIM.
type SimPort struct {
	mu     sync.Mutex
	buf    []byte
	closed bool

	registered bool
	rssiDBm    int
	pdpActive  bool
	attached   bool
	gnssOn     bool

	// awaiting the SMS body after a +CMGS prompt
	smsPending bool
}

func NewSimPort() *SimPort {
	return &SimPort{registered: true, rssiDBm: -71, attached: true}
}

// SetRegistered flips the simulated network registration.
func (p *SimPort) SetRegistered(reg bool) {
	p.mu.Lock()
	p.registered = reg
	p.mu.Unlock()
}

// SetSignalDBM sets the RSSI reported via +CSQ. Values are clamped to the
// -113..-51 range the code space can express.
func (p *SimPort) SetSignalDBM(dbm int) {
	p.mu.Lock()
	p.rssiDBm = dbm
	p.mu.Unlock()
}

func (p *SimPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.EOF
	}
	if len(p.buf) == 0 {
		return 0, nil
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *SimPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.EOF
	}

	if p.smsPending {
		p.smsPending = false
		if strings.HasSuffix(string(b), smsTerminator) {
			p.respond("+CMGS: 1", "OK")
		} else {
			p.respond("ERROR")
		}
		return len(b), nil
	}

	cmd := strings.TrimSpace(string(b))
	p.handle(cmd)
	return len(b), nil
}

func (p *SimPort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *SimPort) respond(lines ...string) {
	for _, l := range lines {
		p.buf = append(p.buf, []byte(l+"\r\n")...)
	}
}

func (p *SimPort) csqCode() int {
	code := (p.rssiDBm + 113) / 2
	if code < 0 {
		code = 0
	}
	if code > 31 {
		code = 31
	}
	return code
}

func (p *SimPort) handle(cmd string) {
	switch {
	case cmd == "AT", cmd == "ATE0", cmd == "AT+CMEE=2",
		cmd == "AT+CREG=2", cmd == "AT+CEREG=2",
		cmd == "AT+CMGF=1", cmd == `AT+CSCS="GSM"`:
		p.respond("OK")

	case cmd == "ATI":
		p.respond("Quectel", "EG25", "Revision: EG25GGBR07A08M2G", "OK")
	case cmd == "AT+GSN":
		p.respond("861536030196001", "OK")
	case cmd == "AT+CIMI":
		p.respond("310260000000000", "OK")
	case cmd == "AT+CCID":
		p.respond("+CCID: 8901260000000000000", "OK")

	case cmd == "AT+CPIN?":
		p.respond("+CPIN: READY", "OK")

	case cmd == "AT+CSQ":
		p.respond("+CSQ: "+strconv.Itoa(p.csqCode())+",0", "OK")

	case cmd == `AT+QENG="servingcell"`:
		p.respond(`+QENG: "servingcell","NOCONN","LTE","FDD",310,260,5A3F01,12,2300,2,5,5,2D2D,-95,-10,-63,12,32`, "OK")

	case cmd == "AT+CREG?":
		if p.registered {
			p.respond(`+CREG: 2,1,"2D2D","05A3F01"`, "OK")
		} else {
			p.respond("+CREG: 2,2", "OK")
		}

	case cmd == "AT+COPS?":
		p.respond(`+COPS: 0,0,"SimuCell",7`, "OK")

	case strings.HasPrefix(cmd, "AT+CGDCONT="):
		p.respond("OK")

	case cmd == "AT+CGACT=1,1":
		if p.registered {
			p.pdpActive = true
			p.attached = true
			p.respond("OK")
		} else {
			p.respond("+CME ERROR: no network service")
		}
	case cmd == "AT+CGACT=0,1":
		p.pdpActive = false
		p.attached = false
		p.respond("OK")

	case cmd == "AT+CGATT?":
		if p.attached {
			p.respond("+CGATT: 1", "OK")
		} else {
			p.respond("+CGATT: 0", "OK")
		}

	case strings.HasPrefix(cmd, "AT+CMGS="):
		p.smsPending = true
		p.buf = append(p.buf, []byte("> ")...)

	case cmd == "AT+QGDCNT?":
		p.respond("+QGDCNT: 1048576,5242880", "OK")

	case cmd == "AT+QGPS=1":
		p.gnssOn = true
		p.respond("OK")
	case cmd == "AT+QGPSEND":
		p.gnssOn = false
		p.respond("OK")
	case cmd == "AT+QGPSLOC?":
		if p.gnssOn {
			p.respond("+QGPSLOC: 120000.0,47.606200,-122.332100,1.2,56.0,3,0.0,0.0,0.0,310825,08", "OK")
		} else {
			p.respond("+CME ERROR: 516")
		}

	default:
		p.respond("ERROR")
	}
}
