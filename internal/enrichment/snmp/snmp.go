// Package snmp probes a device over SNMPv2c to suggest map metadata
// (name, device type) for a freshly added IP address.
package snmp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"topomap/engine-go/internal/icon"
	"topomap/engine-go/internal/model"
)

// Config controls how the probe talks to a target agent.
type Config struct {
	Community string
	Version   string // "2c" (default) | "1"
	Port      uint16
	Timeout   time.Duration
	Retries   int
}

type SystemInfo struct {
	SysName  *string
	SysDescr *string
}

// Suggestion is the probe result offered to the editor when a device
// is added by IP: a display name and a best-guess device type.
type Suggestion struct {
	Name *string
	Type model.DeviceType
}

// Client wraps a minimal SNMPv2c implementation for metadata probing.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.Community) == "" {
		cfg.Community = "public"
	}
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = "2c"
	}
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 900 * time.Millisecond
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Client{cfg: cfg}
}

func (c *Client) connect(address string) (*gosnmp.GoSNMP, error) {
	version := strings.ToLower(strings.TrimSpace(c.cfg.Version))
	var snmpVersion gosnmp.SnmpVersion
	switch version {
	case "2c", "v2c", "":
		snmpVersion = gosnmp.Version2c
	case "1", "v1":
		snmpVersion = gosnmp.Version1
	default:
		return nil, fmt.Errorf("unsupported snmp version %q", c.cfg.Version)
	}

	s := &gosnmp.GoSNMP{
		Target:    address,
		Port:      c.cfg.Port,
		Community: c.cfg.Community,
		Version:   snmpVersion,
		Timeout:   c.cfg.Timeout,
		Retries:   c.cfg.Retries,
	}
	if err := s.Connect(); err != nil {
		return nil, err
	}
	return s, nil
}

const (
	oidSysDescr0 = "1.3.6.1.2.1.1.1.0"
	oidSysName0  = "1.3.6.1.2.1.1.5.0"
)

func pduString(pdu gosnmp.SnmpPDU) (*string, bool) {
	switch v := pdu.Value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, true
		}
		return &s, true
	case []byte:
		s := strings.TrimSpace(string(v))
		if s == "" {
			return nil, true
		}
		return &s, true
	default:
		return nil, false
	}
}

func (c *Client) GetSystem(ctx context.Context, address string) (SystemInfo, error) {
	if c == nil {
		return SystemInfo{}, errors.New("snmp client is nil")
	}
	_ = ctx

	s, err := c.connect(address)
	if err != nil {
		return SystemInfo{}, err
	}
	defer s.Conn.Close()

	pkt, err := s.Get([]string{oidSysName0, oidSysDescr0})
	if err != nil {
		return SystemInfo{}, err
	}

	var out SystemInfo
	for _, v := range pkt.Variables {
		switch v.Name {
		case oidSysName0:
			out.SysName, _ = pduString(v)
		case oidSysDescr0:
			out.SysDescr, _ = pduString(v)
		}
	}
	return out, nil
}

// Suggest probes sysName/sysDescr on the target and derives a device
// type from whichever string is present. SysDescr usually carries the
// vendor platform string, so it wins the type guess when both exist.
func (c *Client) Suggest(ctx context.Context, address string) (Suggestion, error) {
	info, err := c.GetSystem(ctx, address)
	if err != nil {
		return Suggestion{}, err
	}

	out := Suggestion{Name: info.SysName, Type: model.TypeServer}
	if info.SysDescr != nil {
		out.Type = icon.DetectType(*info.SysDescr)
	} else if info.SysName != nil {
		out.Type = icon.DetectType(*info.SysName)
	}
	return out, nil
}
