package session

import (
	"fmt"
	"time"

	"tello/pkg/protocol"
)

type Config struct {
	PeerAddr         string `yaml:"peerAddr" env:"PEER_ADDR"`
	CommandPort      int    `yaml:"commandPort" env:"COMMAND_PORT"`
	LocalCommandPort int    `yaml:"localCommandPort" env:"LOCAL_COMMAND_PORT"`
	StatePort        int    `yaml:"statePort" env:"STATE_PORT"`
	VideoPort        int    `yaml:"videoPort" env:"VIDEO_PORT"`

	ResponseTimeout time.Duration `yaml:"responseTimeout" env:"RESPONSE_TIMEOUT"`
	FlightTimeout   time.Duration `yaml:"flightTimeout" env:"FLIGHT_TIMEOUT"`
	SettleDelay     time.Duration `yaml:"settleDelay" env:"SETTLE_DELAY"`

	StaleAfter      time.Duration `yaml:"staleAfter" env:"STALE_AFTER"`
	MonitorInterval time.Duration `yaml:"monitorInterval" env:"MONITOR_INTERVAL"`

	LowBattery           float64 `yaml:"lowBattery" env:"LOW_BATTERY"`
	AutoLandOnLowBattery bool    `yaml:"autoLandOnLowBattery" env:"AUTO_LAND_ON_LOW_BATTERY"`
}

func DefaultConfig() Config {
	return Config{
		PeerAddr:             protocol.DefaultPeerAddr,
		CommandPort:          protocol.DefaultCommandPort,
		StatePort:            protocol.DefaultStatePort,
		VideoPort:            protocol.DefaultVideoPort,
		ResponseTimeout:      protocol.DefaultResponseTimeout,
		FlightTimeout:        protocol.FlightTimeout,
		SettleDelay:          protocol.SettleDelay,
		StaleAfter:           5 * time.Second,
		MonitorInterval:      time.Second,
		LowBattery:           10,
		AutoLandOnLowBattery: true,
	}
}

// withDefaults replaces zero values that Validate would reject.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.PeerAddr == "" {
		c.PeerAddr = def.PeerAddr
	}
	if c.CommandPort == 0 {
		c.CommandPort = def.CommandPort
	}
	if c.StatePort == 0 {
		c.StatePort = def.StatePort
	}
	if c.VideoPort == 0 {
		c.VideoPort = def.VideoPort
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = def.ResponseTimeout
	}
	if c.FlightTimeout == 0 {
		c.FlightTimeout = def.FlightTimeout
	}
	if c.StaleAfter == 0 {
		c.StaleAfter = def.StaleAfter
	}
	if c.MonitorInterval == 0 {
		c.MonitorInterval = def.MonitorInterval
	}

	return c
}

func (c Config) Validate() error {
	if c.PeerAddr == "" {
		return fmt.Errorf("empty peer address")
	}

	for name, p := range map[string]int{"command": c.CommandPort, "state": c.StatePort, "video": c.VideoPort} {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid %s port %d", name, p)
		}
	}

	if c.LocalCommandPort < 0 || c.LocalCommandPort > 65535 {
		return fmt.Errorf("invalid local command port %d", c.LocalCommandPort)
	}

	if c.ResponseTimeout <= 0 || c.FlightTimeout <= 0 || c.MonitorInterval <= 0 || c.StaleAfter <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}

	if c.SettleDelay < 0 {
		return fmt.Errorf("negative settle delay")
	}

	return nil
}
