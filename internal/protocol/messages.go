package protocol

// SUBSCRIBE (client -> server)
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Kinds           []string `json:"kinds,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	Catalog         DigestRef   `json:"catalog"`
}

type WorldParams struct {
	TickRateHz int     `json:"tick_rate_hz"`
	DaySeconds float64 `json:"day_seconds"`
	Seed       int64   `json:"seed"`
	Planets    int     `json:"planets"`
	Bases      int     `json:"bases"`
	Routes     int     `json:"routes"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// EVENTS (server -> client), one per tick that produced events.
type EventsMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	Events          []Event `json:"events"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
