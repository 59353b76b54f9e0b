package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
	Day     int    `json:"day"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed          int64   `json:"seed"`
	TickRate      int     `json:"tick_rate_hz"`
	DaySeconds    float64 `json:"day_seconds"`
	CatalogDigest string  `json:"catalog_digest"`
	Reputation    int     `json:"reputation"`

	// Clock.
	Now    float64 `json:"now"`
	DT     float64 `json:"dt"`
	Day    int     `json:"day"`
	DayAcc float64 `json:"day_acc"`

	// Marshalled generator state; empty when the generator cannot be captured.
	RNG []byte `json:"rng,omitempty"`

	Planets []PlanetV1 `json:"planets"`
	Trends  []TrendV1  `json:"trends"`
	Routes  []RouteV1  `json:"routes"`
	Bases   []BaseV1   `json:"bases"`
	Ships   []ShipV1   `json:"ships"`
	Raiders []RaiderV1 `json:"raiders"`

	NextShipID   uint64  `json:"next_ship_id"`
	NextRaiderID uint64  `json:"next_raider_id"`
	SpawnAcc     float64 `json:"spawn_acc"`
	StatusAcc    float64 `json:"status_acc"`

	Counters CountersV1 `json:"counters"`
}

type PlanetV1 struct {
	Name       string     `json:"name"`
	Pos        [3]float64 `json:"pos"`
	Type       string     `json:"type"`
	Population int        `json:"population"`

	Stock        map[string]float64 `json:"stock"`
	Production   map[string]float64 `json:"production"`
	Consumption  map[string]float64 `json:"consumption"`
	TradeVolume  map[string]float64 `json:"trade_volume,omitempty"`
	Blockaded    bool               `json:"blockaded,omitempty"`
	BlockadeDays int                `json:"blockade_days,omitempty"`
}

type TrendV1 struct {
	Commodity string  `json:"commodity"`
	Demand    float64 `json:"demand"`
	Supply    float64 `json:"supply"`
	Direction string  `json:"direction"`
}

type RouteV1 struct {
	Origin        string         `json:"origin"`
	Destination   string         `json:"destination"`
	Manifest      map[string]int `json:"manifest"`
	ContractValue int            `json:"contract_value,omitempty"`
}

type IntelV1 struct {
	ShipID         uint64         `json:"ship_id"`
	Origin         string         `json:"origin"`
	Destination    string         `json:"destination"`
	Manifest       map[string]int `json:"manifest"`
	EstimatedValue int            `json:"estimated_value"`
	Timestamp      float64        `json:"timestamp"`
	Claimed        bool           `json:"claimed,omitempty"`
}

type BaseV1 struct {
	Name             string             `json:"name"`
	Pos              [3]float64         `json:"pos"`
	Stock            map[string]float64 `json:"stock"`
	DailyConsumption map[string]float64 `json:"daily_consumption"`
	Intel            []IntelV1          `json:"intel,omitempty"`
	LastRaidAt       float64            `json:"last_raid_at"`
	Attempted        bool               `json:"attempted,omitempty"`
	RaidInterval     float64            `json:"raid_interval"`
}

type ShipV1 struct {
	ID            uint64         `json:"id"`
	Origin        string         `json:"origin"`
	Destination   string         `json:"destination"`
	Manifest      map[string]int `json:"manifest"`
	Pos           [3]float64     `json:"pos"`
	Speed         float64        `json:"speed"`
	ContractValue int            `json:"contract_value"`
}

type RaiderV1 struct {
	ID        uint64         `json:"id"`
	Base      string         `json:"base"`
	Intel     *IntelV1       `json:"intel,omitempty"`
	Pos       [3]float64     `json:"pos"`
	Speed     float64        `json:"speed"`
	Weapons   int            `json:"weapons"`
	Crew      int            `json:"crew"`
	RaidRange float64        `json:"raid_range"`
	State     string         `json:"state"`
	Stolen    map[string]int `json:"stolen,omitempty"`
	Target    uint64         `json:"target,omitempty"`
	HuntTime  float64        `json:"hunt_time,omitempty"`
}

type CountersV1 struct {
	Launched    int `json:"launched"`
	Delivered   int `json:"delivered"`
	Raids       int `json:"raids"`
	RaidsWon    int `json:"raids_won"`
	StolenUnits int `json:"stolen_units"`
	Diagnostics int `json:"diagnostics"`
}

// Codec is picked from the file extension: ".lz4" uses lz4 frames, anything else zstd.
type Codec string

const (
	CodecZstd Codec = "zstd"
	CodecLZ4  Codec = "lz4"
)

func CodecFor(path string) Codec {
	if strings.HasSuffix(path, ".lz4") {
		return CodecLZ4
	}
	return CodecZstd
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var enc io.WriteCloser
	switch CodecFor(path) {
	case CodecLZ4:
		enc = lz4.NewWriter(f)
	default:
		zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		enc = zw
	}

	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	var src io.Reader
	switch CodecFor(path) {
	case CodecLZ4:
		src = lz4.NewReader(f)
	default:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return snap, err
		}
		defer dec.Close()
		src = dec
	}

	br := bufio.NewReaderSize(src, 256*1024)

	// Header line is for humans and tooling; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader reads only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	var src io.Reader
	switch CodecFor(path) {
	case CodecLZ4:
		src = lz4.NewReader(f)
	default:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return h, err
		}
		defer dec.Close()
		src = dec
	}
	line, err := bufio.NewReader(src).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	err = json.Unmarshal(line, &h)
	return h, err
}

// FileName is the canonical snapshot file name for a tick.
func FileName(tick uint64, codec Codec) string {
	ext := ".snap.zst"
	if codec == CodecLZ4 {
		ext = ".snap.lz4"
	}
	return fmt.Sprintf("%020d%s", tick, ext)
}

// Latest returns the snapshot in dir with the highest tick, or "" when there is none.
func Latest(dir string) (string, uint64, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, nil
		}
		return "", 0, err
	}
	type cand struct {
		path string
		tick uint64
	}
	var cands []cand
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		base := strings.TrimSuffix(strings.TrimSuffix(name, ".snap.zst"), ".snap.lz4")
		if base == name {
			continue
		}
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		cands = append(cands, cand{path: filepath.Join(dir, name), tick: tick})
	}
	if len(cands) == 0 {
		return "", 0, nil
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].tick < cands[j].tick })
	last := cands[len(cands)-1]
	return last.path, last.tick, nil
}
