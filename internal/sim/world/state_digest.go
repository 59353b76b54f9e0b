package world

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"lukechampine.com/blake3"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

// stateDigest hashes every piece of mutable state in a fixed order.
func (w *World) stateDigest(nowTick uint64) string {
	h := blake3.New(32, nil)
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	digestWriteF64(h, &tmp, w.clock.Now())
	digestWriteI64(h, &tmp, int64(w.clock.Day()))
	digestWriteF64(h, &tmp, w.clock.DayProgress())
	digestWriteF64(h, &tmp, w.spawnAcc)
	digestWriteF64(h, &tmp, w.statusAcc)
	digestWriteU64(h, &tmp, w.nextShipID)
	digestWriteU64(h, &tmp, w.nextRaiderID)

	for _, p := range w.planets {
		digestWriteString(h, &tmp, p.Name)
		st := p.Economy.State()
		digestWriteFloatMap(h, &tmp, st.Stock)
		digestWriteFloatMap(h, &tmp, st.TradeVolume)
		digestWriteBool(h, st.Blockaded)
		digestWriteI64(h, &tmp, int64(st.BlockadeDays))
	}

	trends := w.market.Trends()
	for _, c := range sortedKeys(trends) {
		t := trends[c]
		digestWriteString(h, &tmp, c)
		digestWriteF64(h, &tmp, t.Demand)
		digestWriteF64(h, &tmp, t.Supply)
		digestWriteString(h, &tmp, string(t.Direction))
	}

	for _, b := range w.bases {
		digestWriteString(h, &tmp, b.Name)
		digestWriteFloatMap(h, &tmp, b.Stock)
		digestWriteF64(h, &tmp, b.LastRaidAt)
		digestWriteBool(h, b.attempted)
		digestWriteU64(h, &tmp, uint64(len(b.Intel)))
		for _, in := range b.Intel {
			digestWriteIntel(h, &tmp, in)
		}
	}

	for _, s := range w.ships {
		digestWriteU64(h, &tmp, s.ID)
		digestWriteVec(h, &tmp, s.Pos.Array())
		digestWriteIntMap(h, &tmp, s.Manifest)
		digestWriteI64(h, &tmp, int64(s.ContractValue))
	}

	for _, r := range w.raiders {
		digestWriteU64(h, &tmp, r.ID)
		digestWriteString(h, &tmp, r.Base)
		digestWriteString(h, &tmp, string(r.State))
		digestWriteVec(h, &tmp, r.Pos.Array())
		digestWriteIntMap(h, &tmp, r.Stolen)
		digestWriteU64(h, &tmp, r.Target)
		digestWriteF64(h, &tmp, r.HuntTime)
		digestWriteBool(h, r.Intel != nil)
		if r.Intel != nil {
			digestWriteIntel(h, &tmp, *r.Intel)
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hashWriter, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func digestWriteBool(h hashWriter, b bool) {
	if b {
		h.Write([]byte{1})
		return
	}
	h.Write([]byte{0})
}

func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func digestWriteVec(h hashWriter, tmp *[8]byte, v [3]float64) {
	for _, c := range v {
		digestWriteF64(h, tmp, c)
	}
}

func digestWriteFloatMap(h hashWriter, tmp *[8]byte, m map[string]float64) {
	for _, k := range sortedKeys(m) {
		digestWriteString(h, tmp, k)
		digestWriteF64(h, tmp, m[k])
	}
}

func digestWriteIntMap(h hashWriter, tmp *[8]byte, m map[string]int) {
	for _, k := range sortedKeys(m) {
		if m[k] == 0 {
			continue
		}
		digestWriteString(h, tmp, k)
		digestWriteI64(h, tmp, int64(m[k]))
	}
}

func digestWriteIntel(h hashWriter, tmp *[8]byte, in CargoIntel) {
	digestWriteU64(h, tmp, in.ShipID)
	digestWriteIntMap(h, tmp, in.Manifest)
	digestWriteI64(h, tmp, int64(in.EstimatedValue))
	digestWriteF64(h, tmp, in.Timestamp)
	digestWriteBool(h, in.Claimed)
}
