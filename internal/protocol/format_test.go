package protocol

import "testing"

func TestEventString(t *testing.T) {
	won := true
	cases := []struct {
		ev   Event
		want string
	}{
		{
			Event{Kind: KindCargoLaunched, T: 20, ShipID: 1, Origin: "Ceres", Destination: "Vesta", Manifest: map[string]int{"water": 2, "food": 150}, Value: 1520},
			"t=20.0 day=0 CARGO_LAUNCHED ship=1 Ceres->Vesta cargo=food:150,water:2 value=1520",
		},
		{
			Event{Kind: KindRaidResolved, T: 31.5, Day: 2, ShipID: 4, RaiderID: 2, Base: "Tortuga", Success: &won, Value: 1500},
			"t=31.5 day=2 RAID_RESOLVED ship=4 raider=2 base=Tortuga success value=1500",
		},
		{
			Event{Kind: KindDiagnostic, Entity: "raider", Message: "boom"},
			"t=0.0 day=0 DIAGNOSTIC raider: boom",
		},
	}
	for _, c := range cases {
		if got := c.ev.String(); got != c.want {
			t.Fatalf("got  %q\nwant %q", got, c.want)
		}
	}
}
