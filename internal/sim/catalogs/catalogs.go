package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

var ErrUnknownCommodity = errors.New("unknown commodity")

type Rarity string

const (
	Common    Rarity = "common"
	Uncommon  Rarity = "uncommon"
	Rare      Rarity = "rare"
	Legendary Rarity = "legendary"
)

// Factor is the price multiplier for the rarity tier.
func (r Rarity) Factor() float64 {
	switch r {
	case Uncommon:
		return 1.5
	case Rare:
		return 2.5
	case Legendary:
		return 4.0
	default:
		return 1.0
	}
}

func (r Rarity) valid() bool {
	switch r {
	case Common, Uncommon, Rare, Legendary:
		return true
	}
	return false
}

// Well-known commodity ids used by planet initialisation.
const (
	Food        = "food"
	Minerals    = "minerals"
	Technology  = "technology"
	LuxuryGoods = "luxury_goods"
	Medicine    = "medicine"
	Weapons     = "weapons"
	Fuel        = "fuel"
	Spices      = "spices"
)

type Commodity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BasePrice int    `json:"base_price"`
	Rarity    Rarity `json:"rarity"`
	Category  string `json:"category"`
}

// Catalog is the immutable set of tradeable goods.
type Catalog struct {
	ids    []string
	byID   map[string]Commodity
	Digest string
}

var defaultCommodities = []Commodity{
	{ID: Food, Name: "Food", BasePrice: 10, Rarity: Common, Category: "consumable"},
	{ID: Minerals, Name: "Minerals", BasePrice: 25, Rarity: Common, Category: "raw"},
	{ID: Technology, Name: "Technology", BasePrice: 120, Rarity: Uncommon, Category: "manufactured"},
	{ID: LuxuryGoods, Name: "Luxury Goods", BasePrice: 200, Rarity: Rare, Category: "luxury"},
	{ID: Medicine, Name: "Medicine", BasePrice: 80, Rarity: Uncommon, Category: "consumable"},
	{ID: Weapons, Name: "Weapons", BasePrice: 150, Rarity: Rare, Category: "manufactured"},
	{ID: Fuel, Name: "Fuel", BasePrice: 30, Rarity: Common, Category: "raw"},
	{ID: Spices, Name: "Spices", BasePrice: 90, Rarity: Legendary, Category: "luxury"},
}

// Default returns the builtin eight-commodity catalog.
func Default() *Catalog {
	c, err := New(defaultCommodities)
	if err != nil {
		panic(err)
	}
	return c
}

func New(defs []Commodity) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Commodity, len(defs))}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("commodities: empty id")
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("commodities: duplicate id %q", d.ID)
		}
		if d.BasePrice <= 0 {
			return nil, fmt.Errorf("commodities: %s: base_price must be positive", d.ID)
		}
		if d.Rarity == "" {
			d.Rarity = Common
		}
		if !d.Rarity.valid() {
			return nil, fmt.Errorf("commodities: %s: bad rarity %q", d.ID, d.Rarity)
		}
		if d.Name == "" {
			d.Name = d.ID
		}
		c.byID[d.ID] = d
		c.ids = append(c.ids, d.ID)
	}
	if len(c.ids) == 0 {
		return nil, fmt.Errorf("commodities: empty catalog")
	}
	sort.Strings(c.ids)

	raw, _ := json.Marshal(c.All())
	c.Digest = sha256Hex(raw)
	return c, nil
}

// Load reads a JSON array of commodities.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var defs []Commodity
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("commodities.json: %w", err)
	}
	return New(defs)
}

func (c *Catalog) Get(id string) (Commodity, error) {
	d, ok := c.byID[id]
	if !ok {
		return Commodity{}, fmt.Errorf("%w: %q", ErrUnknownCommodity, id)
	}
	return d, nil
}

func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// IDs returns the sorted commodity ids. The slice must not be modified.
func (c *Catalog) IDs() []string { return c.ids }

func (c *Catalog) All() []Commodity {
	out := make([]Commodity, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id])
	}
	return out
}

// CheckManifest verifies every key is a known commodity and every quantity is positive.
func (c *Catalog) CheckManifest(m map[string]int) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !c.Has(k) {
			return fmt.Errorf("%w: %q", ErrUnknownCommodity, k)
		}
		if m[k] <= 0 {
			return fmt.Errorf("manifest: %s: quantity must be positive", k)
		}
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
