package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/noah-isme/bezva-storefront/internal/pricing"
	"github.com/noah-isme/bezva-storefront/internal/promo"
)

// productID keeps numeric catalog ids numeric in the persisted record.
type productID string

func (p productID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(p), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(p) {
		return []byte(p), nil
	}
	return json.Marshal(string(p))
}

func (p *productID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = productID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = productID(n.String())
	return nil
}

type itemRecord struct {
	Key   string    `json:"key"`
	ID    productID `json:"id"`
	Name  string    `json:"name"`
	Price float64   `json:"price"`
	Qty   int       `json:"qty"`
	Image string    `json:"image"`
	Meta  Meta      `json:"meta"`
}

type promoRecord struct {
	Code string `json:"code"`
}

func encodeItems(items []Item) ([]byte, error) {
	records := make([]itemRecord, 0, len(items))
	for _, it := range items {
		meta := it.Meta
		if meta == nil {
			meta = Meta{}
		}
		records = append(records, itemRecord{
			Key:   it.Key,
			ID:    productID(it.ProductID),
			Name:  it.Name,
			Price: pricing.ToUnits(it.UnitPrice),
			Qty:   it.Qty,
			Image: it.Image,
			Meta:  meta,
		})
	}
	return json.Marshal(records)
}

// decodeItems parses the items record. Entries without a product id are skipped,
// quantities are clamped and keys are re-derived so identity stays canonical.
func decodeItems(data []byte) ([]Item, error) {
	var records []itemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(records))
	index := make(map[string]int, len(records))
	for _, rec := range records {
		id := strings.TrimSpace(string(rec.ID))
		if id == "" {
			continue
		}
		key, meta, err := lineIdentity(id, rec.Meta)
		if err != nil {
			continue
		}
		price := max(pricing.FromUnits(rec.Price), 0)
		if pos, ok := index[key]; ok {
			items[pos].Qty = ClampQty(items[pos].Qty + rec.Qty)
			continue
		}
		index[key] = len(items)
		items = append(items, Item{
			Key:       key,
			ProductID: id,
			Name:      rec.Name,
			UnitPrice: price,
			Qty:       ClampQty(rec.Qty),
			Image:     rec.Image,
			Meta:      meta,
		})
	}
	return items, nil
}

func encodePromo(code string) ([]byte, error) {
	return json.Marshal(promoRecord{Code: code})
}

var errUnknownStoredPromo = errors.New("stored promo code is not in the rule table")

func decodePromo(data []byte, rules promo.Table) (string, error) {
	var rec promoRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", err
	}
	code := promo.Normalize(rec.Code)
	if code == "" {
		return "", nil
	}
	if _, ok := rules.Lookup(code); !ok {
		return "", errUnknownStoredPromo
	}
	return code, nil
}
