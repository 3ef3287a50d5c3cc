package subdoc

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item is one embedded record of a parent document. Its identifier lives
// under "_id"; legacy records may carry it as a string or under "id".
type Item map[string]any

// Parent is the one-per-owner container of an ordered item sequence.
type Parent struct {
	ID    primitive.ObjectID
	Owner primitive.ObjectID
	Items []Item
	// Version grows with every write. Documents written without one read as 0.
	Version int64
}

// IndexOf returns the position of the item whose normalized id equals id, or -1.
func (p *Parent) IndexOf(id primitive.ObjectID) int {
	for i, item := range p.Items {
		if itemID, ok := ItemID(item); ok && itemID == id {
			return i
		}
	}
	return -1
}

// Layout describes where one kind of parent document lives.
type Layout struct {
	Kind       string
	Collection string
	OwnerField string
	ItemsField string
}

var (
	MealPlans = Layout{
		Kind:       "meal_plans",
		Collection: "meal_plans",
		OwnerField: "patient",
		ItemsField: "plans",
	}
	Anamnesis = Layout{
		Kind:       "anamnesis",
		Collection: "anamnesis",
		OwnerField: "patient",
		ItemsField: "entries",
	}
	EnergyCalculations = Layout{
		Kind:       "energy_calculations",
		Collection: "energy_calculations",
		OwnerField: "patient",
		ItemsField: "calculations",
	}
)

// Layouts lists every parent document kind served by the API.
func Layouts() []Layout {
	return []Layout{MealPlans, Anamnesis, EnergyCalculations}
}

// NormalizeID reads an identifier persisted as an ObjectID, a hex string
// or an extended-JSON {"$oid": ...} document.
func NormalizeID(v any) (primitive.ObjectID, bool) {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id, !id.IsZero()
	case *primitive.ObjectID:
		if id == nil {
			return primitive.NilObjectID, false
		}
		return *id, !id.IsZero()
	case string:
		oid, err := primitive.ObjectIDFromHex(strings.ToLower(strings.TrimSpace(id)))
		if err != nil {
			return primitive.NilObjectID, false
		}
		return oid, true
	case Item:
		return NormalizeID(id["$oid"])
	case bson.M:
		return NormalizeID(id["$oid"])
	case map[string]any:
		return NormalizeID(id["$oid"])
	case primitive.D:
		return NormalizeID(id.Map()["$oid"])
	}
	return primitive.NilObjectID, false
}

// ItemID returns the normalized identifier of an item, looking at "_id"
// first and at the legacy "id" key second.
func ItemID(item Item) (primitive.ObjectID, bool) {
	if id, ok := NormalizeID(item["_id"]); ok {
		return id, true
	}
	return NormalizeID(item["id"])
}

// hasCanonicalID reports whether a store can match the item by a typed
// "_id" equality predicate.
func hasCanonicalID(item Item) bool {
	id, ok := item["_id"].(primitive.ObjectID)
	if !ok || id.IsZero() {
		return false
	}
	_, legacy := item["id"]
	return !legacy
}

// NormalizeItems returns a copy of items where every item carries a typed,
// unique "_id". Items already stored that way keep their id even when a
// legacy item earlier in the sequence claims the same one. The second value
// counts rewritten items.
func NormalizeItems(items []Item) ([]Item, int) {
	out := make([]Item, len(items))
	seen := make(map[primitive.ObjectID]bool, len(items))

	for i, item := range items {
		if !hasCanonicalID(item) {
			continue
		}
		id := item["_id"].(primitive.ObjectID)
		if seen[id] {
			continue
		}
		seen[id] = true
		out[i] = item
	}

	repaired := 0
	for i, item := range items {
		if out[i] != nil {
			continue
		}
		id, ok := ItemID(item)
		if !ok || seen[id] {
			id = primitive.NewObjectID()
		}
		seen[id] = true

		fixed := cloneItem(item)
		delete(fixed, "id")
		fixed["_id"] = id
		out[i] = fixed
		repaired++
	}
	return out, repaired
}

func cloneItem(item Item) Item {
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

// Encode turns a typed value into an Item using its bson field names.
// Nil pointers tagged omitempty are left out, which makes Encode usable
// for partial updates.
func Encode(v any) (Item, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	var item Item
	if err := bson.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return item, nil
}

// Decode converts stored items into their typed representation.
func Decode[T any](items []Item) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := DecodeItem(item, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeItem converts a single item into v. Legacy identifiers are
// normalized first so typed ids always decode.
func DecodeItem(item Item, v any) error {
	if id, ok := ItemID(item); ok && !hasCanonicalID(item) {
		item = cloneItem(item)
		delete(item, "id")
		item["_id"] = id
	}
	data, err := bson.Marshal(item)
	if err != nil {
		return fmt.Errorf("decode item: %w", err)
	}
	if err := bson.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode item: %w", err)
	}
	return nil
}

// toItem accepts the shapes an embedded document may decode into.
func toItem(v any) (Item, bool) {
	switch doc := v.(type) {
	case Item:
		return doc, true
	case bson.M:
		return Item(doc), true
	case map[string]any:
		return Item(doc), true
	case primitive.D:
		return Item(doc.Map()), true
	}
	return nil, false
}

func toItems(v any) ([]Item, error) {
	if v == nil {
		return []Item{}, nil
	}
	var raw []any
	switch arr := v.(type) {
	case primitive.A:
		raw = arr
	case []any:
		raw = arr
	case []Item:
		return arr, nil
	default:
		return nil, fmt.Errorf("items field has unexpected type %T", v)
	}

	items := make([]Item, 0, len(raw))
	for _, elem := range raw {
		item, ok := toItem(elem)
		if !ok {
			return nil, fmt.Errorf("item has unexpected type %T", elem)
		}
		items = append(items, item)
	}
	return items, nil
}
