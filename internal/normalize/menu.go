package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "restaurant-site/internal/common/errors"
	"restaurant-site/internal/models"
)

const (
	DefaultItemName = "Unnamed Item"
	DefaultCategory = "general"

	// ShapeField is set on raw records extracted from the keyed-category shape.
	// Those records take their category from the key and keep a plain price.
	ShapeField = "_shape"
	ShapeKeyed = "keyed"
)

var menuRules = struct {
	ID          Rule[models.ItemID]
	Name        Rule[string]
	Description Rule[string]
	Price       Rule[interface{}]
	Image       Rule[string]
	Category    Rule[string]
	Featured    Rule[bool]
}{
	ID:          Rule[models.ItemID]{Paths: []string{"id", "item_id", "product_id"}, Convert: toID},
	Name:        stringRule(DefaultItemName, "title", "name", "item_name", "product_name"),
	Description: stringRule("", "description", "item_description"),
	Price:       Rule[interface{}]{Paths: []string{"price", "item_price", "selling_price"}, Default: 0, Convert: present},
	Image:       stringRule("", "image_url", "image", "item_image", "photo_url"),
	Category:    stringRule(DefaultCategory, "category", "category_name", "category.name"),
	Featured:    Rule[bool]{Paths: []string{"featured", "is_featured"}, Default: true, Convert: toBool},
}

var categoryRules = struct {
	ID   Rule[models.ItemID]
	Name Rule[string]
}{
	ID:   Rule[models.ItemID]{Paths: []string{"id", "category_id"}, Convert: toID},
	Name: stringRule("Uncategorized", "name", "category_name", "title"),
}

// MenuOptions controls menu item normalization.
type MenuOptions struct {
	Images ImageResolver
}

// MenuItem maps one raw menu item to a MenuItemRecord.
func MenuItem(raw models.RawRecord, opts MenuOptions) models.MenuItemRecord {
	rec := models.MenuItemRecord{
		ID:          menuRules.ID.Resolve(raw),
		Name:        menuRules.Name.Resolve(raw),
		Description: menuRules.Description.Resolve(raw),
		ImageURL:    opts.Images.Resolve(menuRules.Image.Resolve(raw)),
		Category:    menuRules.Category.Resolve(raw),
		Featured:    menuRules.Featured.Resolve(raw),
	}
	price := menuRules.Price.Resolve(raw)
	if raw[ShapeField] == ShapeKeyed {
		rec.Price = FormatPlainPrice(price)
	} else {
		rec.Price = FormatPrice(price)
	}
	return rec
}

// MenuItems maps raw menu items in order.
func MenuItems(raw []models.RawRecord, opts MenuOptions) []models.MenuItemRecord {
	out := make([]models.MenuItemRecord, 0, len(raw))
	for _, r := range raw {
		out = append(out, MenuItem(r, opts))
	}
	return out
}

// Category maps one raw category listing entry.
func Category(raw models.RawRecord) models.Category {
	return models.Category{
		ID:   categoryRules.ID.Resolve(raw),
		Name: categoryRules.Name.Resolve(raw),
	}
}

func Categories(raw []models.RawRecord) []models.Category {
	out := make([]models.Category, 0, len(raw))
	for _, r := range raw {
		out = append(out, Category(r))
	}
	return out
}

// ParseMenu extracts raw item records from any of the known menu payload shapes:
//
//	[...]
//	{"data": [...]}
//	{"items": [...]}
//	{"data": {"featured_items": [...]}}
//	{"data": {"<Category>": [...], ...}}
//
// Keyed categories keep their document order and each record gets the key as its
// category. Anything else is a shape validation error.
func ParseMenu(body []byte) ([]models.RawRecord, error) {
	var doc interface{}
	if err := decodeUseNumber(body, &doc); err != nil {
		return nil, apperrors.NewShapeValidationError("menu", "body is not JSON: "+err.Error())
	}

	if list, ok := doc.([]interface{}); ok {
		return objects(list), nil
	}
	top, ok := doc.(map[string]interface{})
	if !ok {
		return nil, apperrors.NewShapeValidationError("menu", fmt.Sprintf("unexpected top-level %T", doc))
	}
	if list, ok := top["data"].([]interface{}); ok {
		return objects(list), nil
	}
	if list, ok := top["items"].([]interface{}); ok {
		return objects(list), nil
	}
	data, ok := top["data"].(map[string]interface{})
	if !ok {
		return nil, apperrors.NewShapeValidationError("menu", "no data, items or top-level list")
	}
	if list, ok := data["featured_items"].([]interface{}); ok {
		return objects(list), nil
	}
	return parseKeyed(body)
}

// ParseList extracts records from a plain list payload: a top-level array,
// {"data": [...]} or {"items": [...]}.
func ParseList(body []byte) ([]models.RawRecord, error) {
	var doc interface{}
	if err := decodeUseNumber(body, &doc); err != nil {
		return nil, apperrors.NewShapeValidationError("list", "body is not JSON: "+err.Error())
	}
	if list, ok := doc.([]interface{}); ok {
		return objects(list), nil
	}
	if top, ok := doc.(map[string]interface{}); ok {
		for _, key := range []string{"data", "items"} {
			if list, ok := top[key].([]interface{}); ok {
				return objects(list), nil
			}
		}
	}
	return nil, apperrors.NewShapeValidationError("list", "expected an array, data or items")
}

// parseKeyed walks {"data": {...}} with a token decoder so category order matches
// the document.
func parseKeyed(body []byte) ([]models.RawRecord, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, apperrors.NewShapeValidationError("menu", err.Error())
	}

	dec := json.NewDecoder(bytes.NewReader(top["data"]))
	dec.UseNumber()
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, apperrors.NewShapeValidationError("menu", "data is not an object")
	}

	var out []models.RawRecord
	lists := 0
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, apperrors.NewShapeValidationError("menu", err.Error())
		}
		category, _ := tok.(string)

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, apperrors.NewShapeValidationError("menu", err.Error())
		}
		list, ok := value.([]interface{})
		if !ok {
			continue
		}
		lists++
		for _, rec := range objects(list) {
			rec["category"] = category
			rec[ShapeField] = ShapeKeyed
			out = append(out, rec)
		}
	}
	if lists == 0 {
		return nil, apperrors.NewShapeValidationError("menu", "data has no category lists")
	}
	return out, nil
}

func decodeUseNumber(body []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

// objects keeps the JSON objects of list; other entries cannot become records.
func objects(list []interface{}) []models.RawRecord {
	out := make([]models.RawRecord, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]interface{}); ok {
			out = append(out, models.RawRecord(m))
		}
	}
	return out
}
