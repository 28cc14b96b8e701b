package feed

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/clbanning/mxj/v2"
)

// containerPaths are probed beneath the document root in declared order;
// the first that yields at least one property node wins.
var containerPaths = []string{"property", "properties.property"}

// Fallback chains, probed in declared order. Dotted keys descend into
// nested nodes. First defined, non-empty value wins.
var (
	townChain    = []string{"location.city", "city", "town"}
	typeChain    = []string{"type", "property_type"}
	bedsChain    = []string{"beds", "bedrooms"}
	refChain     = []string{"ref", "reference"}
	surfaceChain = []string{"size", "surface_area.built", "surface_area.plot"}
	bathsChain   = []string{"baths", "bathrooms"}
)

const (
	defaultTown = "Unknown"
	defaultType = "Property"
)

// Normalize maps one region's raw XML feed body to canonical records. It
// never fails: malformed XML or an unrecognized document shape yields an
// empty slice, and unusable fields fall back to defaults record by record.
// Nodes without an id are dropped since there is nothing to upsert on.
func Normalize(region string, body []byte, now time.Time) []Property {
	out := []Property{}
	doc, err := mxj.NewMapXml(body)
	if err != nil {
		return out
	}
	for _, raw := range propertyNodes(doc) {
		node, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id := strings.TrimSpace(stringify(unwrap(node["id"])))
		if id == "" {
			continue
		}
		p := Property{
			ExternalID:   id,
			Title:        localized(node["title"]),
			Region:       region,
			Price:        toFloat(node["price"]),
			Town:         chainString(node, townChain, defaultTown),
			PropertyType: chainString(node, typeChain, defaultType),
			Beds:         chainString(node, bedsChain, "0"),
			Reference:    chainString(node, refChain, id),
			Images:       imageURLs(node),
			UpdatedAt:    now,
		}
		built := toFloat(chainValue(node, surfaceChain))
		p.Details = Details{
			Bathrooms: toFloat(chainValue(node, bathsChain)),
			Built:     built,
			Surface:   built,
		}
		out = append(out, p)
	}
	return out
}

// propertyNodes locates the listing container regardless of the document
// root's element name (root, kyero, properties, ...): the parsed map keeps
// that element as its sole top-level key, so probing descends into it
// before trying the container paths.
func propertyNodes(doc mxj.Map) []any {
	root := map[string]any(doc)
	if len(root) == 1 {
		for _, v := range root {
			if m, ok := unwrap(v).(map[string]any); ok {
				root = m
			}
		}
	}
	for _, path := range containerPaths {
		if arr := asArray(lookup(root, path)); len(arr) > 0 {
			return arr
		}
	}
	return nil
}

// lookup walks a dotted path through nested maps, unwrapping
// single-element arrays along the way.
func lookup(node map[string]any, path string) any {
	var cur any = node
	for _, part := range strings.Split(path, ".") {
		m, ok := unwrap(cur).(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

// unwrap takes the first element of an array-shaped value; feeds emit the
// same field as a bare value or a one-element list interchangeably.
func unwrap(v any) any {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	}
	return v
}

func asArray(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// localized resolves a possibly language-keyed node: fr wins, then en,
// then any remaining key in stable order, else the raw value stringified.
func localized(v any) string {
	m, ok := unwrap(v).(map[string]any)
	if !ok {
		return strings.TrimSpace(stringify(unwrap(v)))
	}
	for _, lang := range []string{"fr", "en"} {
		if s := strings.TrimSpace(stringify(unwrap(m[lang]))); s != "" {
			return s
		}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := strings.TrimSpace(stringify(unwrap(m[k]))); s != "" {
			return s
		}
	}
	return ""
}

// chainValue probes a fallback chain and returns the first defined,
// non-empty-string value.
func chainValue(node map[string]any, chain []string) any {
	for _, path := range chain {
		v := unwrap(lookup(node, path))
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

func chainString(node map[string]any, chain []string, def string) string {
	if s := localized(chainValue(node, chain)); s != "" {
		return s
	}
	return def
}

// imageURLs flattens the images.image container to an ordered URL list,
// dropping empty entries. A property without images yields an empty list,
// never nil.
func imageURLs(node map[string]any) []string {
	container := lookup(node, "images.image")
	if container == nil {
		container = lookup(node, "images")
	}
	entries := asArray(container)
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		if u := imageURL(e); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// imageURL accepts a bare string entry, an entry with a url child, or an
// entry whose URL sits in XML text content.
func imageURL(v any) string {
	switch t := unwrap(v).(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		if s := strings.TrimSpace(stringify(unwrap(t["url"]))); s != "" {
			return s
		}
		return strings.TrimSpace(stringify(unwrap(t["#text"])))
	default:
		return strings.TrimSpace(stringify(t))
	}
}

// toFloat coerces price/size fields leniently: a failed parse or a
// negative value yields 0, never an error. Feed quality is not ours to
// control.
func toFloat(v any) float64 {
	s := localized(v)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
