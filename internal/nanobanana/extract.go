package nanobanana

import (
	"errors"
	"strconv"
)

// ErrNoImagesFound is returned when no known response shape matches.
var ErrNoImagesFound = errors.New("no images found in task result")

// The provider's response envelope is not stable across models and API
// versions. Each shape observed in production gets one matcher below; they
// run in priority order and the first match wins. Keeping them as a flat
// list makes the priority explicit and each shape testable on its own.
type shapeMatcher struct {
	name string
	try  func(Response) ([]string, bool)
}

var shapeMatchers = []shapeMatcher{
	{"data.url", func(r Response) ([]string, bool) {
		data, ok := asMap(r["data"])
		if !ok {
			return nil, false
		}
		if url, ok := data["url"].(string); ok {
			return []string{url}, true
		}
		return nil, false
	}},
	{"data.urls", func(r Response) ([]string, bool) {
		data, ok := asMap(r["data"])
		if !ok {
			return nil, false
		}
		items, ok := asSlice(data["urls"])
		if !ok {
			return nil, false
		}
		return urlsFromItems(items, false), true
	}},
	{"data.data[]", func(r Response) ([]string, bool) {
		data, ok := asMap(r["data"])
		if !ok {
			return nil, false
		}
		items, ok := asSlice(data["data"])
		if !ok {
			return nil, false
		}
		return urlsFromItems(items, false), true
	}},
	{"data[]", func(r Response) ([]string, bool) {
		items, ok := asSlice(r["data"])
		if !ok {
			return nil, false
		}
		return urlsFromItems(items, false), true
	}},
	{"images[]", func(r Response) ([]string, bool) {
		items, ok := asSlice(r["images"])
		if !ok {
			return nil, false
		}
		return urlsFromItems(items, true), true
	}},
	{"data.result.images[]", func(r Response) ([]string, bool) {
		data, ok := asMap(r["data"])
		if !ok {
			return nil, false
		}
		result, ok := asMap(data["result"])
		if !ok {
			return nil, false
		}
		items, ok := asSlice(result["images"])
		if !ok {
			return nil, false
		}
		return urlsFromItems(items, true), true
	}},
	{"result.images[]", func(r Response) ([]string, bool) {
		result, ok := asMap(r["result"])
		if !ok {
			return nil, false
		}
		items, ok := asSlice(result["images"])
		if !ok {
			return nil, false
		}
		return urlsFromItems(items, true), true
	}},
	{"data.result.url", func(r Response) ([]string, bool) {
		data, ok := asMap(r["data"])
		if !ok {
			return nil, false
		}
		result, ok := asMap(data["result"])
		if !ok {
			return nil, false
		}
		return singleURL(result["url"])
	}},
	{"result.url", func(r Response) ([]string, bool) {
		result, ok := asMap(r["result"])
		if !ok {
			return nil, false
		}
		return singleURL(result["url"])
	}},
	{"url", func(r Response) ([]string, bool) {
		if url, ok := r["url"].(string); ok {
			return []string{url}, true
		}
		return nil, false
	}},
	{"data string", func(r Response) ([]string, bool) {
		if s, ok := r["data"].(string); ok {
			return []string{s}, true
		}
		return nil, false
	}},
}

// ExtractImageURLs reduces a raw provider response to an ordered list of
// image URLs. A matched shape that yields nothing still fails the whole
// extraction: a success response without images is an upstream defect, never
// a silent empty result.
func ExtractImageURLs(resp Response) ([]string, error) {
	for _, m := range shapeMatchers {
		urls, ok := m.try(resp)
		if !ok {
			continue
		}
		if len(urls) == 0 {
			return nil, ErrNoImagesFound
		}
		return urls, nil
	}
	return nil, ErrNoImagesFound
}

// urlsFromItems extracts one URL from each item of a result array. Items come
// as {url}, {image}, or a bare string; when unwrapArrays is set, an
// array-valued url collapses to its first element.
func urlsFromItems(items []any, unwrapArrays bool) []string {
	urls := make([]string, 0, len(items))
	for _, item := range items {
		var value any = item
		if m, ok := asMap(item); ok {
			if v, present := m["url"]; present {
				value = v
			} else if v, present := m["image"]; present {
				value = v
			} else {
				continue
			}
		}
		if unwrapArrays {
			if arr, ok := asSlice(value); ok {
				if len(arr) == 0 {
					continue
				}
				value = arr[0]
			}
		}
		if s, ok := value.(string); ok && s != "" {
			urls = append(urls, s)
		}
	}
	return urls
}

// singleURL handles url fields that are either a string or an array of strings.
func singleURL(value any) ([]string, bool) {
	if s, ok := value.(string); ok {
		return []string{s}, true
	}
	if arr, ok := asSlice(value); ok {
		if len(arr) == 0 {
			return nil, true
		}
		if s, ok := arr[0].(string); ok {
			return []string{s}, true
		}
		return nil, true
	}
	return nil, false
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// stringField reads a field that providers send as either a string or a
// number (task codes in particular).
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
