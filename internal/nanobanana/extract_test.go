package nanobanana

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func parseResponse(t *testing.T, raw string) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return resp
}

func TestExtractImageURLs_Shapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "data.url",
			raw:  `{"code":200,"data":{"url":"https://x/1.png"}}`,
			want: []string{"https://x/1.png"},
		},
		{
			name: "data.urls",
			raw:  `{"data":{"urls":["https://x/1.png","https://x/2.png"]}}`,
			want: []string{"https://x/1.png", "https://x/2.png"},
		},
		{
			name: "data.data items with url",
			raw:  `{"data":{"data":[{"url":"https://x/1.png"},{"url":"https://x/2.png"}]}}`,
			want: []string{"https://x/1.png", "https://x/2.png"},
		},
		{
			name: "data.data items with image",
			raw:  `{"data":{"data":[{"image":"https://x/1.png"}]}}`,
			want: []string{"https://x/1.png"},
		},
		{
			name: "data.data bare strings",
			raw:  `{"data":{"data":["https://x/1.png"]}}`,
			want: []string{"https://x/1.png"},
		},
		{
			name: "data array directly",
			raw:  `{"data":[{"url":"https://x/1.png"},"https://x/2.png"]}`,
			want: []string{"https://x/1.png", "https://x/2.png"},
		},
		{
			name: "images array",
			raw:  `{"images":[{"url":"https://x/1.png"},{"image":"https://x/2.png"}]}`,
			want: []string{"https://x/1.png", "https://x/2.png"},
		},
		{
			name: "images array with array-wrapped url",
			raw:  `{"images":[{"url":["https://x/1.png","https://x/extra.png"]}]}`,
			want: []string{"https://x/1.png"},
		},
		{
			name: "data.result.images with array-wrapped url",
			raw:  `{"data":{"status":"succeeded","result":{"images":[{"url":["https://x/2.png"]}]}}}`,
			want: []string{"https://x/2.png"},
		},
		{
			name: "result.images",
			raw:  `{"result":{"images":[{"url":"https://x/1.png"}]}}`,
			want: []string{"https://x/1.png"},
		},
		{
			name: "data.result.url string",
			raw:  `{"data":{"result":{"url":"https://x/1.png"}}}`,
			want: []string{"https://x/1.png"},
		},
		{
			name: "data.result.url array",
			raw:  `{"data":{"result":{"url":["https://x/1.png","https://x/2.png"]}}}`,
			want: []string{"https://x/1.png"},
		},
		{
			name: "result.url array",
			raw:  `{"result":{"url":["https://x/1.png"]}}`,
			want: []string{"https://x/1.png"},
		},
		{
			name: "top-level url",
			raw:  `{"url":"https://x/1.png"}`,
			want: []string{"https://x/1.png"},
		},
		{
			name: "data as bare string",
			raw:  `{"data":"https://x/1.png"}`,
			want: []string{"https://x/1.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := parseResponse(t, tt.raw)
			got, err := ExtractImageURLs(resp)
			if err != nil {
				t.Fatalf("ExtractImageURLs() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractImageURLs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractImageURLs_PriorityOrder(t *testing.T) {
	// data.url wins over data.urls and a top-level url.
	resp := parseResponse(t, `{
		"url": "https://x/top.png",
		"data": {"url": "https://x/first.png", "urls": ["https://x/second.png"]}
	}`)

	got, err := ExtractImageURLs(resp)
	if err != nil {
		t.Fatalf("ExtractImageURLs() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"https://x/first.png"}) {
		t.Errorf("ExtractImageURLs() = %v, want data.url to win", got)
	}
}

func TestExtractImageURLs_Idempotent(t *testing.T) {
	resp := parseResponse(t, `{"data":{"urls":["https://x/1.png","https://x/2.png"]}}`)

	first, err := ExtractImageURLs(resp)
	if err != nil {
		t.Fatalf("first extraction error = %v", err)
	}
	second, err := ExtractImageURLs(resp)
	if err != nil {
		t.Fatalf("second extraction error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction is not idempotent: %v vs %v", first, second)
	}
}

func TestExtractImageURLs_NoMatch(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty object", `{}`},
		{"unrelated fields", `{"code":200,"message":"ok"}`},
		{"matched shape without urls", `{"data":{"urls":[]}}`},
		{"data object without url", `{"data":{"status":"succeeded"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := parseResponse(t, tt.raw)
			if _, err := ExtractImageURLs(resp); !errors.Is(err, ErrNoImagesFound) {
				t.Errorf("ExtractImageURLs() error = %v, want ErrNoImagesFound", err)
			}
		})
	}
}
