package listutil

import (
	"net/url"
	"reflect"
	"testing"
)

// TestParseParams_Defaults verifies default params when no query values provided.
func TestParseParams_Defaults(t *testing.T) {
	p := ParseParams(url.Values{})
	if p.Page != 1 || p.PerPage != DefaultPerPage || p.Search != "" {
		t.Errorf("unexpected defaults %+v", p)
	}
}

// TestParseParams verifies parsing and fallback for invalid values.
func TestParseParams(t *testing.T) {
	tests := []struct {
		name string
		q    url.Values
		want Params
	}{
		{"valid", url.Values{"page": {"3"}, "per_page": {"50"}, "q": {" asha "}}, Params{Page: 3, PerPage: 50, Search: "asha"}},
		{"per page not allowed", url.Values{"per_page": {"25"}}, Params{Page: 1, PerPage: DefaultPerPage}},
		{"negative page", url.Values{"page": {"-1"}}, Params{Page: 1, PerPage: DefaultPerPage}},
		{"garbage page", url.Values{"page": {"two"}}, Params{Page: 1, PerPage: DefaultPerPage}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseParams(tt.q); got != tt.want {
				t.Errorf("ParseParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestNewPageInfo verifies page counts and clamping.
func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name                string
		page, perPage, rows int
		wantPage, wantPages int
	}{
		{"empty list", 1, 20, 0, 1, 1},
		{"exact fit", 2, 10, 20, 2, 2},
		{"partial last page", 3, 10, 21, 3, 3},
		{"page past end", 9, 10, 15, 2, 2},
		{"zero per page", 1, 0, 45, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewPageInfo(tt.page, tt.perPage, tt.rows)
			if info.Page != tt.wantPage || info.TotalPages != tt.wantPages || info.Total != tt.rows {
				t.Errorf("NewPageInfo(%d, %d, %d) = %+v", tt.page, tt.perPage, tt.rows, info)
			}
		})
	}
}

type person struct{ name, email string }

func personText(p person) []string { return []string{p.name, p.email} }

// TestPaginate verifies search filtering and page slicing keep order.
func TestPaginate(t *testing.T) {
	people := []person{
		{"Asha", "asha@sportify.test"},
		{"Ben", "ben@sportify.test"},
		{"Cara", "cara@club.test"},
		{"Dev", "dev@sportify.test"},
	}

	got := Paginate(people, Params{Page: 2, PerPage: 3}, personText)
	if !reflect.DeepEqual(got.Items, people[3:]) || got.TotalPages != 2 || got.Total != 4 {
		t.Errorf("second page = %+v", got)
	}

	got = Paginate(people, Params{Page: 1, PerPage: 10, Search: "SPORTIFY"}, personText)
	if len(got.Items) != 3 || got.Items[2].name != "Dev" || got.Total != 3 {
		t.Errorf("search = %+v", got)
	}

	got = Paginate(people, Params{Page: 1, PerPage: 10, Search: "nobody"}, personText)
	if len(got.Items) != 0 || got.Items == nil || got.TotalPages != 1 {
		t.Errorf("no match = %+v", got)
	}
}
