package resource_test

import (
	"testing"

	"github.com/developlogy/sitebuilder/pkg/resource"
)

func TestPageOf(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	view := func(s string) resource.Map { return resource.Map{"name": s} }

	page := resource.PageOf(items, 2, 2, view)
	if page.Pagination != (resource.Pagination{Page: 2, PerPage: 2, Total: 5, LastPage: 3}) {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}
	if len(page.Items) != 2 || page.Items[0]["name"] != "c" {
		t.Fatalf("unexpected items %v", page.Items)
	}
}

func TestPageOfClampsPerPage(t *testing.T) {
	page := resource.PageOf([]int{}, 0, 1000, func(int) resource.Map { return nil })
	if page.Pagination.PerPage != resource.MaxPerPage || page.Pagination.Page != 1 || page.Pagination.LastPage != 1 {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected no items, got %v", page.Items)
	}
}
