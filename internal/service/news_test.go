package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/sakif/vaccine-portal/internal/model"
)

type fakeSource struct {
	articles []model.Article
	err      error
	filter   string
}

func (f *fakeSource) Articles(_ context.Context, filter string) ([]model.Article, error) {
	f.filter = filter
	return f.articles, f.err
}

func articles(n int) []model.Article {
	out := make([]model.Article, n)
	for i := range out {
		out[i] = model.Article{ID: fmt.Sprintf("a%d", i+1)}
	}
	return out
}

func TestNews_Page(t *testing.T) {
	src := &fakeSource{articles: articles(20)}
	svc := NewNewsService(src)

	page, err := svc.Page(context.Background(), 2, "covid")
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	if src.filter != "covid" {
		t.Errorf("filter = %q", src.filter)
	}
	if page.Status != "ok" || page.Page != 2 || !page.HasMore {
		t.Errorf("page = %+v", page)
	}
	if len(page.Articles) != 9 || page.Articles[0].ID != "a10" || page.Articles[8].ID != "a18" {
		t.Errorf("page 2 should hold a10..a18, got %d articles starting %q", len(page.Articles), page.Articles[0].ID)
	}
}

func TestNews_PageBeyondEnd(t *testing.T) {
	svc := NewNewsService(&fakeSource{articles: articles(5)})

	for _, n := range []int{7, math.MaxInt/9 + 2, math.MaxInt} {
		page, err := svc.Page(context.Background(), n, "")
		if err != nil {
			t.Fatalf("Page(%d) error = %v", n, err)
		}
		if page.HasMore || len(page.Articles) != 0 || page.Articles == nil {
			t.Errorf("Page(%d) = %+v, want non-nil empty articles and hasMore=false", n, page)
		}
	}
}

func TestNews_PageNormalisesNumber(t *testing.T) {
	svc := NewNewsService(&fakeSource{articles: articles(3)})

	page, err := svc.Page(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	if page.Page != 1 || len(page.Articles) != 3 {
		t.Errorf("page = %+v", page)
	}
}

func TestNews_SourceError(t *testing.T) {
	boom := errors.New("feed down")
	svc := NewNewsService(&fakeSource{err: boom})

	if _, err := svc.Page(context.Background(), 1, ""); !errors.Is(err, boom) {
		t.Errorf("Page() error = %v, want wrapped feed error", err)
	}
}
