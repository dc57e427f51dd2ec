package service

import (
	"context"
	"fmt"

	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/news"
)

// ArticleSource returns every article for a filter, newest first.
// *news.Fetcher satisfies it.
type ArticleSource interface {
	Articles(ctx context.Context, filter string) ([]model.Article, error)
}

type NewsService struct {
	source ArticleSource
}

func NewNewsService(source ArticleSource) *NewsService {
	return &NewsService{source: source}
}

// NewsPage is the /api/news response body.
type NewsPage struct {
	Articles []model.Article `json:"articles"`
	Status   string          `json:"status"`
	Page     int             `json:"page"`
	HasMore  bool            `json:"hasMore"`
}

// Page returns one page of PageSize articles. Pages below 1 are page 1.
func (s *NewsService) Page(ctx context.Context, page int, filter string) (*NewsPage, error) {
	if page < 1 {
		page = 1
	}

	articles, err := s.source.Articles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/news: fetching articles: %w", err)
	}

	items, more := news.Paginate(articles, page, news.PageSize)
	if items == nil {
		items = []model.Article{}
	}
	return &NewsPage{Articles: items, Status: "ok", Page: page, HasMore: more}, nil
}
