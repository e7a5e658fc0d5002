// Package newsclient fetches headlines from the external news provider and
// reshapes them into the pass-through NewsItem structure. Any transport,
// status or decoding failure is reported as models.ErrNewsUnavailable so a
// caller never observes a partial article list.
package newsclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/thoas/go-funk"

	"github.com/diabesafe/backend/internal/models"
)

const defaultRequestTimeout = 10 * time.Second

type article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

type topHeadlinesResponse struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
}

// Client calls the headlines endpoint with an API key query parameter.
type Client struct {
	httpClient *resty.Client
	endpoint   string
	apiKey     string
	country    string
}

// New creates a Client for the given endpoint. The API key comes from
// configuration and is sent as the apiKey query parameter.
func New(endpoint, apiKey, country string) *Client {
	return &Client{
		httpClient: resty.New().SetTimeout(defaultRequestTimeout),
		endpoint:   endpoint,
		apiKey:     apiKey,
		country:    country,
	}
}

// GetNews fetches the current headlines and passes the article list through.
func (client *Client) GetNews(ctx context.Context) ([]models.NewsItem, error) {
	payload := &topHeadlinesResponse{}

	response, err := client.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"country": client.country,
			"apiKey":  client.apiKey,
		}).
		SetResult(payload).
		Get(client.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNewsUnavailable, err)
	}

	if response.IsError() || payload.Status != "ok" {
		return nil, fmt.Errorf("%w: upstream replied %s", models.ErrNewsUnavailable, response.Status())
	}

	news := funk.Map(payload.Articles, func(item article) models.NewsItem {
		return models.NewsItem{
			Title:       item.Title,
			Description: item.Description,
			URL:         item.URL,
			ImageURL:    item.URLToImage,
			Source:      item.Source.Name,
			Author:      item.Author,
			PublishedAt: item.PublishedAt,
		}
	}).([]models.NewsItem)

	return news, nil
}
