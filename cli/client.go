package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

// ApiClient handles requests to the pantry API
type ApiClient struct {
	httpClient *http.Client
	BaseURL    string
	Token      string
}

// NewApiClient creates a client from PANTRY_API_URL and PANTRY_API_TOKEN.
func NewApiClient() *ApiClient {
	baseURL := os.Getenv("PANTRY_API_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &ApiClient{
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		BaseURL: baseURL,
		Token:   os.Getenv("PANTRY_API_TOKEN"),
	}
}

// Batch is one grocery batch as the API renders it
type Batch struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
	Price  string `json:"price"`
	Expiry string `json:"expiry"`
	Value  string `json:"value"`
}

// Shelf groups the batches of one grocery
type Shelf struct {
	Name    string  `json:"name"`
	Batches []Batch `json:"batches"`
}

// Ingredient is one recipe line
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// Recipe as listed by the API
type Recipe struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Process     string       `json:"process"`
	Ingredients []Ingredient `json:"ingredients"`
}

// Withdrawal is the result of a successful withdraw call
type Withdrawal struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Unit     string `json:"unit"`
	Batches  int    `json:"batches"`
	Depleted bool   `json:"depleted"`
}

// APIError is the error body returned by the server
type APIError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"error"`
	Details map[string]any `json:"details"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CheckHealth checks if the API is up and running
func (c *ApiClient) CheckHealth() (bool, error) {
	resp, err := c.httpClient.Get(c.BaseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("API health check failed with status code: %d", resp.StatusCode)
	}

	return true, nil
}

// GetShelves lists active stock
func (c *ApiClient) GetShelves() ([]Shelf, error) {
	var out struct {
		Shelves []Shelf `json:"shelves"`
	}
	err := c.do(http.MethodGet, "/api/v1/groceries", nil, &out)
	return out.Shelves, err
}

// GetExpiring lists batches expiring before the given date
func (c *ApiClient) GetExpiring(before time.Time) ([]Batch, error) {
	var out struct {
		Batches []Batch `json:"batches"`
	}
	q := url.Values{"before": {before.Format("2006-01-02")}}
	err := c.do(http.MethodGet, "/api/v1/expiring?"+q.Encode(), nil, &out)
	return out.Batches, err
}

// GetExpired classifies expired stock on the server and lists it
func (c *ApiClient) GetExpired() ([]Shelf, error) {
	var out struct {
		Shelves []Shelf `json:"shelves"`
	}
	err := c.do(http.MethodGet, "/api/v1/expired", nil, &out)
	return out.Shelves, err
}

// PurgeExpired discards expired batches still on the active shelves
func (c *ApiClient) PurgeExpired() (int, error) {
	var out struct {
		Purged int `json:"purged"`
	}
	err := c.do(http.MethodPost, "/api/v1/expired/purge", nil, &out)
	return out.Purged, err
}

// GetValue returns the value of active and expired stock
func (c *ApiClient) GetValue() (active, expired string, err error) {
	var out struct {
		Total string `json:"total"`
	}
	if err = c.do(http.MethodGet, "/api/v1/value", nil, &out); err != nil {
		return "", "", err
	}
	active = out.Total
	if err = c.do(http.MethodGet, "/api/v1/expired/value", nil, &out); err != nil {
		return "", "", err
	}
	return active, out.Total, nil
}

// GetRecipes lists every recipe, or only the cookable ones
func (c *ApiClient) GetRecipes(cookable bool) ([]Recipe, error) {
	path := "/api/v1/recipes"
	if cookable {
		path = "/api/v1/cookable"
	}
	var out struct {
		Recipes []Recipe `json:"recipes"`
	}
	err := c.do(http.MethodGet, path, nil, &out)
	return out.Recipes, err
}

// Withdraw removes amount of name from stock
func (c *ApiClient) Withdraw(name, amount, unit string) (*Withdrawal, error) {
	var out struct {
		Withdrawal Withdrawal `json:"withdrawal"`
	}
	body := map[string]string{"amount": amount, "unit": unit}
	if err := c.do(http.MethodPost, "/api/v1/groceries/"+url.PathEscape(name)+"/withdraw", body, &out); err != nil {
		return nil, err
	}
	return &out.Withdrawal, nil
}

func (c *ApiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("request failed with status code: %d", resp.StatusCode)
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
