package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/getkayan/authproc/domain"
)

// RESTAdapter talks to the federation registry's JSON API.
type RESTAdapter struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewRESTAdapter(baseURL, token string) *RESTAdapter {
	return &RESTAdapter{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type facilityResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type attributeResponse struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func (a *RESTAdapter) GetFacilityByClientID(ctx context.Context, clientID string) (*domain.Facility, error) {
	path := "/facilities?clientId=" + url.QueryEscape(clientID)
	data, found, err := a.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("adapters: facility lookup for client %q: %w", clientID, err)
	}
	if !found {
		return nil, nil
	}

	var fr facilityResponse
	if err := json.Unmarshal(data, &fr); err != nil {
		return nil, fmt.Errorf("adapters: decoding facility response: %w", err)
	}
	return &domain.Facility{ID: fr.ID, Name: fr.Name, Description: fr.Description}, nil
}

func (a *RESTAdapter) GetFacilityAttributeValue(ctx context.Context, facilityID, attrName string) (*domain.AttributeValue, error) {
	path := "/facilities/" + url.PathEscape(facilityID) + "/attributes/" + url.PathEscape(attrName)
	data, found, err := a.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("adapters: attribute %q lookup for facility %q: %w", attrName, facilityID, err)
	}
	if !found {
		return nil, nil
	}

	var ar attributeResponse
	if err := json.Unmarshal(data, &ar); err != nil {
		return nil, fmt.Errorf("adapters: decoding attribute response: %w", err)
	}
	if ar.Value == nil {
		return nil, nil
	}
	return &domain.AttributeValue{Value: ar.Value}, nil
}

// get performs a GET and distinguishes "not found" from transport errors.
func (a *RESTAdapter) get(ctx context.Context, path string) (data []byte, found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+path, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode >= 400 {
		return nil, false, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data))
	}
	return data, true, nil
}
