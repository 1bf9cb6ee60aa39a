package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmehra2102/order-fulfillment/internal/catalog/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
	"github.com/dmehra2102/order-fulfillment/pkg/auth"
)

// Client reads the catalog from the admin console's remote API. The caller's bearer
// credential, if any, is forwarded on every request.
type Client struct {
	log  *slog.Logger
	base string
	http *http.Client
}

func NewClient(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		log:  log,
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// The remote API is document-shaped: ids are "_id" and a user's role is an embedded object.
type customerDTO struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type productDTO struct {
	ID       string          `json:"_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

type userDTO struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	RoleID   struct {
		Name string `json:"name"`
	} `json:"roleId"`
}

type menuDTO struct {
	ID       string   `json:"_id"`
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	ParentID *string  `json:"parentId"`
	Roles    []string `json:"roles"`
}

func (c *Client) Customer(ctx context.Context, id string) (domain.Customer, error) {
	var dto customerDTO
	if err := c.get(ctx, "/customers/"+url.PathEscape(id), nil, &dto); err != nil {
		return domain.Customer{}, notFoundAs(err, "customer %s not found", id)
	}
	return domain.Customer{ID: dto.ID, Name: dto.Name, Phone: dto.Phone, Email: dto.Email, Address: dto.Address}, nil
}

func (c *Client) Product(ctx context.Context, id string) (domain.Product, error) {
	var dto productDTO
	if err := c.get(ctx, "/products/"+url.PathEscape(id), nil, &dto); err != nil {
		return domain.Product{}, notFoundAs(err, "product %s not found", id)
	}
	return domain.Product{ID: dto.ID, Name: dto.Name, Price: dto.Price, CategoryID: dto.Category}, nil
}

// Users asks the API for role and filters again locally; the API does not always honour the query.
func (c *Client) Users(ctx context.Context, role domain.Role) ([]domain.User, error) {
	q := url.Values{}
	if role != domain.RoleUnknown {
		q.Set("role", string(role))
	}
	var dtos []userDTO
	if err := c.get(ctx, "/admin-users", q, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(dtos))
	for _, d := range dtos {
		u := domain.User{ID: d.ID, Name: d.Username, Email: d.Email, Role: domain.ParseRole(d.RoleID.Name)}
		if role == domain.RoleUnknown || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (c *Client) MenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	var dtos []menuDTO
	if err := c.get(ctx, "/menus", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.MenuItem, 0, len(dtos))
	for _, d := range dtos {
		it := domain.MenuItem{ID: d.ID, Label: d.Name, Path: d.Path}
		if d.ParentID != nil {
			it.ParentID = *d.ParentID
		}
		for _, r := range d.Roles {
			if role := domain.ParseRole(r); role != domain.RoleUnknown {
				it.Roles = append(it.Roles, role)
			}
		}
		out = append(out, it)
	}
	return out, nil
}

type statusError struct {
	path   string
	status int
}

func (e *statusError) Error() string { return fmt.Sprintf("catalog %s: status %d", e.path, e.status) }

func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return apperr.TransportFailure(err, "catalog: build request %s", path)
	}
	req.Header.Set("Accept", "application/json")
	auth.Apply(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.TransportFailure(err, "catalog: GET %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &statusError{path: path, status: resp.StatusCode}
	}
	if resp.StatusCode >= 300 {
		c.log.WarnContext(ctx, "catalog request failed", "path", path, "status", resp.StatusCode)
		return apperr.TransportFailure(&statusError{path: path, status: resp.StatusCode}, "catalog: GET %s", path)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return apperr.TransportFailure(err, "catalog: decode %s", path)
	}
	return nil
}

func notFoundAs(err error, format string, args ...any) error {
	if se, ok := err.(*statusError); ok && se.status == http.StatusNotFound {
		return apperr.Missing(format, args...)
	}
	return err
}
