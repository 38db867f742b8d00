// Package stakeholder resolves workflow roles to concrete employees through
// the organization's stakeholder directory service.
package stakeholder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"domainflow/internal/domain"
	"domainflow/pkg/platform/circuit"
	"domainflow/pkg/platform/sentinel"
)

// Record is one directory entry.
type Record struct {
	EmployeeNo domain.EmployeeNo `json:"emp_no"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Role       domain.Role       `json:"role"`
	Department string            `json:"department"`
	Centre     string            `json:"centre"`
}

// Resolver finds the employee currently holding a role for a department and
// centre. Implementations return sentinel.ErrNotFound both when the directory
// has no entry and when the directory is unreachable: the workflow treats an
// unresolvable stakeholder the same either way.
type Resolver interface {
	ResolveRole(ctx context.Context, role domain.Role, department, centre string) (*Record, error)
}

const probeInterval = 30 * time.Second

// Client talks to the stakeholder directory over HTTP. A circuit breaker
// short-circuits lookups while the directory is down so a renewal burst does
// not queue behind directory timeouts; one probe per probeInterval checks
// for recovery.
type Client struct {
	baseURL string
	client  *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger

	probeMu   sync.Mutex
	nextProbe time.Time
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: circuit.New("stakeholder-directory", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		logger:  logger,
	}
}

func (c *Client) ResolveRole(ctx context.Context, role domain.Role, department, centre string) (*Record, error) {
	if c.breaker.IsOpen() && !c.takeProbe() {
		return nil, sentinel.ErrNotFound
	}

	rec, err := c.resolve(ctx, role, department, centre)
	switch {
	case err == nil:
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.Info("stakeholder directory recovered", "breaker", c.breaker.Name())
		}
		return rec, nil
	case err == sentinel.ErrUnavailable:
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.probeMu.Lock()
			c.nextProbe = time.Now().Add(probeInterval)
			c.probeMu.Unlock()
			c.logger.Warn("stakeholder directory circuit opened", "breaker", c.breaker.Name())
		}
		// Degraded directory behaves like an empty one.
		return nil, sentinel.ErrNotFound
	case err == sentinel.ErrNotFound:
		// The directory answered; nothing wrong with the connection.
		c.breaker.RecordSuccess()
		return nil, sentinel.ErrNotFound
	default:
		return nil, err
	}
}

// takeProbe reports whether this call may go through while the circuit is
// open. At most one probe per probeInterval.
func (c *Client) takeProbe() bool {
	c.probeMu.Lock()
	defer c.probeMu.Unlock()
	now := time.Now()
	if now.Before(c.nextProbe) {
		return false
	}
	c.nextProbe = now.Add(probeInterval)
	return true
}

func (c *Client) resolve(ctx context.Context, role domain.Role, department, centre string) (*Record, error) {
	q := url.Values{}
	q.Set("role", role.String())
	q.Set("department", department)
	q.Set("centre", centre)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/stakeholders?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build stakeholder request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("stakeholder directory unreachable", "role", role, "error", err)
		return nil, sentinel.ErrUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, sentinel.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn("stakeholder directory returned error", "role", role, "status", resp.StatusCode)
		return nil, sentinel.ErrUnavailable
	}

	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode stakeholder response: %w", err)
	}
	if rec.EmployeeNo == 0 {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}
