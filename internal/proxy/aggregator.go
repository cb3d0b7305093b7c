// Package proxy implements the request aggregator: one inbound request fans
// out into one or many upstream legs, each with its own 401/login/retry
// cycle.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/robotikz/foodsharing-watcher/internal/foodsharing"
)

// Aggregator drives upstream legs through the foodsharing client. Legs share
// nothing: each owns its response and any session cookie it obtained, so no
// locking is needed across a fan-out.
type Aggregator struct {
	client *foodsharing.Client
	log    *zap.Logger
}

// Leg is the terminal outcome of a single-URL request, streamed back to the
// caller verbatim.
type Leg struct {
	Status      int
	ContentType string
	Body        io.ReadCloser
}

func New(client *foodsharing.Client, log *zap.Logger) *Aggregator {
	return &Aggregator{client: client, log: log}
}

// FetchURL runs the single-URL mode: one upstream call, on 401 a single login
// plus one retry with the session cookie attached. A failed login is returned
// as an error (the web layer answers 500); the original request is never
// retried after a failed login and never re-authenticated twice.
func (a *Aggregator) FetchURL(ctx context.Context, u *url.URL, fwd foodsharing.ForwardHeaders) (*Leg, error) {
	resp, err := a.client.Get(ctx, u.String(), fwd, "")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		a.log.Info("upstream returned 401, attempting login", zap.String("url", u.String()))
		cookie, lerr := a.client.Login(ctx)
		if lerr != nil {
			_ = resp.Body.Close()
			return nil, lerr
		}
		_ = resp.Body.Close()
		resp, err = a.client.Get(ctx, u.String(), fwd, cookie)
		if err != nil {
			return nil, err
		}
		a.log.Info("retry after login", zap.Int("status", resp.StatusCode))
	}

	return &Leg{
		Status:      resp.StatusCode,
		ContentType: contentType(resp),
		Body:        resp.Body,
	}, nil
}

// FetchStores runs one leg per store id, all in parallel. A leg that fails to
// fetch or parse degrades to empty pickups with a status describing the
// failure; it never takes its siblings down. The result slice has exactly one
// entry per requested id, in request order.
func (a *Aggregator) FetchStores(ctx context.Context, storeIDs []string, fwd foodsharing.ForwardHeaders) []foodsharing.StoreResult {
	results := make([]foodsharing.StoreResult, len(storeIDs))

	var wg sync.WaitGroup
	for i, id := range storeIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = a.fetchStore(ctx, id, fwd)
		}(i, id)
	}
	wg.Wait()

	return results
}

func (a *Aggregator) fetchStore(ctx context.Context, storeID string, fwd foodsharing.ForwardHeaders) foodsharing.StoreResult {
	result := foodsharing.StoreResult{StoreID: storeID, Pickups: []foodsharing.PickupSlot{}}

	pickupsURL := a.client.PickupsURL(storeID)
	resp, err := a.client.Get(ctx, pickupsURL, fwd, "")
	if err != nil {
		a.log.Error("store fetch failed", zap.String("store_id", storeID), zap.Error(err))
		result.Status = http.StatusBadGateway
		result.Error = err.Error()
		return result
	}

	if resp.StatusCode == http.StatusUnauthorized {
		a.log.Info("store returned 401, attempting login", zap.String("store_id", storeID))
		cookie, lerr := a.client.Login(ctx)
		switch {
		case errors.Is(lerr, foodsharing.ErrMissingCredentials):
			_ = resp.Body.Close()
			result.Status = http.StatusInternalServerError
			result.Error = "Missing credentials"
			return result
		case lerr != nil:
			// login failed: the 401 stands and the leg is not retried
			a.log.Error("login failed for store", zap.String("store_id", storeID), zap.Error(lerr))
		default:
			_ = resp.Body.Close()
			resp, err = a.client.Get(ctx, pickupsURL, fwd, cookie)
			if err != nil {
				a.log.Error("store retry failed", zap.String("store_id", storeID), zap.Error(err))
				result.Status = http.StatusBadGateway
				result.Error = err.Error()
				return result
			}
			a.log.Info("store retry after login", zap.String("store_id", storeID), zap.Int("status", resp.StatusCode))
		}
	}
	defer func() { _ = resp.Body.Close() }()

	result.Status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		return result
	}

	var payload foodsharing.PickupsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		a.log.Error("failed to parse pickups", zap.String("store_id", storeID), zap.Error(err))
		return result
	}
	for _, p := range payload.Pickups {
		p.StoreID = storeID
		result.Pickups = append(result.Pickups, p)
	}
	a.log.Debug("store pickups fetched", zap.String("store_id", storeID), zap.Int("count", len(result.Pickups)))
	return result
}

func contentType(resp *http.Response) string {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json; charset=utf-8"
	}
	return ct
}
