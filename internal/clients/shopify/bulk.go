package shopify

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"wholesale-catalog-service/internal/clients"
)

// Bulk operation statuses reported by Shopify
const (
	BulkStatusCreated   = "CREATED"
	BulkStatusRunning   = "RUNNING"
	BulkStatusCompleted = "COMPLETED"
	BulkStatusFailed    = "FAILED"
	BulkStatusCanceled  = "CANCELED"
	BulkStatusExpired   = "EXPIRED"
)

// BulkStatus is a snapshot of a bulk operation's state
type BulkStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ErrorCode   string `json:"errorCode"`
	ObjectCount string `json:"objectCount"`
	URL         string `json:"url"`
}

// SelectedOption is a variant option name/value pair
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BulkVariant is one product variant assembled from the bulk export result,
// with its product, collection and inventory lines stitched back together.
type BulkVariant struct {
	VariantGID      string
	ProductGID      string
	SKU             string
	Title           string
	ProductTitle    string
	Vendor          string
	ProductType     string
	Collection      string
	Price           float64
	ImageURL        string
	SelectedOptions []SelectedOption
	Available       int
	Incoming        int
	Committed       int
}

// StartBulkExport submits the variant snapshot bulk query and returns the
// bulk operation's global id. User errors mean the job never started and are
// reported as configuration errors.
func (c *Client) StartBulkExport(ctx context.Context) (string, error) {
	data, err := c.Execute(ctx, bulkOperationRunQueryMutation, map[string]interface{}{
		"query": variantSnapshotQuery,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		BulkOperationRunQuery struct {
			BulkOperation *struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"bulkOperation"`
			UserErrors []struct {
				Field   []string `json:"field"`
				Message string   `json:"message"`
			} `json:"userErrors"`
		} `json:"bulkOperationRunQuery"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("failed to parse bulk operation response: %w", err)
	}

	if len(result.BulkOperationRunQuery.UserErrors) > 0 {
		messages := make([]string, len(result.BulkOperationRunQuery.UserErrors))
		for i, ue := range result.BulkOperationRunQuery.UserErrors {
			messages[i] = ue.Message
		}
		return "", &clients.ConfigurationError{
			Op:     "start bulk export",
			Reason: "bulk operation rejected: " + strings.Join(messages, "; "),
		}
	}

	if result.BulkOperationRunQuery.BulkOperation == nil {
		return "", &clients.ConfigurationError{
			Op:     "start bulk export",
			Reason: "bulk operation response missing operation id",
		}
	}

	c.logger.WithFields(logrus.Fields{
		"bulk_operation_id": result.BulkOperationRunQuery.BulkOperation.ID,
		"status":            result.BulkOperationRunQuery.BulkOperation.Status,
	}).Info("Bulk export started")

	return result.BulkOperationRunQuery.BulkOperation.ID, nil
}

// PollBulkExport fetches the current status of a bulk operation
func (c *Client) PollBulkExport(ctx context.Context, operationID string) (*BulkStatus, error) {
	data, err := c.Execute(ctx, bulkOperationStatusQuery, map[string]interface{}{
		"id": operationID,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Node *BulkStatus `json:"node"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse bulk status response: %w", err)
	}
	if result.Node == nil || result.Node.ID == "" {
		return nil, &clients.ConfigurationError{
			Op:     "poll bulk export",
			Reason: fmt.Sprintf("bulk operation %s not found", operationID),
		}
	}
	return result.Node, nil
}

// WaitForBulkExport polls a bulk operation until it reaches a terminal state
// and returns the result download URL. Transient poll failures are tolerated
// and polling continues. Exceeding the configured max wait returns a
// TimeoutError; the remote job may still finish afterwards, so callers keep
// the operation id for later reconciliation.
func (c *Client) WaitForBulkExport(ctx context.Context, operationID string) (string, error) {
	start := time.Now()
	deadline := start.Add(c.pollMaxWait)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.PollBulkExport(ctx, operationID)
		switch {
		case err != nil && clients.IsTransient(err):
			c.logger.WithError(err).Warn("Transient error polling bulk operation, will retry")
		case err != nil:
			return "", err
		default:
			switch status.Status {
			case BulkStatusCompleted:
				c.logger.WithFields(logrus.Fields{
					"bulk_operation_id": operationID,
					"object_count":      status.ObjectCount,
					"elapsed":           time.Since(start).String(),
				}).Info("Bulk export completed")
				return status.URL, nil
			case BulkStatusFailed, BulkStatusCanceled, BulkStatusExpired:
				return "", fmt.Errorf("bulk operation %s ended with status %s (error code %q)",
					operationID, status.Status, status.ErrorCode)
			}
		}

		if time.Now().After(deadline) {
			return "", &clients.TimeoutError{Op: "wait for bulk export", Elapsed: time.Since(start)}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// DownloadBulkResult streams the JSONL result file and assembles variants.
// It returns the assembled variants and the count of lines that were skipped
// as malformed.
func (c *Client) DownloadBulkResult(ctx context.Context, url string) ([]BulkVariant, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create download request: %w", err)
	}

	// Result URLs are pre-signed; no access token required.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &clients.TransientError{Op: "download bulk result", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, &clients.TransientError{
			Op:         "download bulk result",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	variants, skipped, err := ParseBulkResult(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	if skipped > 0 {
		c.logger.WithField("skipped_lines", skipped).Warn("Skipped malformed lines in bulk result")
	}
	return variants, skipped, nil
}

// bulkLine is the union of line shapes in a bulk result file. The line kind
// is determined by the global id prefix, not by which fields are present.
type bulkLine struct {
	ID       string `json:"id"`
	ParentID string `json:"__parentId"`

	// ProductVariant lines
	SKU   string `json:"sku"`
	Title string `json:"title"`
	Price string `json:"price"`
	Image *struct {
		URL string `json:"url"`
	} `json:"image"`
	SelectedOptions []SelectedOption `json:"selectedOptions"`
	Product         *struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Vendor      string `json:"vendor"`
		ProductType string `json:"productType"`
	} `json:"product"`

	// InventoryLevel lines
	Quantities []struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	} `json:"quantities"`
}

// inventoryCounts holds the quantities reported by one inventory level line
type inventoryCounts struct {
	available int
	incoming  int
	committed int
}

// ParseBulkResult decodes a JSONL bulk result stream. Lines may arrive in any
// order and the same object may appear more than once; the last occurrence
// wins. Inventory quantities are tracked per level so a repeated line
// replaces its earlier occurrence, then summed across distinct locations.
func ParseBulkResult(r io.Reader) ([]BulkVariant, int, error) {
	byVariant := make(map[string]*BulkVariant)
	order := make([]string, 0)
	collectionByProduct := make(map[string]string)
	inventoryByVariant := make(map[string]map[string]inventoryCounts)
	skipped := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var line bulkLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil || line.ID == "" {
			skipped++
			continue
		}

		switch {
		case strings.HasPrefix(line.ID, "gid://shopify/ProductVariant/"):
			v, ok := byVariant[line.ID]
			if !ok {
				v = &BulkVariant{VariantGID: line.ID}
				byVariant[line.ID] = v
				order = append(order, line.ID)
			}
			v.SKU = line.SKU
			v.Title = line.Title
			v.SelectedOptions = line.SelectedOptions
			if line.Price != "" {
				if price, err := strconv.ParseFloat(line.Price, 64); err == nil {
					v.Price = price
				}
			}
			if line.Image != nil {
				v.ImageURL = line.Image.URL
			}
			if line.Product != nil {
				v.ProductGID = line.Product.ID
				v.ProductTitle = line.Product.Title
				v.Vendor = line.Product.Vendor
				v.ProductType = line.Product.ProductType
			}

		case strings.HasPrefix(line.ID, "gid://shopify/Collection/"):
			if line.ParentID == "" {
				skipped++
				continue
			}
			// The export requests a single collection per product; keep the
			// first one if the store returns more.
			if _, ok := collectionByProduct[line.ParentID]; !ok {
				collectionByProduct[line.ParentID] = line.Title
			}

		case strings.HasPrefix(line.ID, "gid://shopify/InventoryLevel/"):
			if line.ParentID == "" {
				skipped++
				continue
			}
			if _, ok := byVariant[line.ParentID]; !ok {
				byVariant[line.ParentID] = &BulkVariant{VariantGID: line.ParentID}
				order = append(order, line.ParentID)
			}
			var counts inventoryCounts
			for _, q := range line.Quantities {
				switch q.Name {
				case "available":
					counts.available = q.Quantity
				case "incoming":
					counts.incoming = q.Quantity
				case "committed":
					counts.committed = q.Quantity
				}
			}
			levels, ok := inventoryByVariant[line.ParentID]
			if !ok {
				levels = make(map[string]inventoryCounts)
				inventoryByVariant[line.ParentID] = levels
			}
			levels[line.ID] = counts

		default:
			skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read bulk result: %w", err)
	}

	variants := make([]BulkVariant, 0, len(order))
	for _, gid := range order {
		v := byVariant[gid]
		if v.ProductGID != "" {
			v.Collection = collectionByProduct[v.ProductGID]
		}
		for _, counts := range inventoryByVariant[gid] {
			v.Available += counts.available
			v.Incoming += counts.incoming
			v.Committed += counts.committed
		}
		variants = append(variants, *v)
	}
	return variants, skipped, nil
}
