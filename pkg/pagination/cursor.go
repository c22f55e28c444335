package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Cursor is the opaque pagination token (pre-encoding) for report rows. It is
// serialized to minified JSON and encoded with URL-safe base64.
//
// Fields:
//   - v:   version of the cursor schema
//   - did: dataset handle ID
//   - rep: report name
//   - off: row offset into the sorted report
//   - ps:  page size in rows
//   - iat: issued-at timestamp (unix seconds)
type Cursor struct {
	V   int    `json:"v"`
	Did string `json:"did"`
	Rep string `json:"rep"`
	Off int    `json:"off"`
	Ps  int    `json:"ps"`
	Iat int64  `json:"iat"`
}

// Meta captures paging and truncation metadata returned with a page.
type Meta struct {
	Total      int    `json:"total"`
	Offset     int    `json:"offset"`
	Returned   int    `json:"returned"`
	Truncated  bool   `json:"truncated"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// ErrCursorMismatch indicates a cursor issued for another dataset or report.
var ErrCursorMismatch = errors.New("cursor: does not match dataset or report")

// EncodeCursor serializes and encodes the cursor as URL-safe base64 (without padding).
func EncodeCursor(c Cursor) (string, error) {
	if err := validate(&c); err != nil {
		return "", err
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor decodes a URL-safe base64 token and parses the JSON cursor.
func DecodeCursor(token string) (*Cursor, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return nil, errors.New("cursor: empty token")
	}
	data, err := base64.RawURLEncoding.DecodeString(t)
	if err != nil {
		return nil, fmt.Errorf("cursor: invalid base64: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("cursor: invalid json: %w", err)
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Resume decodes token and checks that it belongs to datasetID and report.
func Resume(token, datasetID, report string) (*Cursor, error) {
	c, err := DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	if c.Did != datasetID || c.Rep != report {
		return nil, ErrCursorMismatch
	}
	return c, nil
}

func validate(c *Cursor) error {
	if c.V <= 0 {
		c.V = 1
	}
	if c.Iat == 0 {
		c.Iat = time.Now().Unix()
	}
	if strings.TrimSpace(c.Did) == "" {
		return errors.New("cursor: did (dataset id) required")
	}
	if strings.TrimSpace(c.Rep) == "" {
		return errors.New("cursor: rep (report) required")
	}
	if c.Off < 0 {
		return errors.New("cursor: off must be >= 0")
	}
	if c.Ps <= 0 {
		return errors.New("cursor: ps must be > 0")
	}
	return nil
}

// Page slices rows from off for at most size entries. When more rows remain
// it returns a cursor for the next page. size <= 0 returns everything from off.
func Page[T any](rows []T, datasetID, report string, off, size int) ([]T, Meta, error) {
	total := len(rows)
	off = min(max(off, 0), total)
	end := total
	if size > 0 {
		end = min(off+size, total)
	}
	meta := Meta{Total: total, Offset: off, Returned: end - off, Truncated: end < total}
	if meta.Truncated {
		tok, err := EncodeCursor(Cursor{Did: datasetID, Rep: report, Off: NextOffset(off, end-off), Ps: size})
		if err != nil {
			return nil, Meta{}, err
		}
		meta.NextCursor = tok
	}
	return rows[off:end], meta, nil
}

// NextOffset computes the next offset after returning n units.
func NextOffset(curr, n int) int {
	if curr < 0 {
		curr = 0
	}
	if n <= 0 {
		return curr
	}
	return curr + n
}
