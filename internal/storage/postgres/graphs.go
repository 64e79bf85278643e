package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrGraphNotFound is returned by LoadGraph for an unknown name.
var ErrGraphNotFound = errors.New("graph not found")

// GraphRow is a stored behavior graph document. Document is empty in
// listings.
type GraphRow struct {
	Name      string    `json:"name"`
	Revision  int       `json:"revision"`
	Document  string    `json:"document,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveGraph upserts document under name and returns the new revision,
// starting at 1.
func (c *Client) SaveGraph(name string, document []byte) (int, error) {
	if c == nil || c.db == nil {
		return 0, errNotOpen
	}
	var rev int
	err := c.db.QueryRow(`
		INSERT INTO graphs (name, revision, document, updated_at)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET revision = graphs.revision + 1, document = EXCLUDED.document, updated_at = EXCLUDED.updated_at
		RETURNING revision`, name, string(document), time.Now().UTC()).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("failed to save graph %s: %w", name, err)
	}
	return rev, nil
}

// LoadGraph returns the latest revision of name.
func (c *Client) LoadGraph(name string) (*GraphRow, error) {
	if c == nil || c.db == nil {
		return nil, errNotOpen
	}
	g := &GraphRow{}
	err := c.db.QueryRow(`SELECT name, revision, document, updated_at FROM graphs WHERE name = $1`, name).
		Scan(&g.Name, &g.Revision, &g.Document, &g.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, name)
	case err != nil:
		return nil, fmt.Errorf("failed to load graph %s: %w", name, err)
	}
	return g, nil
}

// ListGraphs returns every stored graph by name, without documents.
func (c *Client) ListGraphs() ([]GraphRow, error) {
	if c == nil || c.db == nil {
		return nil, errNotOpen
	}
	rows, err := c.db.Query(`SELECT name, revision, updated_at FROM graphs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GraphRow
	for rows.Next() {
		var g GraphRow
		if err := rows.Scan(&g.Name, &g.Revision, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
