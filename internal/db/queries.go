package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Chart struct {
	ID        string
	Name      string
	OwnerID   string
	Width     int32
	Height    int32
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type Snapshot struct {
	ID        string
	ChartID   string
	Version   int32
	Layout    []byte
	CreatedAt pgtype.Timestamptz
}

const createChart = `-- name: CreateChart :one
INSERT INTO charts (id, name, owner_id, width, height)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, owner_id, width, height, created_at, updated_at`

type CreateChartParams struct {
	ID      string
	Name    string
	OwnerID string
	Width   int32
	Height  int32
}

func (q *Queries) CreateChart(ctx context.Context, arg CreateChartParams) (Chart, error) {
	row := q.db.QueryRow(ctx, createChart, arg.ID, arg.Name, arg.OwnerID, arg.Width, arg.Height)
	var i Chart
	err := row.Scan(&i.ID, &i.Name, &i.OwnerID, &i.Width, &i.Height, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getChart = `-- name: GetChart :one
SELECT id, name, owner_id, width, height, created_at, updated_at
FROM charts WHERE id = $1`

func (q *Queries) GetChart(ctx context.Context, id string) (Chart, error) {
	row := q.db.QueryRow(ctx, getChart, id)
	var i Chart
	err := row.Scan(&i.ID, &i.Name, &i.OwnerID, &i.Width, &i.Height, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listChartsForOwner = `-- name: ListChartsForOwner :many
SELECT id, name, owner_id, width, height, created_at, updated_at
FROM charts WHERE owner_id = $1
ORDER BY updated_at DESC`

func (q *Queries) ListChartsForOwner(ctx context.Context, ownerID string) ([]Chart, error) {
	rows, err := q.db.Query(ctx, listChartsForOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Chart
	for rows.Next() {
		var i Chart
		if err := rows.Scan(&i.ID, &i.Name, &i.OwnerID, &i.Width, &i.Height, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const renameChart = `-- name: RenameChart :exec
UPDATE charts SET name = $2, updated_at = now() WHERE id = $1`

func (q *Queries) RenameChart(ctx context.Context, id, name string) error {
	_, err := q.db.Exec(ctx, renameChart, id, name)
	return err
}

const deleteChart = `-- name: DeleteChart :exec
DELETE FROM charts WHERE id = $1`

func (q *Queries) DeleteChart(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteChart, id)
	return err
}

const createSnapshot = `-- name: CreateSnapshot :one
INSERT INTO snapshots (id, chart_id, version, layout)
SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3
FROM snapshots WHERE chart_id = $2
RETURNING id, chart_id, version, layout, created_at`

type CreateSnapshotParams struct {
	ID      string
	ChartID string
	Layout  []byte
}

// CreateSnapshot stores a layout as the chart's next version.
func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (Snapshot, error) {
	row := q.db.QueryRow(ctx, createSnapshot, arg.ID, arg.ChartID, arg.Layout)
	var i Snapshot
	err := row.Scan(&i.ID, &i.ChartID, &i.Version, &i.Layout, &i.CreatedAt)
	return i, err
}

const getLatestSnapshot = `-- name: GetLatestSnapshot :one
SELECT id, chart_id, version, layout, created_at
FROM snapshots WHERE chart_id = $1
ORDER BY version DESC LIMIT 1`

func (q *Queries) GetLatestSnapshot(ctx context.Context, chartID string) (Snapshot, error) {
	row := q.db.QueryRow(ctx, getLatestSnapshot, chartID)
	var i Snapshot
	err := row.Scan(&i.ID, &i.ChartID, &i.Version, &i.Layout, &i.CreatedAt)
	return i, err
}
