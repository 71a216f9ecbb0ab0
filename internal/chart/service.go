package chart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/seatplan/seatplan/internal/cache"
	"github.com/seatplan/seatplan/internal/convert"
	"github.com/seatplan/seatplan/internal/db"
	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/events"
	"github.com/seatplan/seatplan/internal/typeid"
)

var (
	ErrNotFound      = errors.New("chart not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidLayout = errors.New("invalid layout")
)

// ValidationError carries every problem found in a layout that was
// rejected on save.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid layout: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidLayout
}

// maxSnapshotAttempts bounds retries when two writers race for the same
// snapshot version.
const maxSnapshotAttempts = 3

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// LiveLayouts exposes charts that are open for live editing. A layout saved
// over HTTP replaces the live one so the room's next autosave cannot write
// stale state over it.
type LiveLayouts interface {
	Layout(chartID string) (*document.Layout, int64, bool)
	ReplaceLayout(chartID string, l *document.Layout) (int64, bool)
	MarkSaved(chartID string, seq int64)
}

type Service struct {
	queries *db.Queries
	cache   *cache.SnapshotCache
	events  events.Publisher
	live    LiveLayouts
}

// NewService creates a chart service. cache may be nil; a nil publisher
// drops events.
func NewService(queries *db.Queries, snapshots *cache.SnapshotCache, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{queries: queries, cache: snapshots, events: publisher}
}

// SetLiveLayouts attaches the collaboration hub. It is set after
// construction because the hub loads and saves through the service.
func (s *Service) SetLiveLayouts(live LiveLayouts) {
	s.live = live
}

type Chart struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// SaveResult summarizes a stored layout version.
type SaveResult struct {
	ChartID    string `json:"chartId"`
	Version    int32  `json:"version"`
	ItemCount  int    `json:"itemCount"`
	TotalSeats int    `json:"totalSeats"`
}

func (s *Service) Create(ctx context.Context, name, ownerID string) (*Chart, error) {
	chartID := typeid.NewChartID()
	empty := document.NewEmptyLayout(chartID, name)

	dbChart, err := s.queries.CreateChart(ctx, db.CreateChartParams{
		ID:      chartID,
		Name:    name,
		OwnerID: ownerID,
		Width:   int32(empty.Width),
		Height:  int32(empty.Height),
	})
	if err != nil {
		return nil, fmt.Errorf("create chart: %w", err)
	}

	// Seed empty layout snapshot
	if _, err := s.storeSnapshot(ctx, empty); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	s.publish(ctx, events.ChartEvent{Type: events.TypeChartCreated, ChartID: chartID, Version: 1})
	return dbChartToChart(dbChart), nil
}

func (s *Service) Get(ctx context.Context, chartID, userID string) (*Chart, error) {
	dbChart, err := s.ownedChart(ctx, chartID, userID)
	if err != nil {
		return nil, err
	}
	return dbChartToChart(dbChart), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Chart, error) {
	dbCharts, err := s.queries.ListChartsForOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list charts: %w", err)
	}

	charts := make([]Chart, len(dbCharts))
	for i, c := range dbCharts {
		charts[i] = *dbChartToChart(c)
	}

	return charts, nil
}

func (s *Service) Delete(ctx context.Context, chartID, userID string) error {
	if _, err := s.ownedChart(ctx, chartID, userID); err != nil {
		return err
	}

	if err := s.queries.DeleteChart(ctx, chartID); err != nil {
		return fmt.Errorf("delete chart: %w", err)
	}

	if err := s.cache.Invalidate(ctx, chartID); err != nil {
		slog.Warn("invalidate snapshot cache", "error", err, "chart", chartID)
	}
	s.publish(ctx, events.ChartEvent{Type: events.TypeChartDeleted, ChartID: chartID})
	return nil
}

// GetLatestLayout returns the newest layout JSON of a chart the user owns.
// A chart open for live editing answers with the room's layout.
func (s *Service) GetLatestLayout(ctx context.Context, chartID, userID string) (json.RawMessage, error) {
	if _, err := s.ownedChart(ctx, chartID, userID); err != nil {
		return nil, err
	}

	if l, ok := s.liveLayout(chartID); ok {
		data, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("marshal layout: %w", err)
		}
		return data, nil
	}

	if data, ok, err := s.cache.Get(ctx, chartID); err != nil {
		slog.Warn("read snapshot cache", "error", err, "chart", chartID)
	} else if ok {
		return data, nil
	}

	l, err := s.LoadLayout(ctx, chartID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal layout: %w", err)
	}
	if err := s.cache.Set(ctx, chartID, data); err != nil {
		slog.Warn("fill snapshot cache", "error", err, "chart", chartID)
	}
	return data, nil
}

// LoadLayout returns the newest stored layout of a chart without an
// ownership check. The collaboration hub uses it after the socket was
// authorized.
func (s *Service) LoadLayout(ctx context.Context, chartID string) (*document.Layout, error) {
	snap, err := s.queries.GetLatestSnapshot(ctx, chartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var l document.Layout
	if err := json.Unmarshal(snap.Layout, &l); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	l.ID = chartID
	l.Version = int(snap.Version)
	if l.Items == nil {
		l.Items = []document.CanvasItem{}
	}
	return &l, nil
}

// SaveLayout validates a layout and stores it as the chart's next version.
// An invalid layout yields a *ValidationError listing every problem.
func (s *Service) SaveLayout(ctx context.Context, chartID, userID string, l *document.Layout) (*SaveResult, error) {
	if _, err := s.ownedChart(ctx, chartID, userID); err != nil {
		return nil, err
	}

	if res := convert.ValidateCanvasItems(l.Items); !res.Valid {
		return nil, &ValidationError{Errors: res.Errors}
	}

	return s.saveAndSync(ctx, chartID, l)
}

// Autosave stores a layout from the collaboration hub. Work in progress is
// kept even when it would not pass validation.
func (s *Service) Autosave(ctx context.Context, chartID string, l *document.Layout) error {
	_, err := s.save(ctx, chartID, l)
	return err
}

// ImportSections converts backend section descriptors into canvas items and
// saves them as the chart's new layout, keeping its name and canvas settings.
func (s *Service) ImportSections(ctx context.Context, chartID, userID string, data []byte) (*SaveResult, error) {
	if _, err := s.ownedChart(ctx, chartID, userID); err != nil {
		return nil, err
	}

	sections, err := convert.ParseSections(data)
	if err != nil {
		return nil, &ValidationError{Errors: []string{err.Error()}}
	}

	l, ok := s.liveLayout(chartID)
	if !ok {
		if l, err = s.LoadLayout(ctx, chartID); err != nil {
			return nil, err
		}
	}
	l.Items = convert.ConvertSections(sections, convert.Options{})

	if res := convert.ValidateCanvasItems(l.Items); !res.Valid {
		return nil, &ValidationError{Errors: res.Errors}
	}

	return s.saveAndSync(ctx, chartID, l)
}

func (s *Service) liveLayout(chartID string) (*document.Layout, bool) {
	if s.live == nil {
		return nil, false
	}
	l, _, ok := s.live.Layout(chartID)
	return l, ok
}

// saveAndSync stores a layout that did not come from the chart's room. An
// open room takes the layout first, so an autosave racing this call writes
// the new layout rather than the stale one.
func (s *Service) saveAndSync(ctx context.Context, chartID string, l *document.Layout) (*SaveResult, error) {
	var (
		seq  int64
		live bool
	)
	if s.live != nil {
		seq, live = s.live.ReplaceLayout(chartID, l)
	}

	result, err := s.save(ctx, chartID, l)
	if err != nil {
		return nil, err
	}
	if live {
		s.live.MarkSaved(chartID, seq)
	}
	return result, nil
}

func (s *Service) save(ctx context.Context, chartID string, l *document.Layout) (*SaveResult, error) {
	l = l.Clone()
	l.ID = chartID
	l.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if l.Items == nil {
		l.Items = []document.CanvasItem{}
	}

	snap, err := s.storeSnapshot(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	if name := strings.TrimSpace(l.Name); name != "" {
		if err := s.queries.RenameChart(ctx, chartID, name); err != nil {
			return nil, fmt.Errorf("touch chart: %w", err)
		}
	}

	l.Version = int(snap.Version)
	if data, err := json.Marshal(l); err == nil {
		if err := s.cache.Set(ctx, chartID, data); err != nil {
			slog.Warn("fill snapshot cache", "error", err, "chart", chartID)
		}
	}

	result := &SaveResult{
		ChartID:    chartID,
		Version:    snap.Version,
		ItemCount:  len(l.Items),
		TotalSeats: l.TotalSeats(),
	}
	s.publish(ctx, events.ChartEvent{
		Type:       events.TypeLayoutSaved,
		ChartID:    chartID,
		Version:    result.Version,
		ItemCount:  result.ItemCount,
		TotalSeats: result.TotalSeats,
	})
	return result, nil
}

// storeSnapshot inserts l as the chart's next version. Concurrent writers
// can compute the same version; the loser retries with a fresh one.
func (s *Service) storeSnapshot(ctx context.Context, l *document.Layout) (db.Snapshot, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return db.Snapshot{}, fmt.Errorf("marshal layout: %w", err)
	}

	for attempt := 1; ; attempt++ {
		snap, err := s.queries.CreateSnapshot(ctx, db.CreateSnapshotParams{
			ID:      typeid.NewSnapshotID(),
			ChartID: l.ID,
			Layout:  data,
		})
		if err == nil || !isUniqueViolation(err) || attempt == maxSnapshotAttempts {
			return snap, err
		}
		slog.Debug("snapshot version taken, retrying", "chart", l.ID, "attempt", attempt)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Service) ownedChart(ctx context.Context, chartID, userID string) (db.Chart, error) {
	dbChart, err := s.queries.GetChart(ctx, chartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Chart{}, ErrNotFound
		}
		return db.Chart{}, fmt.Errorf("get chart: %w", err)
	}
	if dbChart.OwnerID != userID {
		return db.Chart{}, ErrForbidden
	}
	return dbChart, nil
}

func (s *Service) publish(ctx context.Context, e events.ChartEvent) {
	if err := s.events.Publish(ctx, e); err != nil {
		slog.Warn("publish chart event", "error", err, "type", e.Type, "chart", e.ChartID)
	}
}

func dbChartToChart(c db.Chart) *Chart {
	return &Chart{
		ID:        c.ID,
		Name:      c.Name,
		OwnerID:   c.OwnerID,
		Width:     int(c.Width),
		Height:    int(c.Height),
		CreatedAt: c.CreatedAt.Time.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: c.UpdatedAt.Time.Format("2006-01-02T15:04:05Z"),
	}
}
