package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/qudex/internal/blueprint"
)

// ErrNoLoads is returned by LatestLoad when nothing has been exported yet.
var ErrNoLoads = errors.New("no exported loads")

// ErrBlueprintNotFound is returned when a blueprint is absent from an exported load.
var ErrBlueprintNotFound = errors.New("blueprint not found in load")

// LoadRecord describes one exported tree.
type LoadRecord struct {
	ID          uuid.UUID
	Fingerprint string
	Source      string
	ObjectCount int
	CreatedAt   time.Time
}

// BlueprintRecord is one exported object with its resolved attributes.
type BlueprintRecord struct {
	Name       string
	Parent     string
	Depth      int
	Attributes blueprint.Attributes
}

// CatalogRepository writes resolved trees into the catalog tables and reads them back.
type CatalogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewCatalogRepository creates a CatalogRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the catalog schema applied.
func NewCatalogRepository(db *pgxpool.Pool, logger *zap.Logger) *CatalogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogRepository{db: db, logger: logger}
}

// Export writes tree as a new load.
//
// Precondition: tree must be non-nil.
// Postcondition: Either every row of the load is committed or none is.
func (r *CatalogRepository) Export(ctx context.Context, tree *blueprint.Tree) (LoadRecord, error) {
	start := time.Now()
	id := tree.ID()
	loadID := pgtype.UUID{Bytes: id, Valid: true}

	var objects, tags, fields [][]any
	tree.Walk(func(obj *blueprint.Object, depth int) bool {
		var parent *string
		if !obj.IsRoot() {
			p := obj.ParentName()
			parent = &p
		}
		objects = append(objects, []any{loadID, obj.Name(), parent, depth})

		attrs := obj.Attributes()
		for _, tag := range obj.Tags() {
			tags = append(tags, []any{loadID, obj.Name(), tag})
			names := make([]string, 0, len(attrs[tag]))
			for field := range attrs[tag] {
				names = append(names, field)
			}
			slices.Sort(names)
			for _, field := range names {
				fields = append(fields, []any{loadID, obj.Name(), tag, field, attrs[tag][field]})
			}
		}
		return true
	})

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return LoadRecord{}, fmt.Errorf("beginning export transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec := LoadRecord{
		ID:          id,
		Fingerprint: tree.Fingerprint().String(),
		Source:      tree.Source(),
		ObjectCount: tree.Len(),
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO loads (id, fingerprint, source, object_count)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		loadID, rec.Fingerprint, rec.Source, rec.ObjectCount,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return LoadRecord{}, fmt.Errorf("inserting load: %w", err)
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"blueprints", []string{"load_id", "name", "parent", "depth"}, objects},
		{"blueprint_tags", []string{"load_id", "name", "tag"}, tags},
		{"blueprint_fields", []string{"load_id", "name", "tag", "field", "value"}, fields},
	}
	for _, c := range copies {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows))
		if err != nil {
			return LoadRecord{}, fmt.Errorf("copying %s: %w", c.table, err)
		}
		if int(n) != len(c.rows) {
			return LoadRecord{}, fmt.Errorf("copying %s: wrote %d of %d rows", c.table, n, len(c.rows))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return LoadRecord{}, fmt.Errorf("committing export: %w", err)
	}

	r.logger.Info("exported blueprint tree",
		zap.String("load", id.String()),
		zap.String("fingerprint", tree.Fingerprint().Short()),
		zap.Int("objects", len(objects)),
		zap.Int("fields", len(fields)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rec, nil
}

// LatestLoad returns the most recently exported load.
//
// Postcondition: Returns ErrNoLoads when the catalog is empty.
func (r *CatalogRepository) LatestLoad(ctx context.Context) (LoadRecord, error) {
	var (
		rec LoadRecord
		id  pgtype.UUID
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, fingerprint, source, object_count, created_at
		 FROM loads ORDER BY created_at DESC, id LIMIT 1`,
	).Scan(&id, &rec.Fingerprint, &rec.Source, &rec.ObjectCount, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoadRecord{}, ErrNoLoads
		}
		return LoadRecord{}, fmt.Errorf("querying latest load: %w", err)
	}
	rec.ID = id.Bytes
	return rec, nil
}

// Blueprint reads one exported object back out of load.
//
// Postcondition: Returns ErrBlueprintNotFound when load has no object called name.
func (r *CatalogRepository) Blueprint(ctx context.Context, load uuid.UUID, name string) (BlueprintRecord, error) {
	loadID := pgtype.UUID{Bytes: load, Valid: true}
	rec := BlueprintRecord{Name: name, Attributes: blueprint.Attributes{}}

	var parent *string
	err := r.db.QueryRow(ctx,
		`SELECT parent, depth FROM blueprints WHERE load_id = $1 AND name = $2`,
		loadID, name,
	).Scan(&parent, &rec.Depth)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BlueprintRecord{}, fmt.Errorf("%w: %q", ErrBlueprintNotFound, name)
		}
		return BlueprintRecord{}, fmt.Errorf("querying blueprint: %w", err)
	}
	if parent != nil {
		rec.Parent = *parent
	}

	rows, err := r.db.Query(ctx,
		`SELECT t.tag, f.field, f.value
		 FROM blueprint_tags t
		 LEFT JOIN blueprint_fields f
		   ON f.load_id = t.load_id AND f.name = t.name AND f.tag = t.tag
		 WHERE t.load_id = $1 AND t.name = $2`,
		loadID, name,
	)
	if err != nil {
		return BlueprintRecord{}, fmt.Errorf("querying blueprint fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tag          string
			field, value *string
		)
		if err := rows.Scan(&tag, &field, &value); err != nil {
			return BlueprintRecord{}, fmt.Errorf("scanning blueprint field: %w", err)
		}
		if rec.Attributes[tag] == nil {
			rec.Attributes[tag] = blueprint.Fields{}
		}
		if field != nil && value != nil {
			rec.Attributes[tag][*field] = *value
		}
	}
	if err := rows.Err(); err != nil {
		return BlueprintRecord{}, fmt.Errorf("iterating blueprint fields: %w", err)
	}
	return rec, nil
}

// DeleteLoad removes a load and every row that belongs to it.
//
// Postcondition: Returns ErrNoLoads if no load has the given id.
func (r *CatalogRepository) DeleteLoad(ctx context.Context, load uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM loads WHERE id = $1`, pgtype.UUID{Bytes: load, Valid: true})
	if err != nil {
		return fmt.Errorf("deleting load: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoLoads
	}
	return nil
}
