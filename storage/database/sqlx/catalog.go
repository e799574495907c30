package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core/catalog"
)

var (
	refColumns    = []string{"id", "kind", "name", "school_id", "created_at"}
	periodColumns = []string{"id", "school_id", "year", "name", `"order"`, "percentage", "created_at"}
)

type refRow struct {
	ID        string      `db:"id"`
	Kind      string      `db:"kind"`
	Name      string      `db:"name"`
	SchoolID  null.String `db:"school_id"`
	CreatedAt time.Time   `db:"created_at"`
}

func (r refRow) ref() catalog.Ref {
	return catalog.Ref{ID: r.ID, Kind: r.Kind, Name: r.Name, SchoolID: r.SchoolID, CreatedAt: r.CreatedAt.UTC()}
}

func refsFromRows(rows []refRow) []catalog.Ref {
	refs := make([]catalog.Ref, 0, len(rows))
	for _, r := range rows {
		refs = append(refs, r.ref())
	}
	return refs
}

type periodRow struct {
	ID         string    `db:"id"`
	SchoolID   string    `db:"school_id"`
	Year       int       `db:"year"`
	Name       string    `db:"name"`
	Order      int       `db:"order"`
	Percentage float64   `db:"percentage"`
	CreatedAt  time.Time `db:"created_at"`
}

type catalogRepository struct {
	conn
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *sqlx.DB) *catalogRepository {
	return &catalogRepository{newConn(db)}
}

func (repo *catalogRepository) CreateRef(ctx context.Context, ref catalog.Ref) (catalog.Ref, error) {
	ref.ID = uuid.New().String()
	ref.CreatedAt = ref.CreatedAt.UTC()
	b := psql.Insert("refs").Columns(refColumns...).
		Values(ref.ID, ref.Kind, ref.Name, ref.SchoolID, ref.CreatedAt)
	if _, err := repo.exec(ctx, b); err != nil {
		return catalog.Ref{}, storeErr(err, "inserting "+ref.Kind, nil, nil)
	}
	return ref, nil
}

func (repo *catalogRepository) GetRef(ctx context.Context, kind, id string) (catalog.Ref, error) {
	var row refRow
	b := psql.Select(refColumns...).From("refs").Where(sq.Eq{"id": id, "kind": kind})
	if err := repo.get(ctx, &row, b); err != nil {
		return catalog.Ref{}, storeErr(err, "getting "+kind, catalog.ErrNotFound, nil)
	}
	return row.ref(), nil
}

func (repo *catalogRepository) QueryRefs(ctx context.Context, kind, schoolID string) ([]catalog.Ref, error) {
	b := psql.Select(refColumns...).From("refs").Where(sq.Eq{"kind": kind}).OrderBy("name", "created_at")
	if schoolID != "" {
		b = b.Where(sq.Eq{"school_id": schoolID})
	}
	var rows []refRow
	if err := repo.selectAll(ctx, &rows, b); err != nil {
		return nil, storeErr(err, "querying "+kind+" refs", nil, nil)
	}
	return refsFromRows(rows), nil
}

func (repo *catalogRepository) GetRefsByIDs(ctx context.Context, kind string, ids []string) ([]catalog.Ref, error) {
	if len(ids) == 0 {
		return []catalog.Ref{}, nil
	}
	var rows []refRow
	b := psql.Select(refColumns...).From("refs").Where(sq.Eq{"kind": kind, "id": ids})
	if err := repo.selectAll(ctx, &rows, b); err != nil {
		return nil, storeErr(err, "getting "+kind+" refs", nil, nil)
	}
	return refsFromRows(rows), nil
}

func (repo *catalogRepository) CreatePeriod(ctx context.Context, p catalog.Period) (catalog.Period, error) {
	p.ID = uuid.New().String()
	p.CreatedAt = p.CreatedAt.UTC()
	b := psql.Insert("periods").Columns(periodColumns...).
		Values(p.ID, p.SchoolID, p.Year, p.Name, p.Order, p.Percentage, p.CreatedAt)
	if _, err := repo.exec(ctx, b); err != nil {
		return catalog.Period{}, storeErr(err, "inserting period", nil, catalog.ErrPeriodExists)
	}
	return p, nil
}

func (repo *catalogRepository) selectPeriods(ctx context.Context, b sq.SelectBuilder) ([]catalog.Period, error) {
	var rows []periodRow
	if err := repo.selectAll(ctx, &rows, b); err != nil {
		return nil, storeErr(err, "querying periods", nil, nil)
	}
	periods := make([]catalog.Period, 0, len(rows))
	for _, r := range rows {
		periods = append(periods, catalog.Period{
			ID:         r.ID,
			SchoolID:   r.SchoolID,
			Year:       r.Year,
			Name:       r.Name,
			Order:      r.Order,
			Percentage: r.Percentage,
			CreatedAt:  r.CreatedAt.UTC(),
		})
	}
	return periods, nil
}

func (repo *catalogRepository) QueryPeriods(ctx context.Context, filter catalog.PeriodFilter) ([]catalog.Period, error) {
	b := psql.Select(periodColumns...).From("periods").OrderBy(`"order"`, "name")
	if filter.SchoolID != "" {
		b = b.Where(sq.Eq{"school_id": filter.SchoolID})
	}
	if filter.Year != 0 {
		b = b.Where(sq.Eq{"year": filter.Year})
	}
	return repo.selectPeriods(ctx, b)
}

func (repo *catalogRepository) GetPeriodsByIDs(ctx context.Context, ids []string) ([]catalog.Period, error) {
	if len(ids) == 0 {
		return []catalog.Period{}, nil
	}
	return repo.selectPeriods(ctx, psql.Select(periodColumns...).From("periods").Where(sq.Eq{"id": ids}))
}
