package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/calregs"
	"github.com/google/uuid"
)

var _ calregs.SectionIndex = (*SectionService)(nil)

const sectionColumns = `source_url, section_number, section_heading, citation,
	title_number, title_name, division, chapter, subchapter, article,
	breadcrumb_path, content_markdown, content_hash, retrieved_at`

// SectionService implements calregs.SectionIndex using SQLite.
type SectionService struct {
	db  *DB
	now func() time.Time
}

// NewSectionService creates a new SectionService.
func NewSectionService(db *DB) *SectionService {
	return &SectionService{db: db, now: time.Now}
}

// UpsertSection inserts s or replaces the row with the same key. A row
// retrieved later than s is kept.
func (s *SectionService) UpsertSection(ctx context.Context, sec *calregs.Section) error {
	return upsertSection(ctx, s.db.db, sec, s.now())
}

// UpsertSections upserts every section in a single transaction and returns
// the number of rows written.
func (s *SectionService) UpsertSections(ctx context.Context, sections []*calregs.Section) (int, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	for _, sec := range sections {
		if err := upsertSection(ctx, tx, sec, now); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(sections), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertSection(ctx context.Context, db execer, sec *calregs.Section, now time.Time) error {
	if err := sec.Validate(); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO sections (id, section_key, `+sectionColumns+`, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(section_key) DO UPDATE SET
			source_url = excluded.source_url,
			section_number = excluded.section_number,
			section_heading = excluded.section_heading,
			citation = excluded.citation,
			title_number = excluded.title_number,
			title_name = excluded.title_name,
			division = excluded.division,
			chapter = excluded.chapter,
			subchapter = excluded.subchapter,
			article = excluded.article,
			breadcrumb_path = excluded.breadcrumb_path,
			content_markdown = excluded.content_markdown,
			content_hash = excluded.content_hash,
			retrieved_at = excluded.retrieved_at,
			indexed_at = excluded.indexed_at
		WHERE excluded.retrieved_at >= sections.retrieved_at
	`,
		uuid.New().String(), sec.Key(), sec.SourceURL, sec.SectionNumber, sec.SectionHeading, sec.Citation,
		nullInt(sec.TitleNumber), nullString(sec.TitleName), nullString(sec.Division),
		nullString(sec.Chapter), nullString(sec.Subchapter), nullString(sec.Article),
		sec.BreadcrumbPath, sec.ContentMarkdown, sec.ContentHash,
		formatTime(sec.RetrievedAt), formatTime(now),
	)
	return err
}

// FindSectionByURL returns the section stored under the key of url.
func (s *SectionService) FindSectionByURL(ctx context.Context, url string) (*calregs.Section, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sectionColumns+` FROM sections WHERE section_key = ?`, calregs.SectionKey(url))

	sec, err := scanSection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, calregs.Errorf(calregs.ENOTFOUND, "section not found")
	}
	return sec, err
}

// FindSections returns sections matching filter ordered by key.
func (s *SectionService) FindSections(ctx context.Context, filter calregs.SectionFilter) ([]*calregs.Section, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT ` + sectionColumns + ` FROM sections WHERE 1=1`)
	if filter.TitleNumber != nil {
		query.WriteString(" AND title_number = ?")
		args = append(args, *filter.TitleNumber)
	}
	if filter.Citation != nil {
		query.WriteString(" AND citation = ?")
		args = append(args, *filter.Citation)
	}
	query.WriteString(" ORDER BY section_key")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []*calregs.Section
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// CountSections returns the number of indexed sections.
func (s *SectionService) CountSections(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sections").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSection(row scanner) (*calregs.Section, error) {
	var sec calregs.Section
	var titleNumber sql.NullInt64
	var titleName, division, chapter, subchapter, article sql.NullString
	var retrievedAt string

	if err := row.Scan(&sec.SourceURL, &sec.SectionNumber, &sec.SectionHeading, &sec.Citation,
		&titleNumber, &titleName, &division, &chapter, &subchapter, &article,
		&sec.BreadcrumbPath, &sec.ContentMarkdown, &sec.ContentHash, &retrievedAt); err != nil {
		return nil, err
	}

	sec.TitleNumber = intPtr(titleNumber)
	sec.TitleName = stringPtr(titleName)
	sec.Division = stringPtr(division)
	sec.Chapter = stringPtr(chapter)
	sec.Subchapter = stringPtr(subchapter)
	sec.Article = stringPtr(article)

	t, err := parseTime(retrievedAt, "retrieved_at")
	if err != nil {
		return nil, err
	}
	sec.RetrievedAt = t
	return &sec, nil
}
