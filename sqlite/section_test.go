package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fwojciec/calregs"
	"github.com/fwojciec/calregs/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var retrieved = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSection(u, number string) *calregs.Section {
	return &calregs.Section{
		SectionNumber:   number,
		SectionHeading:  "§ " + number + ".",
		Citation:        "CCR § " + number,
		SourceURL:       u,
		ContentMarkdown: "content of " + number,
		ContentHash:     "00000000deadbeef",
		RetrievedAt:     retrieved,
	}
}

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSectionService_UpsertSection(t *testing.T) {
	t.Parallel()

	t.Run("round trips every field", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSectionService(openDB(t))
		ctx := context.Background()
		title := 17
		chapter := "Chapter 5. Sanitation"
		s := newSection("https://x/1#chunk0", "1234")
		s.TitleNumber = &title
		s.Chapter = &chapter
		s.BreadcrumbPath = "Title 17 > Chapter 5. Sanitation"

		require.NoError(t, svc.UpsertSection(ctx, s))

		got, err := svc.FindSectionByURL(ctx, "https://x/1")
		require.NoError(t, err)
		assert.Equal(t, s.SourceURL, got.SourceURL)
		assert.Equal(t, "1234", got.SectionNumber)
		require.NotNil(t, got.TitleNumber)
		assert.Equal(t, 17, *got.TitleNumber)
		require.NotNil(t, got.Chapter)
		assert.Equal(t, chapter, *got.Chapter)
		assert.Nil(t, got.Division)
		assert.Equal(t, "00000000deadbeef", got.ContentHash)
		assert.True(t, got.RetrievedAt.Equal(retrieved))
	})

	t.Run("later record replaces earlier one", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSectionService(openDB(t))
		ctx := context.Background()
		first := newSection("https://x/1", "100")
		second := newSection("https://x/1", "100")
		second.ContentMarkdown = "amended"
		second.RetrievedAt = retrieved.Add(time.Hour)

		require.NoError(t, svc.UpsertSection(ctx, first))
		require.NoError(t, svc.UpsertSection(ctx, second))

		got, err := svc.FindSectionByURL(ctx, "https://x/1")
		require.NoError(t, err)
		assert.Equal(t, "amended", got.ContentMarkdown)
		n, err := svc.CountSections(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("older record does not replace newer one", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSectionService(openDB(t))
		ctx := context.Background()
		newer := newSection("https://x/1", "100")
		newer.RetrievedAt = retrieved.Add(time.Hour)
		newer.ContentMarkdown = "newer"
		older := newSection("https://x/1", "100")
		older.ContentMarkdown = "older"

		require.NoError(t, svc.UpsertSection(ctx, newer))
		require.NoError(t, svc.UpsertSection(ctx, older))

		got, err := svc.FindSectionByURL(ctx, "https://x/1")
		require.NoError(t, err)
		assert.Equal(t, "newer", got.ContentMarkdown)
	})

	t.Run("rejects invalid sections", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSectionService(openDB(t))

		err := svc.UpsertSection(context.Background(), &calregs.Section{SourceURL: "https://x/1"})

		assert.Equal(t, calregs.EINVALID, calregs.ErrorCode(err))
	})
}

func TestSectionService_UpsertSections(t *testing.T) {
	t.Parallel()

	svc := sqlite.NewSectionService(openDB(t))
	ctx := context.Background()

	var sections []*calregs.Section
	for i := range 20 {
		sections = append(sections, newSection(fmt.Sprintf("https://x/%02d", i), fmt.Sprint(100+i)))
	}

	n, err := svc.UpsertSections(ctx, sections)

	require.NoError(t, err)
	assert.Equal(t, 20, n)
	count, err := svc.CountSections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}

func TestSectionService_FindSectionByURL(t *testing.T) {
	t.Parallel()

	svc := sqlite.NewSectionService(openDB(t))

	_, err := svc.FindSectionByURL(context.Background(), "https://x/missing")

	assert.Equal(t, calregs.ENOTFOUND, calregs.ErrorCode(err))
}

func TestSectionService_FindSections(t *testing.T) {
	t.Parallel()

	svc := sqlite.NewSectionService(openDB(t))
	ctx := context.Background()
	t17, t8 := 17, 8
	for i, title := range []*int{&t17, &t17, &t8, nil} {
		s := newSection(fmt.Sprintf("https://x/%d", i), fmt.Sprint(100+i))
		s.TitleNumber = title
		require.NoError(t, svc.UpsertSection(ctx, s))
	}

	t.Run("all ordered by key", func(t *testing.T) {
		t.Parallel()

		got, err := svc.FindSections(ctx, calregs.SectionFilter{})

		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, "https://x/0", got[0].SourceURL)
		assert.Equal(t, "https://x/3", got[3].SourceURL)
	})

	t.Run("by title number", func(t *testing.T) {
		t.Parallel()

		got, err := svc.FindSections(ctx, calregs.SectionFilter{TitleNumber: &t17})

		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by citation", func(t *testing.T) {
		t.Parallel()

		citation := "CCR § 102"
		got, err := svc.FindSections(ctx, calregs.SectionFilter{Citation: &citation})

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "https://x/2", got[0].SourceURL)
	})

	t.Run("offset without limit", func(t *testing.T) {
		t.Parallel()

		got, err := svc.FindSections(ctx, calregs.SectionFilter{Offset: 3})

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "https://x/3", got[0].SourceURL)
	})

	t.Run("limit and offset", func(t *testing.T) {
		t.Parallel()

		got, err := svc.FindSections(ctx, calregs.SectionFilter{Limit: 2, Offset: 1})

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "https://x/1", got[0].SourceURL)
	})
}
