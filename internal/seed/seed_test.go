package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appModels "github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/catalog"
	"github.com/yigit/enrollplan/internal/prereq"
)

type fakeImporter struct {
	count    int64
	imported int
}

func (f *fakeImporter) CountCourses(context.Context) (int64, error) { return f.count, nil }

func (f *fakeImporter) ImportCatalog(_ context.Context, courses []*appModels.Course, _ []*appModels.Section) error {
	f.imported += len(courses)
	f.count += int64(len(courses))
	return nil
}

func TestDemoCatalogIsValid(t *testing.T) {
	snap, err := catalog.NewSnapshot(DemoCatalog())
	require.NoError(t, err)

	root, err := prereq.Resolve(snap, "CS450", 0)
	require.NoError(t, err)
	assert.Equal(t, prereq.Flags{}, root.Flags())
	assert.Contains(t, root.RequiredCodes(), "MATH101")
}

func TestCreateDefaultCatalogRunsOnce(t *testing.T) {
	repo := &fakeImporter{}
	require.NoError(t, CreateDefaultCatalog(context.Background(), repo, zerolog.Nop()))
	first := repo.imported
	assert.Positive(t, first)

	require.NoError(t, CreateDefaultCatalog(context.Background(), repo, zerolog.Nop()))
	assert.Equal(t, first, repo.imported)
}
