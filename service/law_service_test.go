package service

import (
	"context"
	"path/filepath"
	"testing"

	"lexassist-backend/logger"
	"lexassist-backend/metrics"
	"lexassist-backend/models"
	"lexassist-backend/repository"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLawService(t *testing.T, opts ...LawServiceOption) (*LawService, *repository.LawRepository) {
	t.Helper()
	repo, err := repository.NewLawRepository(filepath.Join(t.TempDir(), "laws"))
	require.NoError(t, err)
	opts = append([]LawServiceOption{LawWithStore(repo), LawWithLogger(logger.NewTestLogger(t))}, opts...)
	return NewLawService(opts...), repo
}

func saleOfGoods() CreateLawRequest {
	return CreateLawRequest{
		ActName: "Sale of Goods Act 1957",
		FileKey: "sale_of_goods_act_1957",
		Year:    "1957",
		Sections: []models.Section{
			{Section: "4", Title: "Sale and agreement to sell", Text: "A contract of sale of goods is a contract whereby the seller transfers the property in goods to the buyer for a price."},
		},
	}
}

func TestLawService_CreateFromFields(t *testing.T) {
	svc, repo := newLawService(t)

	result, err := svc.Create(context.Background(), saleOfGoods())
	require.NoError(t, err)

	assert.Equal(t, models.DefaultLawVersion, result.Law.Metadata.Version)
	assert.Equal(t, models.DefaultLawSource, result.Law.Metadata.Source)
	assert.Equal(t, 1, result.Law.Metadata.TotalSections)
	assert.Equal(t, "Sale of Goods Act 1957", result.Law.Sections[0].Act)

	stored, err := svc.Get("sale_of_goods_act_1957")
	require.NoError(t, err)
	assert.Equal(t, result.Law.Metadata, stored.Metadata)
	assert.Equal(t, []string{"Sale of Goods Act 1957"}, repo.Corpus().ActNames())
	assert.Equal(t, 1, svc.Stats().TotalSections)
	assert.Len(t, svc.List(), 1)
}

func TestLawService_CreateValidatesLikeAdd(t *testing.T) {
	svc, _ := newLawService(t)
	req := saleOfGoods()
	req.FileKey = "Sale Of Goods"

	_, err := svc.Create(context.Background(), req)

	var verr *repository.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "/metadata/file_key")
	assert.Empty(t, svc.List())
}

func TestLawService_MutationsAreCounted(t *testing.T) {
	svc, _ := newLawService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, saleOfGoods())
	require.NoError(t, err)
	rejected := metrics.LawMutations.WithLabelValues("update", metrics.StatusError)
	before := testutil.ToFloat64(rejected)

	_, err = svc.Update(ctx, "sale_of_goods_act_1957", []byte(`{"metadata":{"act_name":"Sale of Goods Act 1957","file_key":"sale_of_goods_act_1957","year":"1957","version":"0.9"},"sections":[]}`), true)

	assert.ErrorIs(t, err, repository.ErrVersionNotNewer)
	assert.Equal(t, before+1, testutil.ToFloat64(rejected))
}

func TestLawService_ReadOnly(t *testing.T) {
	svc, repo := newLawService(t, LawReadOnly(true))
	ctx := context.Background()

	_, err := svc.Create(ctx, saleOfGoods())
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = svc.Add(ctx, []byte(`{}`))
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = svc.Update(ctx, "x", []byte(`{}`), true)
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = svc.Delete(ctx, "x", false)
	assert.ErrorIs(t, err, ErrReadOnly)

	assert.Empty(t, repo.List())
	assert.Zero(t, svc.Stats().TotalLaws)

	// reads stay open; this repository simply has no backup storage
	_, err = svc.Backups(ctx)
	assert.ErrorIs(t, err, repository.ErrBackupNotAvailable)
}
