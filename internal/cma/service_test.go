package cma

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cma-cli/internal/market"
	"github.com/sells-group/cma-cli/internal/model"
	"github.com/sells-group/cma-cli/internal/store"
	"github.com/sells-group/cma-cli/internal/valuation"
)

func newTestService(t *testing.T, st store.Store) *Service {
	t.Helper()
	svc, err := New(st, valuation.DefaultConfig(), nil)
	require.NoError(t, err)
	return svc
}

// analyzeReq returns a request for a well-described subject.
func analyzeReq(address string) AnalyzeRequest {
	return AnalyzeRequest{
		Address:       address,
		PropertyType:  model.PropertyTypeSingleFamily,
		SquareFootage: model.Int(2000),
		Bedrooms:      model.Int(3),
		Bathrooms:     model.Float(2),
		YearBuilt:     model.Int(1990),
		LotSize:       model.Int(6000),
	}
}

// soldCandidate returns a pool entry identical to the analyzeReq subject,
// sold daysAgo days before now. The service builds its engines on the wall
// clock, so candidates are anchored to time.Now rather than a fixed date.
func soldCandidate(id string, daysAgo int, price float64, mutate func(*model.Candidate)) model.Candidate {
	c := model.Candidate{
		Property: model.Property{
			ID:            id,
			Address:       id + " Comp Ave, Los Angeles, CA",
			PropertyType:  model.PropertyTypeSingleFamily,
			SquareFootage: model.Int(2000),
			Bedrooms:      model.Int(3),
			Bathrooms:     model.Float(2),
			YearBuilt:     model.Int(1990),
			LotSize:       model.Int(6000),
		},
		Sale: model.Sale{
			ID:         "sale-" + id,
			PropertyID: id,
			SalePrice:  price,
			SaleDate:   time.Now().AddDate(0, 0, -daysAgo),
			Status:     model.SaleStatusSold,
		},
	}
	if mutate != nil {
		mutate(&c)
	}
	return c
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := valuation.DefaultConfig()
	cfg.SizeWeight = -1

	_, err := New(&mockStore{}, cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size_weight")
}

func TestAnalyzeAddress_CreatesSubjectAndSaves(t *testing.T) {
	ctx := context.Background()
	req := analyzeReq("741 Oak St, Los Angeles, CA")
	req.Save = true

	pool := []model.Candidate{
		soldCandidate("comp-1", 30, 500000, nil),
		soldCandidate("comp-2", 60, 480000, nil),
	}
	savedAt := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	st := &mockStore{}
	st.On("GetPropertyByAddress", mock.Anything, req.Address).Return(nil, nil)

	var created model.Property
	st.On("CreateProperty", mock.Anything, mock.AnythingOfType("model.Property")).
		Run(func(args mock.Arguments) { created = args.Get(1).(model.Property) }).
		Return(&model.Property{
			ID:            "prop-1",
			Address:       req.Address,
			PropertyType:  model.PropertyTypeSingleFamily,
			SquareFootage: req.SquareFootage,
			Bedrooms:      req.Bedrooms,
			Bathrooms:     req.Bathrooms,
			YearBuilt:     req.YearBuilt,
			LotSize:       req.LotSize,
		}, nil)
	st.On("ListCandidates", mock.Anything, mock.AnythingOfType("time.Time")).Return(pool, nil)

	var saved model.Analysis
	st.On("SaveAnalysis", mock.Anything, mock.AnythingOfType("model.Analysis")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(model.Analysis) }).
		Return(&model.Analysis{ID: "analysis-1", PropertyID: "prop-1", CreatedAt: savedAt}, nil)

	svc := newTestService(t, st)
	outcome, err := svc.AnalyzeAddress(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "prop-1", outcome.PropertyID)
	assert.Equal(t, "analysis-1", outcome.AnalysisID)
	assert.Equal(t, savedAt, outcome.CreatedAt)
	assert.Equal(t, req.Address, created.Address)
	assert.False(t, outcome.Result.Fallback)
	assert.Len(t, outcome.Result.Comparables, 2)

	// The persisted record mirrors the engine result, with the full result
	// attached as JSON.
	assert.Equal(t, "prop-1", saved.PropertyID)
	assert.Equal(t, outcome.Result.EstimatedLow, saved.EstimatedLow)
	assert.Equal(t, outcome.Result.EstimatedHigh, saved.EstimatedHigh)
	assert.Equal(t, outcome.Result.MostLikely, saved.MostLikely)
	assert.Equal(t, outcome.Result.Confidence, saved.Confidence)
	assert.Equal(t, 2, saved.ComparableCount)

	var stored valuation.Result
	require.NoError(t, json.Unmarshal(saved.Result, &stored))
	assert.Equal(t, outcome.Result.MostLikely, stored.MostLikely)
	assert.Len(t, stored.Comparables, 2)

	st.AssertExpectations(t)
}

func TestAnalyzeAddress_ExistingPropertyWins(t *testing.T) {
	ctx := context.Background()
	req := analyzeReq("9 Stored Ln, Los Angeles, CA")
	req.SquareFootage = model.Int(2400)
	req.Save = true

	stored := &model.Property{
		ID:            "prop-9",
		Address:       req.Address,
		PropertyType:  model.PropertyTypeSingleFamily,
		SquareFootage: model.Int(1750),
		Bedrooms:      model.Int(3),
		Bathrooms:     model.Float(2),
	}

	st := &mockStore{}
	st.On("GetPropertyByAddress", mock.Anything, req.Address).Return(stored, nil)
	st.On("ListCandidates", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]model.Candidate{}, nil)
	st.On("SaveAnalysis", mock.Anything, mock.AnythingOfType("model.Analysis")).
		Return(&model.Analysis{ID: "analysis-9", PropertyID: "prop-9"}, nil)

	svc := newTestService(t, st)
	outcome, err := svc.AnalyzeAddress(ctx, req)
	require.NoError(t, err)

	// The stored record describes the subject; the request details are only
	// used when the property does not exist yet.
	assert.Equal(t, "prop-9", outcome.PropertyID)
	require.NotNil(t, outcome.Result.Subject.SquareFootage)
	assert.Equal(t, 1750, *outcome.Result.Subject.SquareFootage)

	st.AssertNotCalled(t, "CreateProperty", mock.Anything, mock.Anything)
	st.AssertExpectations(t)
}

func TestAnalyzeAddress_NoSaveLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	req := analyzeReq("55 Transient Way, Los Angeles, CA")

	st := &mockStore{}
	st.On("GetPropertyByAddress", mock.Anything, req.Address).Return(nil, nil)
	st.On("ListCandidates", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]model.Candidate{soldCandidate("comp-1", 30, 500000, nil)}, nil)

	svc := newTestService(t, st)
	outcome, err := svc.AnalyzeAddress(ctx, req)
	require.NoError(t, err)

	assert.Empty(t, outcome.PropertyID)
	assert.Empty(t, outcome.AnalysisID)
	assert.Len(t, outcome.Result.Comparables, 1)

	st.AssertNotCalled(t, "CreateProperty", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "SaveAnalysis", mock.Anything, mock.Anything)
	st.AssertExpectations(t)
}

func TestAnalyzeAddress_EmptyAddress(t *testing.T) {
	svc := newTestService(t, &mockStore{})

	_, err := svc.AnalyzeAddress(context.Background(), AnalyzeRequest{})
	require.Error(t, err)
	assert.True(t, valuation.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "subject.address")
}

func TestAnalyzeAddress_UnknownMarket(t *testing.T) {
	req := analyzeReq("741 Oak St, Los Angeles, CA")
	req.Market = "atlantis"

	st := &mockStore{}
	st.On("GetPropertyByAddress", mock.Anything, req.Address).Return(nil, nil)

	svc := newTestService(t, st)
	_, err := svc.AnalyzeAddress(context.Background(), req)
	require.Error(t, err)

	var upe *market.UnknownProfileError
	require.ErrorAs(t, err, &upe)
	assert.Equal(t, "atlantis", upe.Name)
}

func TestAnalyzeAddress_MarketRatesApplied(t *testing.T) {
	req := analyzeReq("741 Oak St, Los Angeles, CA")
	req.Market = "los_angeles"

	// Identical except 200 sqft smaller. Under the LA profile the size rate
	// is 350/sqft, so the adjustment is 200 * 350 = 70000 with no band
	// multiplier (1800 sqft sits between the small and large thresholds).
	comp := soldCandidate("comp-1", 30, 480000, func(c *model.Candidate) {
		c.Property.SquareFootage = model.Int(1800)
	})

	st := &mockStore{}
	st.On("GetPropertyByAddress", mock.Anything, req.Address).Return(nil, nil)
	st.On("ListCandidates", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]model.Candidate{comp}, nil)

	svc := newTestService(t, st)
	outcome, err := svc.AnalyzeAddress(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "los_angeles", outcome.Result.Market)
	require.Len(t, outcome.Result.Comparables, 1)
	got := outcome.Result.Comparables[0]
	assert.Equal(t, float64(70000), got.Adjustments.Size)
	assert.Equal(t, int64(70000), got.Adjustments.Total)
	assert.Equal(t, int64(550000), got.AdjustedPrice)
}

func TestAnalyzeAddress_DefaultMarket(t *testing.T) {
	req := analyzeReq("741 Oak St, Los Angeles, CA")

	comp := soldCandidate("comp-1", 30, 480000, func(c *model.Candidate) {
		c.Property.SquareFootage = model.Int(1800)
	})

	st := &mockStore{}
	st.On("GetPropertyByAddress", mock.Anything, req.Address).Return(nil, nil)
	st.On("ListCandidates", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]model.Candidate{comp}, nil)

	svc, err := New(st, valuation.DefaultConfig(), nil, WithDefaultMarket("los_angeles"))
	require.NoError(t, err)

	outcome, err := svc.AnalyzeAddress(context.Background(), req)
	require.NoError(t, err)

	// No market on the request; the configured default supplies the rates.
	assert.Equal(t, "los_angeles", outcome.Result.Market)
	require.Len(t, outcome.Result.Comparables, 1)
	assert.Equal(t, float64(70000), outcome.Result.Comparables[0].Adjustments.Size)

	// An explicit market still wins over the default.
	req.Market = "midwest"
	outcome, err = svc.AnalyzeAddress(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "midwest", outcome.Result.Market)
}

func TestAnalyzeAddress_CandidateWindowFromConfig(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cfg := valuation.DefaultConfig()
	cfg.RecencyWindowDays = 90

	st := &mockStore{}
	st.On("GetPropertyByAddress", mock.Anything, mock.AnythingOfType("string")).Return(nil, nil)
	st.On("ListCandidates", mock.Anything, now.AddDate(0, 0, -90)).
		Return([]model.Candidate{}, nil)

	svc, err := New(st, cfg, nil)
	require.NoError(t, err)
	svc.now = func() time.Time { return now }

	_, err = svc.AnalyzeAddress(context.Background(), analyzeReq("741 Oak St, Los Angeles, CA"))
	require.NoError(t, err)

	st.AssertExpectations(t)
}

func TestAnalyzeAddress_EmptyPoolFallback(t *testing.T) {
	req := analyzeReq("741 Oak St, Los Angeles, CA")
	req.Save = true

	st := &mockStore{}
	st.On("GetPropertyByAddress", mock.Anything, req.Address).Return(nil, nil)
	st.On("CreateProperty", mock.Anything, mock.AnythingOfType("model.Property")).
		Return(&model.Property{ID: "prop-1", Address: req.Address}, nil)
	st.On("ListCandidates", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]model.Candidate{}, nil)

	var saved model.Analysis
	st.On("SaveAnalysis", mock.Anything, mock.AnythingOfType("model.Analysis")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(model.Analysis) }).
		Return(&model.Analysis{ID: "analysis-1", PropertyID: "prop-1"}, nil)

	svc := newTestService(t, st)
	outcome, err := svc.AnalyzeAddress(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, outcome.Result.Fallback)
	assert.Equal(t, int64(350000), saved.EstimatedLow)
	assert.Equal(t, int64(450000), saved.EstimatedHigh)
	assert.Equal(t, int64(400000), saved.MostLikely)
	assert.Equal(t, 0.3, saved.Confidence)
	// The synthetic placeholder row counts as the one comparable.
	assert.Equal(t, 1, saved.ComparableCount)
}

func TestAnalyzeAddress_LookupError(t *testing.T) {
	st := &mockStore{}
	st.On("GetPropertyByAddress", mock.Anything, mock.AnythingOfType("string")).
		Return(nil, eris.New("connection refused"))

	svc := newTestService(t, st)
	_, err := svc.AnalyzeAddress(context.Background(), analyzeReq("741 Oak St, Los Angeles, CA"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cma: look up subject")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAnalyzeProperty_SavesAnalysis(t *testing.T) {
	stored := &model.Property{
		ID:            "prop-7",
		Address:       "7 Filed Ave, Los Angeles, CA",
		PropertyType:  model.PropertyTypeSingleFamily,
		SquareFootage: model.Int(2000),
		Bedrooms:      model.Int(3),
		Bathrooms:     model.Float(2),
	}

	st := &mockStore{}
	st.On("GetProperty", mock.Anything, "prop-7").Return(stored, nil)
	st.On("ListCandidates", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]model.Candidate{soldCandidate("comp-1", 45, 510000, nil)}, nil)
	st.On("SaveAnalysis", mock.Anything, mock.AnythingOfType("model.Analysis")).
		Return(&model.Analysis{ID: "analysis-7", PropertyID: "prop-7"}, nil)

	svc := newTestService(t, st)
	outcome, err := svc.AnalyzeProperty(context.Background(), "prop-7", "", true)
	require.NoError(t, err)

	assert.Equal(t, "prop-7", outcome.PropertyID)
	assert.Equal(t, "analysis-7", outcome.AnalysisID)
	st.AssertExpectations(t)
}

func TestAnalyzeProperty_NotFound(t *testing.T) {
	st := &mockStore{}
	st.On("GetProperty", mock.Anything, "missing").Return(nil, nil)

	svc := newTestService(t, st)
	_, err := svc.AnalyzeProperty(context.Background(), "missing", "", false)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "property not found: missing")
}

func TestAnalysis_ReturnsStored(t *testing.T) {
	want := &model.Analysis{ID: "analysis-3", PropertyID: "prop-3", MostLikely: 500000}

	st := &mockStore{}
	st.On("GetAnalysis", mock.Anything, "analysis-3").Return(want, nil)

	svc := newTestService(t, st)
	got, err := svc.Analysis(context.Background(), "analysis-3")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAnalysis_NotFound(t *testing.T) {
	st := &mockStore{}
	st.On("GetAnalysis", mock.Anything, "missing").Return(nil, nil)

	svc := newTestService(t, st)
	_, err := svc.Analysis(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.True(t, IsNotFound(&NotFoundError{Entity: "analysis", ID: "x"}))
	assert.True(t, IsNotFound(eris.Wrap(&NotFoundError{Entity: "property", ID: "y"}, "outer")))
}

func TestHistory_PassesFilter(t *testing.T) {
	filter := store.AnalysisFilter{PropertyID: "prop-1", Limit: 5}
	want := []model.Analysis{{ID: "analysis-1"}, {ID: "analysis-2"}}

	st := &mockStore{}
	st.On("ListAnalyses", mock.Anything, filter).Return(want, nil)

	svc := newTestService(t, st)
	got, err := svc.History(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCreateProperty_WithSale(t *testing.T) {
	prop := model.Property{Address: "31 New St, Los Angeles, CA"}
	sale := &model.Sale{SalePrice: 625000, SaleDate: time.Now().AddDate(0, 0, -10)}

	st := &mockStore{}
	st.On("CreateProperty", mock.Anything, prop).
		Return(&model.Property{ID: "prop-31", Address: prop.Address}, nil)

	var createdSale model.Sale
	st.On("CreateSale", mock.Anything, mock.AnythingOfType("model.Sale")).
		Run(func(args mock.Arguments) { createdSale = args.Get(1).(model.Sale) }).
		Return(&model.Sale{ID: "sale-31", PropertyID: "prop-31", SalePrice: 625000}, nil)

	svc := newTestService(t, st)
	out, err := svc.CreateProperty(context.Background(), prop, sale)
	require.NoError(t, err)

	assert.Equal(t, "prop-31", out.Property.ID)
	require.Len(t, out.Sales, 1)
	assert.Equal(t, "sale-31", out.Sales[0].ID)
	// The sale is linked to the newly created property.
	assert.Equal(t, "prop-31", createdSale.PropertyID)
}

func TestCreateProperty_EmptyAddress(t *testing.T) {
	svc := newTestService(t, &mockStore{})

	_, err := svc.CreateProperty(context.Background(), model.Property{}, nil)
	require.Error(t, err)
	assert.True(t, valuation.IsInvalidInput(err))
}

func TestProperty_WithSales(t *testing.T) {
	prop := &model.Property{ID: "prop-5", Address: "5 Held Ct, Los Angeles, CA"}
	sales := []model.Sale{{ID: "sale-5", PropertyID: "prop-5", SalePrice: 700000}}

	st := &mockStore{}
	st.On("GetProperty", mock.Anything, "prop-5").Return(prop, nil)
	st.On("ListSales", mock.Anything, "prop-5").Return(sales, nil)

	svc := newTestService(t, st)
	out, err := svc.Property(context.Background(), "prop-5")
	require.NoError(t, err)
	assert.Equal(t, *prop, out.Property)
	assert.Equal(t, sales, out.Sales)
}

func TestProperty_NotFound(t *testing.T) {
	st := &mockStore{}
	st.On("GetProperty", mock.Anything, "missing").Return(nil, nil)

	svc := newTestService(t, st)
	_, err := svc.Property(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestMarkets_ListsBuiltins(t *testing.T) {
	svc := newTestService(t, &mockStore{})

	names := svc.Markets()
	assert.Equal(t, []string{"austin", "los_angeles", "midwest", "san_francisco"}, names)
}
