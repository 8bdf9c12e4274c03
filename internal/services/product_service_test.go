package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"

	"github.com/suppleit/suppleit-backend/internal/config"
	"github.com/suppleit/suppleit-backend/internal/models"
)

const upstreamFixture = `{
  "header": {"resultCode": "00", "resultMsg": "NORMAL SERVICE."},
  "body": {
    "pageNo": 1, "totalCount": 3, "numOfRows": 10,
    "items": [
      {"PRDLST_REPORT_NO": "2020123456", "PRDLST_NM": "VitC", "BSSH_NM": "AcmeCo"},
      {"PRDLST_REPORT_NO": "2004-0015", "PRDLST_NM": "Omega 3", "BSSH_NM": "Fish Co",
       "PRIMARY_FNCLTY": "Blood circulation", "NTK_MTHD": "Twice a day"},
      {"PRDLST_REPORT_NO": "", "PRDLST_NM": "Noname", "BSSH_NM": "Mystery Co"}
    ]
  }
}`

// fakeUpstream serves a fixed status and body and counts requests.
type fakeUpstream struct {
	mu     sync.Mutex
	status int
	body   string
	calls  int
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	w.WriteHeader(f.status)
	w.Write([]byte(f.body))
}

func (f *fakeUpstream) respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.body = body
}

// failingStore wraps a store and fails selected operations.
type failingStore struct {
	ProductStore
	failWrites bool
	failSearch bool
}

var errStoreDown = errors.New("store unavailable")

func (f *failingStore) Insert(ctx context.Context, p *models.Product) error {
	if f.failWrites {
		return errStoreDown
	}
	return f.ProductStore.Insert(ctx, p)
}

func (f *failingStore) Update(ctx context.Context, p *models.Product) error {
	if f.failWrites {
		return errStoreDown
	}
	return f.ProductStore.Update(ctx, p)
}

func (f *failingStore) SearchByKeyword(ctx context.Context, keyword string) ([]models.Product, error) {
	if f.failSearch {
		return nil, errStoreDown
	}
	return f.ProductStore.SearchByKeyword(ctx, keyword)
}

// recordingArchiver captures archived bodies.
type recordingArchiver struct {
	keywords []string
	err      error
}

func (r *recordingArchiver) Archive(_ context.Context, keyword string, body []byte) (*ArchiveResult, error) {
	r.keywords = append(r.keywords, keyword)
	if r.err != nil {
		return nil, r.err
	}
	return &ArchiveResult{Location: "memory://" + keyword, Key: keyword, Size: int64(len(body))}, nil
}

type ProductServiceTestSuite struct {
	suite.Suite
	upstream *fakeUpstream
	server   *httptest.Server
	store    *MemoryProductStore
	archiver *recordingArchiver
	service  *ProductService
	ctx      context.Context
}

func (suite *ProductServiceTestSuite) SetupTest() {
	suite.upstream = &fakeUpstream{status: http.StatusOK, body: upstreamFixture}
	suite.server = httptest.NewServer(suite.upstream)
	suite.store = NewMemoryProductStore(100)
	suite.archiver = &recordingArchiver{}
	suite.ctx = context.Background()
	suite.service = suite.newService(suite.store)
}

func (suite *ProductServiceTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *ProductServiceTestSuite) newService(store ProductStore) *ProductService {
	logger, _ := test.NewNullLogger()
	client, err := NewHealthFoodClient(config.HealthFoodAPIConfig{
		BaseURL:    suite.server.URL,
		ServiceKey: "test-key",
		PageSize:   10,
	}, logger)
	suite.Require().NoError(err)

	normalizer := NewProductNormalizer(config.OptionalFieldsUnset, config.FallbackIDContent)
	return NewProductService(client, normalizer, store, suite.archiver, logger)
}

func (suite *ProductServiceTestSuite) seed(products ...models.Product) {
	for i := range products {
		suite.Require().NoError(suite.store.Insert(suite.ctx, &products[i]))
	}
}

func (suite *ProductServiceTestSuite) TestSearchReturnsUpstreamRecordsInOrder() {
	result := suite.service.SearchProducts(suite.ctx, "vitamin")

	suite.Equal(models.SearchSourceRemote, result.Source)
	suite.Empty(result.FallbackReason)
	suite.Require().Len(result.Products, 3)

	suite.Equal(int64(2020123456), result.Products[0].ID)
	suite.Equal("VitC", result.Products[0].ProductName)
	suite.Equal("AcmeCo", result.Products[0].CompanyName)
	suite.Nil(result.Products[0].MainFunction)

	suite.Equal(int64(20040015), result.Products[1].ID)
	suite.Require().NotNil(result.Products[1].MainFunction)
	suite.Equal("Blood circulation", *result.Products[1].MainFunction)

	suite.Equal("Noname", result.Products[2].ProductName)
	suite.NotZero(result.Products[2].ID, "items without registration digits get a fallback id")

	suite.Equal(3, result.Inserted)
	suite.Equal(0, result.Updated)
	suite.Empty(result.StoreErrors)
	suite.Equal(3, suite.store.Len())
	suite.Equal([]string{"vitamin"}, suite.archiver.keywords)
}

func (suite *ProductServiceTestSuite) TestSearchPersistsEveryRecord() {
	result := suite.service.SearchProducts(suite.ctx, "vitamin")

	for _, record := range result.Products {
		stored, err := suite.service.GetProductByID(suite.ctx, record.ID)
		suite.Require().NoError(err)
		suite.Equal(record, *stored)
	}
}

func (suite *ProductServiceTestSuite) TestSearchTwiceUpdatesInsteadOfInserting() {
	first := suite.service.SearchProducts(suite.ctx, "vitamin")
	suite.Equal(3, first.Inserted)

	second := suite.service.SearchProducts(suite.ctx, "vitamin")
	suite.Equal(0, second.Inserted)
	suite.Equal(3, second.Updated)
	suite.Equal(3, suite.store.Len())
	suite.Equal(first.Products, second.Products)
}

func (suite *ProductServiceTestSuite) TestSearchOverwritesStoredFields() {
	suite.seed(models.Product{
		PrdID:        2020123456,
		ProductName:  "Old VitC",
		CompanyName:  "Old Co",
		MainFunction: models.StringPtr("stale"),
	})

	result := suite.service.SearchProducts(suite.ctx, "vitamin")
	suite.Equal(1, result.Updated)
	suite.Equal(2, result.Inserted)

	stored, err := suite.service.GetProductByID(suite.ctx, 2020123456)
	suite.Require().NoError(err)
	suite.Equal("VitC", stored.ProductName)
	suite.Equal("AcmeCo", stored.CompanyName)
	suite.Nil(stored.MainFunction)
}

func (suite *ProductServiceTestSuite) TestZeroIdentifierRecordsAreSkipped() {
	suite.upstream.respond(http.StatusOK, `{"body":{"items":[
		{"PRDLST_REPORT_NO":"","PRDLST_NM":"","BSSH_NM":"Nobody"},
		{"PRDLST_REPORT_NO":"000","PRDLST_NM":"Zeroes"},
		{"PRDLST_REPORT_NO":"77","PRDLST_NM":"Seventy Seven"}
	]}}`)

	result := suite.service.SearchProducts(suite.ctx, "x")

	suite.Equal(models.SearchSourceRemote, result.Source)
	suite.Require().Len(result.Products, 1)
	suite.Equal(int64(77), result.Products[0].ID)
	suite.Require().Len(result.Skipped, 2)
	suite.Equal(0, result.Skipped[0].Index)
	suite.Equal(1, result.Skipped[1].Index)
	suite.Equal("Zeroes", result.Skipped[1].ProductName)
	suite.Equal(1, suite.store.Len())

	_, err := suite.store.GetByID(suite.ctx, 0)
	suite.ErrorIs(err, ErrProductNotFound)
}

func (suite *ProductServiceTestSuite) TestFallsBackOnServerError() {
	suite.seed(models.Product{PrdID: 5, ProductName: "Vitamin B", CompanyName: "Cached Co"})
	suite.upstream.respond(http.StatusInternalServerError, `{"error":"down"}`)

	result := suite.service.SearchProducts(suite.ctx, "vitamin")

	suite.Equal(models.SearchSourceStore, result.Source)
	suite.Equal(models.FallbackTransportFailure, result.FallbackReason)
	suite.Require().Len(result.Products, 1)
	suite.Equal(int64(5), result.Products[0].ID)
	suite.Empty(suite.archiver.keywords)
}

func (suite *ProductServiceTestSuite) TestFallsBackOnTruncatedBody() {
	suite.seed(models.Product{PrdID: 5, ProductName: "Vitamin B"})
	suite.upstream.respond(http.StatusOK, `{"body":{"items":[{"PRDLST_NM":"Vi`)

	result := suite.service.SearchProducts(suite.ctx, "vitamin")

	suite.Equal(models.SearchSourceStore, result.Source)
	suite.Equal(models.FallbackParseFailure, result.FallbackReason)
	suite.Require().Len(result.Products, 1)
	suite.Equal(1, suite.store.Len())
}

func (suite *ProductServiceTestSuite) TestFallsBackOnEmptyItems() {
	suite.seed(
		models.Product{PrdID: 9, ProductName: "Vitamin K"},
		models.Product{PrdID: 8, ProductName: "Vitamin A"},
		models.Product{PrdID: 7, ProductName: "Zinc"},
	)
	suite.upstream.respond(http.StatusOK, `{"body":{"items":[]}}`)

	result := suite.service.SearchProducts(suite.ctx, "vitamin")

	suite.Equal(models.SearchSourceStore, result.Source)
	suite.Equal(models.FallbackNoResults, result.FallbackReason)
	suite.Require().Len(result.Products, 2)
	suite.Equal(int64(8), result.Products[0].ID)
	suite.Equal(int64(9), result.Products[1].ID)
}

func (suite *ProductServiceTestSuite) TestFallsBackWhenNoItemIsUsable() {
	suite.upstream.respond(http.StatusOK, `{"body":{"items":["bad", 12]}}`)

	result := suite.service.SearchProducts(suite.ctx, "vitamin")

	suite.Equal(models.SearchSourceStore, result.Source)
	suite.Equal(models.FallbackNoUsableItems, result.FallbackReason)
	suite.Len(result.Skipped, 2)
	suite.NotNil(result.Products)
	suite.Empty(result.Products)
}

func (suite *ProductServiceTestSuite) TestBlankKeywordStillQueriesUpstream() {
	result := suite.service.SearchProducts(suite.ctx, "   ")

	suite.Equal(1, suite.upstream.calls)
	suite.Equal("", result.Keyword)
	suite.Equal(models.SearchSourceRemote, result.Source)
	suite.Len(result.Products, 3)
}

func (suite *ProductServiceTestSuite) TestBlankKeywordFallbackDoesNotListWholeStore() {
	suite.seed(models.Product{PrdID: 5, ProductName: "Vitamin B"})
	suite.upstream.respond(http.StatusInternalServerError, "")

	result := suite.service.SearchProducts(suite.ctx, "")

	suite.Equal(1, suite.upstream.calls)
	suite.Equal(models.SearchSourceStore, result.Source)
	suite.Equal(models.FallbackTransportFailure, result.FallbackReason)
	suite.NotNil(result.Products)
	suite.Empty(result.Products)
	suite.Empty(result.StoreErrors)
}

func (suite *ProductServiceTestSuite) TestStoreWriteFailuresAreSwallowed() {
	service := suite.newService(&failingStore{ProductStore: suite.store, failWrites: true})

	result := service.SearchProducts(suite.ctx, "vitamin")

	suite.Equal(models.SearchSourceRemote, result.Source)
	suite.Len(result.Products, 3, "records are returned even when persistence fails")
	suite.Len(result.StoreErrors, 3)
	suite.Equal(0, result.Inserted)
	suite.Equal(0, suite.store.Len())
}

func (suite *ProductServiceTestSuite) TestFallbackSearchFailureYieldsEmptyList() {
	service := suite.newService(&failingStore{ProductStore: suite.store, failSearch: true})
	suite.upstream.respond(http.StatusBadGateway, "")

	result := service.SearchProducts(suite.ctx, "vitamin")

	suite.Equal(models.SearchSourceStore, result.Source)
	suite.NotNil(result.Products)
	suite.Empty(result.Products)
	suite.Require().Len(result.StoreErrors, 1)
}

func (suite *ProductServiceTestSuite) TestArchiveFailureDoesNotAffectSearch() {
	suite.archiver.err = errors.New("bucket missing")

	result := suite.service.SearchProducts(suite.ctx, "vitamin")

	suite.Equal(models.SearchSourceRemote, result.Source)
	suite.Len(result.Products, 3)
}

func (suite *ProductServiceTestSuite) TestDuplicateInsertBecomesUpdate() {
	racy := &racingStore{MemoryProductStore: suite.store}
	service := suite.newService(racy)

	result := service.SearchProducts(suite.ctx, "vitamin")

	suite.Equal(0, result.Inserted)
	suite.Equal(3, result.Updated)
	suite.Empty(result.StoreErrors)

	stored, err := suite.store.GetByID(suite.ctx, 2020123456)
	suite.Require().NoError(err)
	suite.Equal("VitC", stored.ProductName, "the later write wins")
}

func (suite *ProductServiceTestSuite) TestGetProductByID() {
	suite.seed(models.Product{
		PrdID:          2020123456,
		ProductName:    "VitC",
		CompanyName:    "AcmeCo",
		RegistrationNo: "2020123456",
		SrvUse:         models.StringPtr("after meals"),
	})

	record, err := suite.service.GetProductByID(suite.ctx, 2020123456)
	suite.Require().NoError(err)
	suite.Equal("VitC", record.ProductName)
	suite.Require().NotNil(record.SrvUse)
	suite.Equal("after meals", *record.SrvUse)

	record, err = suite.service.GetProductByID(suite.ctx, 1)
	suite.Nil(record)
	suite.ErrorIs(err, ErrProductNotFound)
}

func TestProductServiceSuite(t *testing.T) {
	suite.Run(t, new(ProductServiceTestSuite))
}

// racingStore simulates another writer inserting the same row between the
// existence check and the insert.
type racingStore struct {
	*MemoryProductStore
}

func (r *racingStore) Insert(ctx context.Context, p *models.Product) error {
	other := *p
	other.ProductName = "written by another request"
	if err := r.MemoryProductStore.Insert(ctx, &other); err != nil {
		return err
	}
	return r.MemoryProductStore.Insert(ctx, p)
}
