package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-extractor/constants"
	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/entity"
)

func TestRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Repository Suite")
}

func strPtr(s string) *string { return &s }

func sample(created time.Time) *entity.ScannedReceipt {
	amount := decimal.RequireFromString("250.00")
	ocr := 88.5
	return &entity.ScannedReceipt{
		ReceiptDate:      strPtr("2023-11-12"),
		Vendor:           strPtr("Starbucks"),
		Amount:           &amount,
		Category:         "Meals",
		ImagePath:        "/done/receipt.jpg",
		SourcePath:       "/in/receipt.jpg",
		RawText:          "STARBUCKS\nGRAND TOTAL 250.00",
		VendorConfidence: 100,
		DateConfidence:   90,
		TotalConfidence:  100,
		ConfidenceScore:  96.67,
		QualityFlag:      constants.QualityExcellent,
		OCRConfidence:    &ocr,
		CreatedAt:        created,
	}
}

type opener func() ReceiptRepository

func repositoryContract(open opener) {
	var (
		ctx  context.Context
		repo ReceiptRepository
		base time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = open()
		base = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	})

	AfterEach(func() {
		Expect(repo.Close()).To(Succeed())
	})

	It("round-trips a complete receipt", func() {
		rec := sample(base.Add(250 * time.Millisecond))
		Expect(repo.Save(ctx, rec)).To(Succeed())
		Expect(rec.ID).NotTo(Equal(uuid.Nil))
		Expect(rec.CreatedAt).To(Equal(base))

		got, err := repo.Get(ctx, rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(rec.ID))
		Expect(*got.Vendor).To(Equal("Starbucks"))
		Expect(*got.ReceiptDate).To(Equal("2023-11-12"))
		Expect(got.Amount.StringFixed(2)).To(Equal("250.00"))
		Expect(got.Category).To(Equal("Meals"))
		Expect(got.ImagePath).To(Equal("/done/receipt.jpg"))
		Expect(got.SourcePath).To(Equal("/in/receipt.jpg"))
		Expect(got.RawText).To(Equal(rec.RawText))
		Expect(got.VendorConfidence).To(Equal(100))
		Expect(got.DateConfidence).To(Equal(90))
		Expect(got.ConfidenceScore).To(BeNumerically("~", 96.67, 1e-9))
		Expect(got.QualityFlag).To(Equal(constants.QualityExcellent))
		Expect(*got.OCRConfidence).To(BeNumerically("~", 88.5, 1e-9))
		Expect(got.CreatedAt.Equal(base)).To(BeTrue())
	})

	It("stores missing fields as nulls", func() {
		rec := &entity.ScannedReceipt{
			Category:    string(constants.DefaultCategory),
			ImagePath:   "/x.png",
			SourcePath:  "/x.png",
			QualityFlag: constants.QualityLow,
			CreatedAt:   base,
		}
		Expect(repo.Save(ctx, rec)).To(Succeed())

		got, err := repo.Get(ctx, rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Vendor).To(BeNil())
		Expect(got.ReceiptDate).To(BeNil())
		Expect(got.Amount).To(BeNil())
		Expect(got.OCRConfidence).To(BeNil())
		Expect(got.RawText).To(BeEmpty())
		Expect(got.ConfidenceScore).To(BeZero())
	})

	It("reports unknown ids as not found", func() {
		_, err := repo.Get(ctx, uuid.New())
		Expect(err).To(MatchError(common.ErrNotFound))
	})

	It("rejects a duplicate id", func() {
		rec := sample(base)
		Expect(repo.Save(ctx, rec)).To(Succeed())
		dup := sample(base)
		dup.ID = rec.ID
		err := repo.Save(ctx, dup)
		Expect(err).To(MatchError(common.ErrDatabase))
	})

	Describe("List", func() {
		BeforeEach(func() {
			for i := 0; i < 3; i++ {
				Expect(repo.Save(ctx, sample(base.Add(time.Duration(2-i)*time.Hour)))).To(Succeed())
			}
		})

		It("returns everything oldest first without bounds", func() {
			got, err := repo.List(ctx, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(3))
			Expect(got[0].CreatedAt.Equal(base)).To(BeTrue())
			Expect(got[2].CreatedAt.Equal(base.Add(2 * time.Hour))).To(BeTrue())
		})

		It("applies inclusive bounds", func() {
			from := base.Add(time.Hour)
			to := base.Add(2 * time.Hour)
			got, err := repo.List(ctx, &from, &to)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))

			to = base.Add(30 * time.Minute)
			got, err = repo.List(ctx, nil, &to)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
		})

		It("returns nothing for an empty window", func() {
			from := base.Add(24 * time.Hour)
			got, err := repo.List(ctx, &from, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})
	})

	It("passes a health check", func() {
		Expect(repo.HealthCheck(ctx, time.Second)).To(Succeed())
	})
}

var _ = Describe("SQLite receipt repository", func() {
	repositoryContract(func() ReceiptRepository {
		repo, err := Open(context.Background(), common.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}, nil)
		Expect(err).NotTo(HaveOccurred())
		return repo
	})
})

var _ = Describe("Bolt receipt repository", func() {
	repositoryContract(func() ReceiptRepository {
		path := filepath.Join(GinkgoT().TempDir(), "receipts.bolt")
		repo, err := Open(context.Background(), common.DatabaseConfig{Driver: "bolt", BoltPath: path}, nil)
		Expect(err).NotTo(HaveOccurred())
		return repo
	})

	It("keeps data across reopen", func() {
		path := filepath.Join(GinkgoT().TempDir(), "receipts.bolt")
		repo, err := OpenBolt(path, nil)
		Expect(err).NotTo(HaveOccurred())
		rec := sample(time.Now())
		Expect(repo.Save(context.Background(), rec)).To(Succeed())
		Expect(repo.Close()).To(Succeed())

		repo, err = OpenBolt(path, nil)
		Expect(err).NotTo(HaveOccurred())
		defer repo.Close()
		got, err := repo.Get(context.Background(), rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Amount.Equal(*rec.Amount)).To(BeTrue())
	})
})

var _ = Describe("Open", func() {
	It("rejects an unknown driver", func() {
		_, err := Open(context.Background(), common.DatabaseConfig{Driver: "mysql"}, nil)
		Expect(err).To(MatchError(common.ErrInvalidInput))
	})
})
