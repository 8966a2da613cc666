package record

import (
	"fmt"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath, "1.2.3")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newRecord := func(id string) *ReturnRecord {
		return &ReturnRecord{
			ID:           id,
			StoreName:    "Target",
			PriceCents:   4550,
			PurchaseDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
	}

	Describe("CreateRecord", func() {
		It("stores a record retrievable by ID", func() {
			Expect(db.CreateRecord("user-1", newRecord("rec-1"))).To(Succeed())

			rec, err := db.GetRecord("user-1", "rec-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.StoreName).To(Equal("Target"))
			Expect(rec.PriceCents).To(Equal(int64(4550)))
		})

		When("the user is at the record ceiling", func() {
			BeforeEach(func() {
				for n := 0; n < MaxRecordsPerUser; n++ {
					Expect(db.CreateRecord("user-1", newRecord(fmt.Sprintf("rec-%d", n)))).To(Succeed())
				}
			})

			It("rejects the next create with ErrLimitExceeded", func() {
				err := db.CreateRecord("user-1", newRecord("one-too-many"))
				Expect(err).To(MatchError(ErrLimitExceeded))
			})

			It("leaves the count at the ceiling", func() {
				db.CreateRecord("user-1", newRecord("one-too-many"))
				count, err := db.CountRecords("user-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(count).To(Equal(MaxRecordsPerUser))
			})

			It("does not limit a different user", func() {
				Expect(db.CreateRecord("user-2", newRecord("rec-1"))).To(Succeed())
			})
		})
	})

	Describe("GetRecord", func() {
		It("returns ErrNotFound for a missing record", func() {
			_, err := db.GetRecord("user-1", "nope")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("does not leak records across users", func() {
			Expect(db.CreateRecord("user-1", newRecord("rec-1"))).To(Succeed())
			_, err := db.GetRecord("user-2", "rec-1")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("round-trips optional dates", func() {
			rec := newRecord("rec-1")
			returned := time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
			rec.ReturnedDate = &returned
			Expect(db.CreateRecord("user-1", rec)).To(Succeed())

			got, err := db.GetRecord("user-1", "rec-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ReturnedDate).NotTo(BeNil())
			Expect(got.ReturnedDate.Equal(returned)).To(BeTrue())
			Expect(got.ReturnByDate).To(BeNil())
		})
	})

	Describe("ListRecords", func() {
		It("returns an empty slice for an unknown user", func() {
			records, err := db.ListRecords("nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("returns only the user's records", func() {
			Expect(db.CreateRecord("user-1", newRecord("rec-1"))).To(Succeed())
			Expect(db.CreateRecord("user-1", newRecord("rec-2"))).To(Succeed())
			Expect(db.CreateRecord("user-2", newRecord("rec-3"))).To(Succeed())

			records, err := db.ListRecords("user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
		})
	})

	Describe("SaveRecord", func() {
		It("overwrites an existing record", func() {
			Expect(db.CreateRecord("user-1", newRecord("rec-1"))).To(Succeed())

			rec, _ := db.GetRecord("user-1", "rec-1")
			rec.RefundReceived = true
			Expect(db.SaveRecord("user-1", rec)).To(Succeed())

			got, err := db.GetRecord("user-1", "rec-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.RefundReceived).To(BeTrue())
		})
	})

	Describe("DeleteRecord", func() {
		It("removes the record", func() {
			Expect(db.CreateRecord("user-1", newRecord("rec-1"))).To(Succeed())
			Expect(db.DeleteRecord("user-1", "rec-1")).To(Succeed())

			_, err := db.GetRecord("user-1", "rec-1")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("returns ErrNotFound for a missing record", func() {
			Expect(db.DeleteRecord("user-1", "nope")).To(MatchError(ErrNotFound))
		})

		It("frees a slot at the ceiling", func() {
			for n := 0; n < MaxRecordsPerUser; n++ {
				Expect(db.CreateRecord("user-1", newRecord(fmt.Sprintf("rec-%d", n)))).To(Succeed())
			}
			Expect(db.DeleteRecord("user-1", "rec-0")).To(Succeed())
			Expect(db.CreateRecord("user-1", newRecord("rec-new"))).To(Succeed())
		})
	})

	Describe("AppVersion", func() {
		It("returns the seeded version", func() {
			version, err := db.AppVersion()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal("1.2.3"))
		})

		It("is overwritten on reopen with a newer version", func() {
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath, "1.3.0")
			Expect(err).NotTo(HaveOccurred())

			version, err := db.AppVersion()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal("1.3.0"))
		})
	})
})
