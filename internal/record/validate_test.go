package record

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Validate", func() {
	var (
		draft  Draft
		today  time.Time
		policy Policy
		rec    *ReturnRecord
		err    error
	)

	kindOf := func(err error) string {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return verr.Kind
		}
		return ""
	}

	BeforeEach(func() {
		today = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
		policy = Policy{}
		draft = Draft{
			StoreName:    "Target",
			Price:        "45.50",
			PurchaseDate: "2025-01-10",
		}
	})

	JustBeforeEach(func() {
		rec, err = Validate(draft, today, policy)
	})

	When("the draft has only the required fields", func() {
		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("normalizes the price to cents", func() {
			Expect(rec.PriceCents).To(Equal(int64(4550)))
		})

		It("leaves the optional dates nil", func() {
			Expect(rec.ReturnByDate).To(BeNil())
			Expect(rec.ReturnedDate).To(BeNil())
		})
	})

	When("the store name has surrounding whitespace", func() {
		BeforeEach(func() {
			draft.StoreName = "  Best Buy  "
		})

		It("trims it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.StoreName).To(Equal("Best Buy"))
		})
	})

	When("the store name is blank", func() {
		BeforeEach(func() {
			draft.StoreName = "   "
		})

		It("returns EMPTY_STORE_NAME", func() {
			Expect(kindOf(err)).To(Equal(KindEmptyStoreName))
		})
	})

	When("the store name exceeds 100 characters", func() {
		BeforeEach(func() {
			name := make([]byte, 101)
			for n := range name {
				name[n] = 'x'
			}
			draft.StoreName = string(name)
		})

		It("returns STORE_NAME_TOO_LONG", func() {
			Expect(kindOf(err)).To(Equal(KindStoreNameTooLong))
		})
	})

	When("the price is not a number", func() {
		BeforeEach(func() {
			draft.Price = "forty five"
		})

		It("returns PRICE_INVALID", func() {
			Expect(kindOf(err)).To(Equal(KindPriceInvalid))
		})
	})

	When("the price is zero", func() {
		BeforeEach(func() {
			draft.Price = "0.00"
		})

		It("returns PRICE_OUT_OF_RANGE", func() {
			Expect(kindOf(err)).To(Equal(KindPriceOutOfRange))
		})
	})

	When("the price exceeds the maximum", func() {
		BeforeEach(func() {
			draft.Price = "1000000.00"
		})

		It("returns PRICE_OUT_OF_RANGE", func() {
			Expect(kindOf(err)).To(Equal(KindPriceOutOfRange))
		})
	})

	When("the price is at the maximum", func() {
		BeforeEach(func() {
			draft.Price = "999999.99"
		})

		It("is accepted", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.PriceCents).To(Equal(int64(99_999_999)))
		})
	})

	When("the price has a dollar sign and thousands separators", func() {
		BeforeEach(func() {
			draft.Price = "$1,234.56"
		})

		It("is accepted", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.PriceCents).To(Equal(int64(123456)))
		})
	})

	When("the purchase date is missing", func() {
		BeforeEach(func() {
			draft.PurchaseDate = ""
		})

		It("returns PURCHASE_DATE_MISSING", func() {
			Expect(kindOf(err)).To(Equal(KindPurchaseDateMissing))
		})
	})

	When("the purchase date is gibberish", func() {
		BeforeEach(func() {
			draft.PurchaseDate = "01/10/2025"
		})

		It("returns PURCHASE_DATE_INVALID", func() {
			Expect(kindOf(err)).To(Equal(KindPurchaseDateInvalid))
		})
	})

	When("the purchase date is today", func() {
		BeforeEach(func() {
			draft.PurchaseDate = "2025-01-15"
		})

		It("is accepted", func() {
			Expect(err).NotTo(HaveOccurred())
		})
	})

	When("the purchase date is tomorrow", func() {
		BeforeEach(func() {
			draft.PurchaseDate = "2025-01-16"
		})

		It("returns PURCHASE_DATE_FUTURE", func() {
			Expect(kindOf(err)).To(Equal(KindPurchaseDateFuture))
		})
	})

	When("the returned date equals the purchase date", func() {
		BeforeEach(func() {
			draft.ReturnedDate = "2025-01-10"
		})

		It("is accepted (inclusive boundary)", func() {
			Expect(err).NotTo(HaveOccurred())
		})
	})

	When("the returned date is today", func() {
		BeforeEach(func() {
			draft.ReturnedDate = "2025-01-15"
		})

		It("is accepted", func() {
			Expect(err).NotTo(HaveOccurred())
		})
	})

	When("the returned date is tomorrow", func() {
		BeforeEach(func() {
			draft.ReturnedDate = "2025-01-16"
		})

		It("returns RETURNED_IN_FUTURE", func() {
			Expect(kindOf(err)).To(Equal(KindReturnedInFuture))
		})
	})

	When("the returned date precedes the purchase date", func() {
		BeforeEach(func() {
			draft.ReturnedDate = "2025-01-09"
		})

		It("returns RETURNED_BEFORE_PURCHASE", func() {
			Expect(kindOf(err)).To(Equal(KindReturnedBeforePurchase))
		})
	})

	When("the return-by date precedes the purchase date", func() {
		BeforeEach(func() {
			draft.ReturnByDate = "2025-01-09"
		})

		It("returns RETURN_BY_BEFORE_PURCHASE", func() {
			Expect(kindOf(err)).To(Equal(KindReturnByBeforePurchase))
		})
	})

	When("the return-by date equals the purchase date", func() {
		BeforeEach(func() {
			draft.ReturnByDate = "2025-01-10"
		})

		It("is accepted (inclusive boundary)", func() {
			Expect(err).NotTo(HaveOccurred())
		})
	})

	When("the return-by date is already past", func() {
		BeforeEach(func() {
			draft.ReturnByDate = "2025-01-12"
		})

		It("is accepted under the default policy", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		When("the strict return-by policy is on", func() {
			BeforeEach(func() {
				policy.RequireReturnByNotPast = true
			})

			It("returns RETURN_BY_PAST", func() {
				Expect(kindOf(err)).To(Equal(KindReturnByPast))
			})
		})
	})

	When("several fields are invalid at once", func() {
		BeforeEach(func() {
			draft.StoreName = ""
			draft.Price = "nope"
		})

		It("reports only the first violation", func() {
			Expect(kindOf(err)).To(Equal(KindEmptyStoreName))
		})
	})
})

var _ = Describe("ParsePriceCents", func() {
	It("parses whole dollars", func() {
		Expect(ParsePriceCents("45")).To(Equal(int64(4500)))
	})

	It("parses one decimal place", func() {
		Expect(ParsePriceCents("45.5")).To(Equal(int64(4550)))
	})

	It("parses two decimal places", func() {
		Expect(ParsePriceCents("45.50")).To(Equal(int64(4550)))
	})

	It("rejects three decimal places", func() {
		_, err := ParsePriceCents("45.505")
		Expect(err).To(HaveOccurred())
	})

	It("rejects negative amounts", func() {
		_, err := ParsePriceCents("-45.50")
		Expect(err).To(HaveOccurred())
	})

	It("rejects empty input", func() {
		_, err := ParsePriceCents("  ")
		Expect(err).To(HaveOccurred())
	})

	It("round-trips through FormatPrice", func() {
		Expect(FormatPrice(4550)).To(Equal("45.50"))
		Expect(FormatPrice(5)).To(Equal("0.05"))
	})
})
