package ocr

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeExtractor is a fake implementation of Extractor
type fakeExtractor struct {
	fields  *PartialFields
	err     error
	waitCtx bool
}

func (f *fakeExtractor) Extract(ctx context.Context, imageData []byte) (*PartialFields, error) {
	if f.waitCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.fields, f.err
}

func (f *fakeExtractor) Close() error {
	return nil
}

var _ = Describe("Assist", func() {
	var (
		extractor *fakeExtractor
		assist    *Assist
	)

	BeforeEach(func() {
		extractor = &fakeExtractor{}
		assist = NewAssist(extractor)
	})

	It("returns the extracted fields with no warning", func() {
		price := int64(4550)
		extractor.fields = &PartialFields{StoreName: "Target", PriceCents: &price}

		fields, warning := assist.Autofill(context.Background(), []byte("jpeg"))
		Expect(warning).To(BeNil())
		Expect(fields.StoreName).To(Equal("Target"))
	})

	It("returns empty fields when the extractor produced nothing", func() {
		fields, warning := assist.Autofill(context.Background(), []byte("jpeg"))
		Expect(warning).To(BeNil())
		Expect(fields.Empty()).To(BeTrue())
	})

	When("the extractor fails", func() {
		It("degrades a rate limit to a warning", func() {
			extractor.err = ErrRateLimited

			fields, warning := assist.Autofill(context.Background(), []byte("jpeg"))
			Expect(fields.Empty()).To(BeTrue())
			Expect(warning.Kind).To(Equal(WarnRateLimited))
		})

		It("degrades an exhausted quota to a warning", func() {
			extractor.err = ErrQuotaExhausted

			_, warning := assist.Autofill(context.Background(), []byte("jpeg"))
			Expect(warning.Kind).To(Equal(WarnQuota))
		})

		It("degrades any other failure to a generic warning", func() {
			extractor.err = errors.New("model had a bad day")

			_, warning := assist.Autofill(context.Background(), []byte("jpeg"))
			Expect(warning.Kind).To(Equal(WarnFailed))
		})

		It("degrades a timeout to a warning", func() {
			extractor.waitCtx = true
			assist = NewAssistWithTimeout(extractor, 10*time.Millisecond)

			fields, warning := assist.Autofill(context.Background(), []byte("jpeg"))
			Expect(fields.Empty()).To(BeTrue())
			Expect(warning.Kind).To(Equal(WarnTimeout))
		})
	})
})

var _ = Describe("PartialFields", func() {
	It("reports empty only when every field is absent", func() {
		Expect(PartialFields{}.Empty()).To(BeTrue())
		Expect(PartialFields{StoreName: "Target"}.Empty()).To(BeFalse())

		price := int64(1)
		Expect(PartialFields{PriceCents: &price}.Empty()).To(BeFalse())
	})
})
