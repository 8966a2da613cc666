package record

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("SaveImage", func() {
		It("writes one file keyed by record ID", func() {
			Expect(storage.SaveImage("rec-1", []byte("jpeg bytes"))).To(Succeed())

			data, err := os.ReadFile(filepath.Join(tmpDir, "rec-1.jpg"))
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("jpeg bytes")))
		})

		It("replaces an existing image for the same record", func() {
			Expect(storage.SaveImage("rec-1", []byte("old"))).To(Succeed())
			Expect(storage.SaveImage("rec-1", []byte("new"))).To(Succeed())

			data, err := storage.GetImage("rec-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("new")))
		})
	})

	Describe("GetImage", func() {
		It("returns ErrImageNotFound when nothing is stored", func() {
			_, err := storage.GetImage("rec-1")
			Expect(err).To(MatchError(ErrImageNotFound))
		})

		It("returns the stored bytes", func() {
			Expect(storage.SaveImage("rec-1", []byte("jpeg bytes"))).To(Succeed())

			data, err := storage.GetImage("rec-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("jpeg bytes")))
		})
	})

	Describe("DeleteImage", func() {
		It("removes the stored image", func() {
			Expect(storage.SaveImage("rec-1", []byte("jpeg bytes"))).To(Succeed())
			Expect(storage.DeleteImage("rec-1")).To(Succeed())

			_, err := storage.GetImage("rec-1")
			Expect(err).To(MatchError(ErrImageNotFound))
		})

		It("is a no-op when nothing is stored", func() {
			Expect(storage.DeleteImage("rec-1")).To(Succeed())
		})
	})
})
