package record

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SessionBroker", func() {
	var broker *SessionBroker

	BeforeEach(func() {
		broker = NewSessionBroker(Session{UserID: "user-1"})
	})

	It("returns the current session", func() {
		Expect(broker.Current()).To(Equal(Session{UserID: "user-1"}))
	})

	Describe("OnChange", func() {
		It("notifies subscribers of the new session", func() {
			var seen []Session
			broker.OnChange(func(s Session) {
				seen = append(seen, s)
			})

			broker.Set(Session{UserID: "user-2"})

			Expect(seen).To(Equal([]Session{{UserID: "user-2"}}))
			Expect(broker.Current()).To(Equal(Session{UserID: "user-2"}))
		})

		It("stops notifying after cancel", func() {
			var calls int
			cancel := broker.OnChange(func(Session) {
				calls++
			})

			broker.Set(Session{UserID: "user-2"})
			cancel()
			broker.Set(Session{UserID: "user-3"})

			Expect(calls).To(Equal(1))
		})

		It("supports multiple subscribers", func() {
			var first, second int
			broker.OnChange(func(Session) { first++ })
			broker.OnChange(func(Session) { second++ })

			broker.Set(Session{UserID: "user-2"})

			Expect(first).To(Equal(1))
			Expect(second).To(Equal(1))
		})
	})
})
