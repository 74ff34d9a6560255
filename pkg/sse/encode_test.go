package sse

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("WriteEvent", func() {
	It("writes the wire format", func() {
		var b strings.Builder
		Expect(WriteEvent(&b, Event{ID: "1", Event: "delta", Data: "a\nb", Retry: intPtr(500)})).To(Succeed())
		Expect(b.String()).To(Equal("id: 1\nevent: delta\nretry: 500\ndata: a\ndata: b\n\n"))
	})

	It("omits default fields", func() {
		var b strings.Builder
		Expect(WriteEvent(&b, Event{Event: "message", Data: ""})).To(Succeed())
		Expect(b.String()).To(Equal("data: \n\n"))
	})

	It("is read back by the parser", func() {
		events := []Event{
			{ID: "1", Event: "message", Data: `{"n":1}`},
			{ID: "2", Event: "delta", Data: "multi\nline", Retry: intPtr(10)},
			{ID: "3", Event: "message", Data: "x", Retry: intPtr(10)},
		}

		var b strings.Builder
		for _, ev := range events {
			Expect(WriteEvent(&b, ev)).To(Succeed())
		}

		got, err := Collect(background(), NewEventStream(strings.NewReader(b.String())))
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(events))
	})
})
